package memoryopt

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"palaver/internal/config"
	"palaver/internal/eventbus"
	"palaver/internal/llm"
	"palaver/internal/session"
)

const compactSystemPrompt = "You are a conversation memory compactor. " +
	"Condense the prior summary and the new turns into one rolling summary. " +
	"Preserve chronology and user intent, keep key facts, decisions, names and " +
	"constraints, drop chatter. Never invent details; if uncertain, leave it out. " +
	"Output the summary text only."

// Optimizer compacts a session's uncovered turns into its rolling summary.
// It borrows the provider; it never owns or replaces it.
type Optimizer struct {
	provider llm.Provider
	store    session.Store
	bus      *eventbus.Bus
	cfg      config.MemoryConfig
}

// NewOptimizer creates a memory optimizer.
func NewOptimizer(provider llm.Provider, store session.Store, bus *eventbus.Bus, cfg config.MemoryConfig) *Optimizer {
	return &Optimizer{provider: provider, store: store, bus: bus, cfg: cfg}
}

// ShouldOptimize reports whether a compaction pass is due: either enough
// turns accumulated past the coverage boundary, or the conversation moved
// to a new topic and the old one should be sealed.
func (o *Optimizer) ShouldOptimize(sinceBoundary int, newTopic bool) bool {
	if sinceBoundary <= 0 {
		return false
	}
	if newTopic {
		return true
	}
	return sinceBoundary >= o.cfg.CompactAfterTurns
}

// Optimize folds all turns past the coverage boundary into the summary and
// advances the boundary, atomically. With no new turns it is a no-op: the
// stored summary stays byte-identical and no provider call is made.
// On any failure the prior summary and boundary remain untouched.
func (o *Optimizer) Optimize(ctx context.Context, sessionID string) error {
	prior, err := o.store.Summary(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}

	var boundary int64
	var priorText string
	if prior != nil {
		boundary = prior.Boundary
		priorText = prior.Text
	}

	turns, err := o.store.TurnsAfter(ctx, sessionID, boundary)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}
	if len(turns) == 0 {
		return nil // nothing new to fold
	}

	req := &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "user", Content: buildCompactionInput(priorText, turns)},
		},
		MaxTokens:    o.cfg.SummaryMaxTokens,
		Temperature:  o.cfg.Temperature,
		SystemPrompt: compactSystemPrompt,
	}

	resp, err := o.provider.Chat(ctx, req)
	if err != nil {
		return fmt.Errorf("compaction call: %w", err)
	}

	text := clamp(strings.TrimSpace(resp.Content), o.cfg.SummaryTargetChars)
	if text == "" {
		return fmt.Errorf("compaction produced empty summary")
	}

	newBoundary := turns[len(turns)-1].ID
	err = o.store.ReplaceSummary(ctx, sessionID, session.MemorySummary{
		Text:      text,
		Boundary:  newBoundary,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("replace summary: %w", err)
	}

	log.Printf("[memoryopt] session %s: folded %d turns, boundary %d → %d",
		sessionID, len(turns), boundary, newBoundary)
	o.bus.Publish(eventbus.TopicMemoryOptimized, sessionID)
	return nil
}

// buildCompactionInput lays out the prior summary followed by the uncovered
// turns, oldest first, for the compaction prompt.
func buildCompactionInput(priorSummary string, turns []session.Turn) string {
	var b strings.Builder
	if priorSummary != "" {
		b.WriteString("Prior summary:\n")
		b.WriteString(priorSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("New turns:\n")
	for _, t := range turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// clamp bounds text to max chars, cutting at a line or word break.
func clamp(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	if i := strings.LastIndexAny(cut, "\n "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
