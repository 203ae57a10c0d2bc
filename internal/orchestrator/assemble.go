package orchestrator

import (
	"context"
	"fmt"
	"log"

	"palaver/internal/continuity"
	"palaver/internal/eventbus"
	"palaver/internal/llm"
	"palaver/internal/retrieval"
	"palaver/internal/session"
)

// assembly is everything Handle needs out of the pre-dispatch phase.
type assembly struct {
	request        *llm.ChatRequest
	snippets       []retrieval.Snippet
	classification continuity.Result
}

// assemble builds the provider request for one exchange: system prompt, the
// memory summary, recent turns past the summary boundary, retrieval context,
// and the new user message, fitted to the token budget. When the budget is
// tight, retrieval gives way first, then the oldest recent turns; the memory
// summary and the user message are never cut.
func (o *Orchestrator) assemble(ctx context.Context, sessionID, content string) (*assembly, error) {
	sum, err := o.store.Summary(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	var boundary int64
	if sum != nil {
		boundary = sum.Boundary
	}
	turns, err := o.store.TurnsAfter(ctx, sessionID, boundary)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	if o.cfg.RecentTurns > 0 && len(turns) > o.cfg.RecentTurns {
		turns = turns[len(turns)-o.cfg.RecentTurns:]
	}

	cls := o.classify(ctx, sessionID, content, turns)
	fetched := o.fetchSnippets(ctx, sessionID, content)

	memBlock := ""
	if sum != nil && sum.Text != "" {
		memBlock = "Conversation memory:\n" + sum.Text
	}

	budget := o.cfg.ContextBudgetTokens
	left := budget - o.counter.CountAll(o.cfg.SystemPrompt, memBlock, content)

	// Recent turns, newest first: older turns drop when they no longer fit.
	kept := make([]session.Turn, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		cost := o.counter.CountAll(turns[i].Content)
		if budget > 0 && cost > left {
			break
		}
		left -= cost
		kept = append(kept, turns[i])
	}
	// Reverse back to conversation order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	// Retrieval takes whatever budget remains.
	snipBudget := 1 << 20
	if budget > 0 {
		snipBudget = left * 4 // rough chars-per-token
	}
	if o.retrCfg.BudgetChars > 0 && o.retrCfg.BudgetChars < snipBudget {
		snipBudget = o.retrCfg.BudgetChars
	}
	snippets := retrieval.Merge(fetched, snipBudget)

	system := o.cfg.SystemPrompt
	if memBlock != "" {
		system += "\n\n" + memBlock
	}
	if block := retrieval.Format(snippets); block != "" {
		system += "\n\n" + block
	}

	msgs := make([]llm.Message, 0, len(kept)+1)
	for _, t := range kept {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: session.RoleUser, Content: content})

	return &assembly{
		request: &llm.ChatRequest{
			Messages:     msgs,
			MaxTokens:    o.cfg.MaxTokens,
			Temperature:  o.cfg.Temperature,
			SystemPrompt: system,
		},
		snippets:       snippets,
		classification: cls,
	}, nil
}

func (o *Orchestrator) classify(ctx context.Context, sessionID, content string, recent []session.Turn) continuity.Result {
	if o.classifier == nil {
		return continuity.Result{Label: continuity.LabelContinue, Confidence: 1}
	}
	res := o.classifier.Classify(ctx, content, recent)
	if o.bus != nil {
		o.bus.Publish(eventbus.TopicClassification, res)
	}
	return res
}

// fetchSnippets degrades to nothing on failure: retrieval is an enrichment,
// never a precondition for answering.
func (o *Orchestrator) fetchSnippets(ctx context.Context, sessionID, content string) []retrieval.Snippet {
	if o.merger == nil {
		return nil
	}
	snips, err := o.merger.Fetch(ctx, content)
	if err != nil {
		log.Printf("[orchestrator] retrieval failed for session %s: %v", sessionID, err)
		if o.bus != nil {
			o.bus.Warn("retrieval", sessionID, err)
		}
		return nil
	}
	return snips
}
