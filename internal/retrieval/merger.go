package retrieval

import (
	"context"
	"sort"
	"strings"
)

// Merger fetches ranked snippets and folds them into prompt context under a
// character budget. An absent source is a valid state, not an error: the
// merger then contributes nothing.
type Merger struct {
	source Source
	topK   int
}

// NewMerger creates a merger. source may be nil when retrieval is not
// configured.
func NewMerger(source Source, topK int) *Merger {
	return &Merger{source: source, topK: topK}
}

// Fetch returns snippets for the query, empty when no source is configured.
// Errors degrade to an empty result; the caller decides whether to report.
func (m *Merger) Fetch(ctx context.Context, query string) ([]Snippet, error) {
	if m.source == nil {
		return nil, nil
	}
	return m.source.Fetch(ctx, query, m.topK)
}

// Merge selects snippets that fit the character budget, highest score first.
// A snippet is either fully included or fully dropped, never split.
func Merge(snippets []Snippet, budgetChars int) []Snippet {
	if len(snippets) == 0 || budgetChars <= 0 {
		return nil
	}

	ranked := make([]Snippet, len(snippets))
	copy(ranked, snippets)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	var kept []Snippet
	used := 0
	for _, s := range ranked {
		if used+len(s.Text) > budgetChars {
			break // everything below this rank is dropped
		}
		kept = append(kept, s)
		used += len(s.Text)
	}
	return kept
}

// Format renders merged snippets as a context block for the prompt.
func Format(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant context:\n")
	for _, s := range snippets {
		b.WriteString("- ")
		if s.SourceID != "" {
			b.WriteString("[" + s.SourceID + "] ")
		}
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	return b.String()
}
