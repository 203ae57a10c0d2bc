package retrieval

import "context"

// Snippet is one ranked piece of externally sourced context. Snippets are
// read-only inputs to prompt assembly and are never mutated after fetch.
type Snippet struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	SourceID string  `json:"source_id"`
}

// Source is the interface for pluggable retrieval backends.
type Source interface {
	// Fetch returns up to topK snippets ranked descending by score.
	Fetch(ctx context.Context, query string, topK int) ([]Snippet, error)
}
