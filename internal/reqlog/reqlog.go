package reqlog

import (
	"context"
	"time"

	"palaver/internal/llm"
)

// Entry is one logged LLM exchange. Entries are append-only records: once
// written they are never updated or deleted by this process.
type Entry struct {
	ID        string
	SessionID string
	Request   *llm.ChatRequest
	Response  *llm.ChatResponse
	ErrText   string
	Latency   time.Duration
	CreatedAt time.Time
}

// Recorder persists log entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}
