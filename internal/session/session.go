package session

import (
	"context"
	"time"

	"palaver/internal/retrieval"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message within a session. Turns are immutable once appended;
// their store-assigned IDs grow monotonically within a session, so insertion
// order is the conversation order.
type Turn struct {
	ID        int64               `json:"id"`
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	Snippets  []retrieval.Snippet `json:"snippets,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// MemorySummary is the bounded rolling summary of a session's older turns.
// Boundary is the ID of the last turn folded into the summary; a newer
// summary always covers at least everything up to the prior boundary.
type MemorySummary struct {
	Text      string    `json:"text"`
	Boundary  int64     `json:"boundary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the interface for persistent session storage. Turn appends are
// strictly append-only; ReplaceSummary is an atomic replace-on-write and is
// the only mutation a summary ever sees.
type Store interface {
	AppendTurn(ctx context.Context, sessionID string, t Turn) (int64, error)
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	TurnsAfter(ctx context.Context, sessionID string, afterID int64) ([]Turn, error)
	TurnCount(ctx context.Context, sessionID string) (int, error)
	LastTurnID(ctx context.Context, sessionID string) (int64, error)
	Summary(ctx context.Context, sessionID string) (*MemorySummary, error)
	ReplaceSummary(ctx context.Context, sessionID string, s MemorySummary) error
	Close() error
}
