package channel

import (
	"context"
	"time"

	"palaver/internal/orchestrator"
)

// InboundMessage is a user message received from a channel.
type InboundMessage struct {
	Channel    string
	SenderID   string
	SenderName string
	SessionID  string // channel-local conversation key
	Text       string
	ReceivedAt time.Time
}

// OutboundMessage is a reply to deliver through a channel.
type OutboundMessage struct {
	SessionID string
	Text      string
}

// Channel is the interface for messaging integrations.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	OnMessage(handler func(InboundMessage))
	Running() bool
}

// StreamSender is implemented by channels that can render a reply
// incrementally. The manager prefers streaming when a channel supports it.
type StreamSender interface {
	SendStream(ctx context.Context, sessionID string, chunks <-chan orchestrator.Chunk) error
}

// Dispatcher runs an exchange for an inbound message. Satisfied by
// *orchestrator.Orchestrator.
type Dispatcher interface {
	Handle(ctx context.Context, sessionID, content string) (*orchestrator.Reply, error)
	HandleStream(ctx context.Context, sessionID, content string) (<-chan orchestrator.Chunk, error)
}
