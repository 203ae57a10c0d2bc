package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"palaver/internal/eventbus"
	"palaver/internal/llm"
)

// Manager owns channel lifecycles and routes inbound messages to the
// dispatcher. Each channel conversation maps to its own session, so two
// Telegram chats never share memory.
type Manager struct {
	mu         sync.RWMutex
	channels   map[string]Channel
	dispatcher Dispatcher
	bus        *eventbus.Bus
}

func NewManager(dispatcher Dispatcher, bus *eventbus.Bus) *Manager {
	return &Manager{
		channels:   make(map[string]Channel),
		dispatcher: dispatcher,
		bus:        bus,
	}
}

// Register adds a channel and binds its inbound messages to the dispatcher.
func (m *Manager) Register(ch Channel) {
	ch.OnMessage(func(msg InboundMessage) {
		go m.dispatch(ch, msg)
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// StartAll starts all registered channels.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			log.Printf("[channel] failed to start %s: %v", name, err)
			return fmt.Errorf("start %s: %w", name, err)
		}
		log.Printf("[channel] started %s", name)
	}
	return nil
}

// StopAll stops all running channels.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if ch.Running() {
			if err := ch.Stop(ctx); err != nil {
				log.Printf("[channel] failed to stop %s: %v", name, err)
			} else {
				log.Printf("[channel] stopped %s", name)
			}
		}
	}
}

// Get returns a channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// List returns all channel names and their running status.
func (m *Manager) List() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		result[name] = ch.Running()
	}
	return result
}

func (m *Manager) dispatch(ch Channel, msg InboundMessage) {
	ctx := context.Background()
	sessionID := msg.Channel + ":" + msg.SessionID

	if m.bus != nil {
		m.bus.PublishAsync(eventbus.TopicInboundMessage, msg)
	}

	if sc, ok := ch.(StreamSender); ok {
		chunks, err := m.dispatcher.HandleStream(ctx, sessionID, msg.Text)
		if err != nil {
			m.sendError(ctx, ch, msg.SessionID, err)
			return
		}
		if err := sc.SendStream(ctx, msg.SessionID, chunks); err != nil {
			log.Printf("[channel] stream delivery on %s failed: %v", ch.Name(), err)
		}
		return
	}

	reply, err := m.dispatcher.Handle(ctx, sessionID, msg.Text)
	if err != nil {
		m.sendError(ctx, ch, msg.SessionID, err)
		return
	}
	m.deliver(ctx, ch, OutboundMessage{SessionID: msg.SessionID, Text: reply.Text})
}

func (m *Manager) sendError(ctx context.Context, ch Channel, sessionID string, err error) {
	log.Printf("[channel] exchange on %s failed: %v", ch.Name(), err)
	if m.bus != nil {
		m.bus.PublishAsync(eventbus.TopicError, err)
	}
	m.deliver(ctx, ch, OutboundMessage{SessionID: sessionID, Text: userFacing(err)})
}

func (m *Manager) deliver(ctx context.Context, ch Channel, msg OutboundMessage) {
	if m.bus != nil {
		m.bus.PublishAsync(eventbus.TopicOutboundMessage, msg)
	}
	if err := ch.Send(ctx, msg); err != nil {
		log.Printf("[channel] delivery on %s failed: %v", ch.Name(), err)
	}
}

// userFacing maps an exchange failure to a message safe to show the user.
// The user's turn is already saved, so retrying is always legitimate advice.
func userFacing(err error) string {
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		switch pe.Type {
		case llm.ErrorTimeout:
			return "The model took too long to answer. Your message is saved; please try again."
		case llm.ErrorUnavailable:
			return "The model is unavailable right now. Your message is saved; please try again shortly."
		case llm.ErrorRejected:
			return "The model rejected this request. Your message is saved."
		}
	}
	return "Something went wrong handling your message. It is saved; please try again."
}
