package eventbus

import (
	"sync"
	"time"
)

// Bus is a simple in-process pub/sub event bus. It carries the side-channel
// diagnostics that must not interrupt an exchange: state transitions,
// component warnings, LLM traffic for observers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish sends an event to all subscribers of the topic.
// Handlers are called synchronously in the order they were registered.
func (b *Bus) Publish(topic Topic, payload any) {
	for _, h := range b.snapshot(topic) {
		h(Event{Topic: topic, Payload: payload, Timestamp: time.Now()})
	}
}

// PublishAsync sends an event to all subscribers asynchronously.
func (b *Bus) PublishAsync(topic Topic, payload any) {
	for _, h := range b.snapshot(topic) {
		go h(Event{Topic: topic, Payload: payload, Timestamp: time.Now()})
	}
}

// Warn publishes a non-fatal component failure on TopicWarning.
func (b *Bus) Warn(component, sessionID string, err error) {
	b.Publish(TopicWarning, Warning{Component: component, SessionID: sessionID, Err: err})
}

func (b *Bus) snapshot(topic Topic) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	return handlers
}
