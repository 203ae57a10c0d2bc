package eventbus

import "time"

// Topic represents an event topic.
type Topic string

const (
	TopicInboundMessage  Topic = "inbound_message"
	TopicOutboundMessage Topic = "outbound_message"
	TopicExchangeState   Topic = "exchange_state"
	TopicLLMRequest      Topic = "llm_request"
	TopicLLMResponse     Topic = "llm_response"
	TopicClassification  Topic = "classification"
	TopicMemoryOptimized Topic = "memory_optimized"
	TopicWarning         Topic = "warning"
	TopicError           Topic = "error"
	TopicStatusChange    Topic = "status_change"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)

// Warning is the payload for TopicWarning: a non-fatal component failure
// reported off the critical path (log write, retrieval, optimization).
type Warning struct {
	Component string
	SessionID string
	Err       error
}
