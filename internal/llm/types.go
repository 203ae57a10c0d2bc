package llm

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatResponse is the response from an LLM provider.
type ChatResponse struct {
	Content    string `json:"content"`
	Usage      Usage  `json:"usage"`
	StopReason string `json:"stop_reason"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatRequest is the input for a chat completion.
type ChatRequest struct {
	Model        string    `json:"model"`
	Messages     []Message `json:"messages"`
	MaxTokens    int       `json:"max_tokens"`
	Temperature  float64   `json:"temperature"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
}

// StreamEvent represents a chunk in a streaming response.
//
// A clean stream ends with Done=true and Err=nil; a failed stream ends with
// Done=true and Err set. Truncated is set when a deadline cut the stream
// short after some chunks were already delivered.
type StreamEvent struct {
	ContentDelta string `json:"content_delta,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
	Done         bool   `json:"done"`
	Truncated    bool   `json:"truncated,omitempty"`
	Err          error  `json:"-"`
}

// ErrorType classifies provider errors.
type ErrorType int

const (
	ErrorUnknown     ErrorType = iota
	ErrorUnavailable           // network/transport failure, 5xx, rate limits
	ErrorRejected              // malformed request, 4xx
	ErrorTimeout               // no response within the caller deadline
)

func (t ErrorType) String() string {
	switch t {
	case ErrorUnavailable:
		return "provider_unavailable"
	case ErrorRejected:
		return "provider_rejected"
	case ErrorTimeout:
		return "provider_timeout"
	default:
		return "provider_error"
	}
}
