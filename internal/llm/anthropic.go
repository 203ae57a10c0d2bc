package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider using the Anthropic API.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	TimeoutSecs int
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.TimeoutSecs > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
	}
}

func (p *AnthropicProvider) Name() string         { return "anthropic" }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	params := p.buildParams(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	return p.convertResponse(resp), nil
}

func (p *AnthropicProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	params := p.buildParams(req)

	stream := p.client.Messages.NewStreaming(ctx, params)
	ch := make(chan StreamEvent, 64)

	go func() {
		defer close(ch)
		for stream.Next() {
			event := stream.Current()
			evt := StreamEvent{}
			switch e := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if e.Delta.Type == "text_delta" {
					evt.ContentDelta = e.Delta.Text
				}
			case anthropic.MessageDeltaEvent:
				evt.Done = true
				if e.Usage.OutputTokens > 0 {
					evt.Usage = &Usage{OutputTokens: int(e.Usage.OutputTokens)}
				}
			}
			ch <- evt
		}
		if err := stream.Err(); err != nil {
			truncated := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
			ch <- StreamEvent{Err: classifyAnthropicError(err), Done: true, Truncated: truncated}
		}
	}()

	return ch, nil
}

func (p *AnthropicProvider) buildParams(req *ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  p.convertMessages(req),
		MaxTokens: int64(maxTokens),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}

func (p *AnthropicProvider) convertMessages(req *ChatRequest) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam

	for _, m := range req.Messages {
		switch m.Role {
		case "user", "system":
			// Anthropic has no in-band system role; system text rides in params.
			msgs = append(msgs, anthropic.NewUserMessage(
				anthropic.NewTextBlock(m.Content),
			))
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(m.Content),
			))
		}
	}
	return msgs
}

func (p *AnthropicProvider) convertResponse(resp *anthropic.Message) *ChatResponse {
	result := &ChatResponse{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.Content += b.Text
		}
	}

	return result
}

func classifyAnthropicError(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Type: ErrorTimeout, Message: "request deadline exceeded", Err: err}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	provErr := &ProviderError{Err: err, Message: msg}

	switch {
	case strings.Contains(lower, "400") || strings.Contains(lower, "401") ||
		strings.Contains(lower, "invalid_request") || strings.Contains(lower, "authentication"):
		provErr.Type = ErrorRejected
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		provErr.Type = ErrorTimeout
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "500") || strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "connection"):
		provErr.Type = ErrorUnavailable
	default:
		provErr.Type = ErrorUnknown
	}
	return provErr
}
