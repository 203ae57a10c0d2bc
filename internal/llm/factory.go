package llm

import (
	"fmt"

	"palaver/internal/config"
)

// NewProvider creates an LLM provider from config. The vendor is chosen once
// here; callers hold the Provider interface and never rebind it.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "openrouter", "local":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			TimeoutSecs: cfg.TimeoutSecs,
		}), nil
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			TimeoutSecs: cfg.TimeoutSecs,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
