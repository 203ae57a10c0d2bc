package config

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			SystemPrompt:        "You are Palaver, a helpful conversational assistant.",
			MaxTokens:           4096,
			Temperature:         0.7,
			ContextBudgetTokens: 8000,
			RecentTurns:         20,
			DeadlineSecs:        120,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			TimeoutSecs: 120,
		},
		Memory: MemoryConfig{
			CompactAfterTurns:  40,
			SummaryTargetChars: 4000,
			SummaryMaxTokens:   1024,
			Temperature:        0.2,
			DebounceMs:         2000,
		},
		Continuity: ContinuityConfig{
			Enabled:           true,
			NewTopicThreshold: 0.25,
			MinConfidence:     0.6,
			RecentTurns:       6,
		},
		Retrieval: RetrievalConfig{
			Enabled:     false,
			TopK:        5,
			BudgetChars: 4000,
		},
		Security: SecurityConfig{
			PIIFiltering: PIIFilterConfig{
				Enabled:      true,
				FilterEmails: true,
				FilterPhones: true,
				FilterCards:  true,
				FilterIPs:    false,
				FilterSSN:    true,
			},
		},
		Channels: ChannelsConfig{},
	}
}
