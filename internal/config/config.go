package config

// Config is the top-level application configuration. Components receive the
// sections they need at construction; nothing reads process-wide state.
type Config struct {
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	LLM          LLMConfig          `json:"llm"`
	FallbackLLM  *LLMConfig         `json:"fallback_llm,omitempty"`
	Memory       MemoryConfig       `json:"memory"`
	Continuity   ContinuityConfig   `json:"continuity"`
	Retrieval    RetrievalConfig    `json:"retrieval"`
	Channels     ChannelsConfig     `json:"channels"`
	Security     SecurityConfig     `json:"security"`
}

type OrchestratorConfig struct {
	SystemPrompt        string  `json:"system_prompt"`
	MaxTokens           int     `json:"max_tokens"`
	Temperature         float64 `json:"temperature"`
	ContextBudgetTokens int     `json:"context_budget_tokens"`
	RecentTurns         int     `json:"recent_turns"`
	DeadlineSecs        int     `json:"deadline_secs"`
}

type LLMConfig struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	APIKey      string `json:"api_key,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type MemoryConfig struct {
	CompactAfterTurns  int     `json:"compact_after_turns"`
	SummaryTargetChars int     `json:"summary_target_chars"`
	SummaryMaxTokens   int     `json:"summary_max_tokens"`
	Temperature        float64 `json:"temperature"`
	DebounceMs         int     `json:"debounce_ms"`
}

type ContinuityConfig struct {
	Enabled           bool    `json:"enabled"`
	NewTopicThreshold float64 `json:"new_topic_threshold"`
	MinConfidence     float64 `json:"min_confidence"`
	EmbeddingModel    string  `json:"embedding_model,omitempty"`
	RecentTurns       int     `json:"recent_turns"`
}

type RetrievalConfig struct {
	Enabled        bool   `json:"enabled"`
	TopK           int    `json:"top_k"`
	BudgetChars    int    `json:"budget_chars"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

type ChannelsConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token      string  `json:"token"`
	AllowedIDs []int64 `json:"allowed_ids,omitempty"`
}

type SecurityConfig struct {
	PIIFiltering PIIFilterConfig `json:"pii_filtering"`
}

type PIIFilterConfig struct {
	Enabled      bool `json:"enabled"`
	FilterEmails bool `json:"filter_emails"`
	FilterPhones bool `json:"filter_phones"`
	FilterCards  bool `json:"filter_cards"`
	FilterIPs    bool `json:"filter_ips"`
	FilterSSN    bool `json:"filter_ssn"`
}
