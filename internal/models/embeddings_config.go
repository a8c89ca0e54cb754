package models

// EmbeddingsConfig configures the embedding provider boundary.
// The provider must return vectors of the cache's configured dimension.
type EmbeddingsConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key,omitzero"`
	Model     string `yaml:"model" json:"model,omitzero"`
	BaseURL   string `yaml:"base_url" json:"base_url,omitzero"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms,omitzero"`
}

// GenerationConfig configures the response generator invoked on cache misses.
type GenerationConfig struct {
	// Provider selects the generation backend: "openai", "anthropic" or "gemini".
	Provider    string                    `yaml:"provider" json:"provider,omitzero"`
	Model       string                    `yaml:"model" json:"model,omitzero"`
	MaxTokens   int                       `yaml:"max_tokens" json:"max_tokens,omitzero"`
	Temperature float64                   `yaml:"temperature" json:"temperature,omitzero"`
	Providers   map[string]ProviderConfig `yaml:"providers" json:"providers,omitzero"`
}

// BatchingConfig configures the model-wise batcher that groups pending
// cache-miss requests per target model.
type BatchingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled,omitzero"`

	// Baseline wait for a medium latency tolerance, clamped to [MinWaitMs, MaxWaitMs].
	BaseWaitMs int `yaml:"base_wait_ms" json:"base_wait_ms,omitzero"`
	MinWaitMs  int `yaml:"min_wait_ms" json:"min_wait_ms,omitzero"`
	MaxWaitMs  int `yaml:"max_wait_ms" json:"max_wait_ms,omitzero"`

	MaxBatchSize   int `yaml:"max_batch_size" json:"max_batch_size,omitzero"`
	MaxBatchTokens int `yaml:"max_batch_tokens" json:"max_batch_tokens,omitzero"`
}

// ApplyDefaults fills zero-valued batching fields.
func (c *BatchingConfig) ApplyDefaults() {
	if c.BaseWaitMs <= 0 {
		c.BaseWaitMs = 80
	}
	if c.MinWaitMs <= 0 {
		c.MinWaitMs = 40
	}
	if c.MaxWaitMs <= 0 {
		c.MaxWaitMs = 120
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 8
	}
	if c.MaxBatchTokens <= 0 {
		c.MaxBatchTokens = 8000
	}
}
