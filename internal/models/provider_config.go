package models

// ProviderConfig holds configuration for an LLM provider endpoint
type ProviderConfig struct {
	APIKey    string            `yaml:"api_key" json:"api_key,omitzero"`
	BaseURL   string            `yaml:"base_url" json:"base_url,omitzero"`     // Optional custom base URL
	TimeoutMs int               `yaml:"timeout_ms" json:"timeout_ms,omitzero"` // Optional timeout in milliseconds
	Headers   map[string]string `yaml:"headers" json:"headers,omitzero"`       // Optional custom headers
}
