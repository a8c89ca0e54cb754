// Package generation is the boundary to the response-producing LLM providers.
// A Generator is only invoked on a cache miss, always outside the cache lock.
package generation

import (
	"context"
	"fmt"

	"adaptive-cache/internal/models"
)

// Result is one completed generation with its usage accounting.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Provider     string
	Model        string
}

// Generator produces a response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// NewGenerator creates the configured provider backend.
func NewGenerator(cfg models.GenerationConfig) (Generator, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	providerCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("no provider config for %q", provider), nil)
	}
	if providerCfg.APIKey == "" {
		return nil, models.NewProviderError(provider, "API key not configured", nil)
	}

	switch provider {
	case "openai":
		return NewOpenAIGenerator(cfg, providerCfg), nil
	case "anthropic":
		return NewAnthropicGenerator(cfg, providerCfg), nil
	case "gemini":
		return NewGeminiGenerator(cfg, providerCfg)
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unsupported generation provider: %s", provider), nil)
	}
}
