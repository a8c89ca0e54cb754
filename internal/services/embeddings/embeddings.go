// Package embeddings is the boundary to the embedding provider. The cache
// only ever sees the []float32 vectors this package returns.
package embeddings

import (
	"context"
	"strings"

	"adaptive-cache/internal/models"
)

// Provider turns query text into an embedding vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewProvider creates the configured embedding provider.
func NewProvider(cfg models.EmbeddingsConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, models.NewValidationError("embeddings api_key not configured", nil)
	}
	return NewOpenAIProvider(cfg), nil
}

// NormalizeText lowercases, trims and collapses whitespace so that trivially
// different spellings of the same query share one embedding and one cache key.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
