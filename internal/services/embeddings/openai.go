package embeddings

import (
	"context"
	"net/http"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"

	"adaptive-cache/internal/models"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// OpenAIProvider embeds queries through the OpenAI embeddings API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider builds the provider from config. BaseURL allows pointing
// at any OpenAI-compatible embeddings endpoint.
func NewOpenAIProvider(cfg models.EmbeddingsConfig) *OpenAIProvider {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutMs > 0 {
		httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
		opts = append(opts, openaiOption.WithHTTPClient(httpClient))
	}

	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Embed returns the raw embedding for text. The cache normalizes vectors to
// unit length itself, so no normalization happens here.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		fiberlog.Errorf("Embedding request failed after %v: %v", time.Since(start), err)
		return nil, models.NewEmbeddingError("embedding request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, models.NewEmbeddingError("embedding response contained no data", nil)
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	fiberlog.Debugf("Embedded %d chars into %d dims in %v", len(text), len(vec), time.Since(start))
	return vec, nil
}
