package generation

import (
	"context"
	"net/http"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"adaptive-cache/internal/models"
)

// OpenAIGenerator produces responses through the OpenAI chat completions API.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIGenerator works with any OpenAI-compatible endpoint via BaseURL.
func NewOpenAIGenerator(cfg models.GenerationConfig, providerCfg models.ProviderConfig) *OpenAIGenerator {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(providerCfg.APIKey),
	}
	if providerCfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(providerCfg.BaseURL))
	}
	for key, value := range providerCfg.Headers {
		opts = append(opts, openaiOption.WithHeader(key, value))
	}
	if providerCfg.TimeoutMs > 0 {
		httpClient := &http.Client{Timeout: time.Duration(providerCfg.TimeoutMs) * time.Millisecond}
		opts = append(opts, openaiOption.WithHTTPClient(httpClient))
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: shared.ChatModel(g.model),
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		fiberlog.Errorf("OpenAI generation failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("openai", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.NewProviderError("openai", "chat completion returned no choices", nil)
	}

	inputTokens := int(resp.Usage.PromptTokens)
	outputTokens := int(resp.Usage.CompletionTokens)

	fiberlog.Debugf("OpenAI generation completed in %v - usage: input:%d, output:%d",
		time.Since(start), inputTokens, outputTokens)

	return &Result{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         CalculateCost("openai", g.model, inputTokens, outputTokens),
		Provider:     "openai",
		Model:        g.model,
	}, nil
}
