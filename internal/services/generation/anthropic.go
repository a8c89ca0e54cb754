package generation

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"adaptive-cache/internal/models"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicGenerator produces responses through the Anthropic messages API.
type AnthropicGenerator struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

func NewAnthropicGenerator(cfg models.GenerationConfig, providerCfg models.ProviderConfig) *AnthropicGenerator {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(providerCfg.APIKey),
	}
	if providerCfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(providerCfg.BaseURL))
	}
	for key, value := range providerCfg.Headers {
		clientOpts = append(clientOpts, option.WithHeader(key, value))
	}

	client := anthropic.NewClient(clientOpts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		// The messages API requires an explicit max_tokens.
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicGenerator{
		client:      &client,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(g.temperature)
	}

	start := time.Now()
	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		fiberlog.Errorf("Anthropic generation failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("anthropic", "message request failed", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	inputTokens := int(message.Usage.InputTokens)
	outputTokens := int(message.Usage.OutputTokens)

	fiberlog.Debugf("Anthropic generation completed in %v - usage: input:%d, output:%d",
		time.Since(start), inputTokens, outputTokens)

	return &Result{
		Text:         text.String(),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         CalculateCost("anthropic", g.model, inputTokens, outputTokens),
		Provider:     "anthropic",
		Model:        g.model,
	}, nil
}
