package generation

import (
	"context"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"

	"adaptive-cache/internal/models"
)

// GeminiGenerator produces responses through the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

func NewGeminiGenerator(cfg models.GenerationConfig, providerCfg models.ProviderConfig) (*GeminiGenerator, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  providerCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	var genCfg *genai.GenerateContentConfig
	if g.maxTokens > 0 || g.temperature > 0 {
		genCfg = &genai.GenerateContentConfig{}
		if g.maxTokens > 0 {
			genCfg.MaxOutputTokens = int32(g.maxTokens)
		}
		if g.temperature > 0 {
			genCfg.Temperature = genai.Ptr(float32(g.temperature))
		}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		fiberlog.Errorf("Gemini generation failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("gemini", "generate content failed", err)
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	fiberlog.Debugf("Gemini generation completed in %v - usage: input:%d, output:%d",
		time.Since(start), inputTokens, outputTokens)

	return &Result{
		Text:         resp.Text(),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         CalculateCost("gemini", g.model, inputTokens, outputTokens),
		Provider:     "gemini",
		Model:        g.model,
	}, nil
}
