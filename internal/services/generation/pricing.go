package generation

// ModelPricing holds USD cost per 1M tokens.
type ModelPricing struct {
	InputTokenCost  float64
	OutputTokenCost float64
}

type ProviderPricing map[string]ModelPricing

var GlobalPricing = map[string]ProviderPricing{
	"openai": {
		"gpt-5": {
			InputTokenCost:  1.25,
			OutputTokenCost: 10.0,
		},
		"gpt-5-mini": {
			InputTokenCost:  0.25,
			OutputTokenCost: 2.0,
		},
		"gpt-5-nano": {
			InputTokenCost:  0.05,
			OutputTokenCost: 0.4,
		},
		"gpt-4.1": {
			InputTokenCost:  30.0,
			OutputTokenCost: 60.0,
		},
		"gpt-4.1-mini": {
			InputTokenCost:  5.0,
			OutputTokenCost: 10.0,
		},
		"gpt-4o": {
			InputTokenCost:  2.5,
			OutputTokenCost: 10.0,
		},
		"gpt-4o-mini": {
			InputTokenCost:  0.15,
			OutputTokenCost: 0.6,
		},
	},
	"anthropic": {
		"claude-opus-4.1": {
			InputTokenCost:  15.0,
			OutputTokenCost: 75.0,
		},
		"claude-sonnet-4-5-20250929": {
			InputTokenCost:  3.0,
			OutputTokenCost: 15.0,
		},
		"claude-3-5-sonnet-20241022": {
			InputTokenCost:  3.0,
			OutputTokenCost: 15.0,
		},
		"claude-3-5-haiku-20241022": {
			InputTokenCost:  0.8,
			OutputTokenCost: 4.0,
		},
	},
	"gemini": {
		"gemini-2.5-pro": {
			InputTokenCost:  1.25,
			OutputTokenCost: 10.0,
		},
		"gemini-2.5-flash": {
			InputTokenCost:  0.3,
			OutputTokenCost: 1.2,
		},
		"gemini-2.5-flash-lite": {
			InputTokenCost:  0.1,
			OutputTokenCost: 0.4,
		},
		"gemini-2.0-flash": {
			InputTokenCost:  0.1,
			OutputTokenCost: 0.4,
		},
	},
}

// CalculateCost returns the USD cost of one generation. Unknown provider or
// model prices as zero, which downstreams into an admission rejection rather
// than an error.
func CalculateCost(provider, model string, inputTokens, outputTokens int) float64 {
	providerPricing, exists := GlobalPricing[provider]
	if !exists {
		return 0.0
	}

	modelPricing, exists := providerPricing[model]
	if !exists {
		return 0.0
	}

	return (float64(inputTokens)*modelPricing.InputTokenCost +
		float64(outputTokens)*modelPricing.OutputTokenCost) / 1_000_000.0
}
