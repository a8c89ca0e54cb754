package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	t.Run("known model", func(t *testing.T) {
		// 1000 input at $0.15/1M plus 500 output at $0.60/1M.
		cost := CalculateCost("openai", "gpt-4o-mini", 1000, 500)
		assert.InDelta(t, 0.00045, cost, 1e-9)
	})

	t.Run("unknown model prices as zero", func(t *testing.T) {
		assert.Zero(t, CalculateCost("openai", "no-such-model", 1000, 1000))
	})

	t.Run("unknown provider prices as zero", func(t *testing.T) {
		assert.Zero(t, CalculateCost("no-such-provider", "gpt-4o", 1000, 1000))
	})

	t.Run("zero usage is free", func(t *testing.T) {
		assert.Zero(t, CalculateCost("anthropic", "claude-3-5-haiku-20241022", 0, 0))
	})
}
