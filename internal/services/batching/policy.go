// Package batching groups pending cache-miss requests per target model so a
// burst of misses can be sent downstream together. It is pure bookkeeping:
// closing a batch never performs a provider call.
package batching

import (
	"time"

	"adaptive-cache/internal/models"
)

// Policy is the set of thresholds that can close a batch: the wait since the
// batch's first request, the request count, and the effective token budget.
type Policy struct {
	MaxWait        time.Duration
	MaxBatchSize   int
	MaxBatchTokens int
}

// outputLengthFactor approximates output cost with a multiplier on input
// tokens, keeping batches from filling up with prompts likely to produce
// long outputs.
func outputLengthFactor(expected string) float64 {
	switch expected {
	case "short":
		return 0.2
	case "long":
		return 1.2
	default:
		return 0.6
	}
}

// EffectiveTokens is the input token count plus a reserved output budget.
func EffectiveTokens(tokenCount int, expectedOutput string) int {
	eff := int(float64(tokenCount)*(1.0+outputLengthFactor(expectedOutput)) + 0.5)
	return max(1, eff)
}

// adaptiveWait shortens the wait for latency-sensitive requests and stretches
// it for tolerant ones, clamped to the configured range.
func adaptiveWait(tolerance string, cfg models.BatchingConfig) time.Duration {
	waitMs := cfg.BaseWaitMs
	switch tolerance {
	case "low":
		waitMs = 50
	case "high":
		waitMs = 120
	}

	waitMs = max(cfg.MinWaitMs, min(cfg.MaxWaitMs, waitMs))
	return time.Duration(waitMs) * time.Millisecond
}

// PolicyFor returns the thresholds governing the batch a request joins.
func PolicyFor(req Request, cfg models.BatchingConfig) Policy {
	return Policy{
		MaxWait:        adaptiveWait(req.LatencyTolerance, cfg),
		MaxBatchSize:   cfg.MaxBatchSize,
		MaxBatchTokens: cfg.MaxBatchTokens,
	}
}
