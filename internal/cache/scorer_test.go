package cache

import (
	"math"
	"testing"
	"time"

	"adaptive-cache/internal/models"

	"github.com/stretchr/testify/assert"
)

func scoringConfig() models.ScoringConfig {
	return models.DefaultSemanticCacheConfig().Scoring
}

func TestValueScorer(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ColdEntry", func(t *testing.T) {
		vs := NewValueScorer(scoringConfig())
		e := &models.CacheEntry{CreatedAt: now, LastAccess: now}

		// Never hit: only the recency term contributes, at full weight.
		assert.InDelta(t, 0.20, vs.Score(e, now), 1e-9)
	})

	t.Run("FrequencyCapped", func(t *testing.T) {
		vs := NewValueScorer(scoringConfig())
		e := &models.CacheEntry{CreatedAt: now, LastAccess: now, Hits: 50, SimilaritySum: 50}

		capped := &models.CacheEntry{CreatedAt: now, LastAccess: now, Hits: 10, SimilaritySum: 10}
		assert.InDelta(t, vs.Score(capped, now), vs.Score(e, now), 1e-9)
	})

	t.Run("RecencyDecaysContinuously", func(t *testing.T) {
		cfg := scoringConfig()
		vs := NewValueScorer(cfg)
		e := &models.CacheEntry{CreatedAt: now.Add(-2 * time.Hour), LastAccess: now.Add(-time.Hour)}

		got := vs.Score(e, now)
		want := cfg.WeightRecency * math.Exp(-1) // one half-life elapsed
		assert.InDelta(t, want, got, 1e-9)

		// Strictly between the neighboring instants: no step behavior.
		earlier := vs.Score(e, now.Add(-time.Minute))
		later := vs.Score(e, now.Add(time.Minute))
		assert.Greater(t, earlier, got)
		assert.Greater(t, got, later)
	})

	t.Run("SavingsCapped", func(t *testing.T) {
		vs := NewValueScorer(scoringConfig())
		a := &models.CacheEntry{CreatedAt: now, LastAccess: now, TokensSaved: 1000}
		b := &models.CacheEntry{CreatedAt: now, LastAccess: now, TokensSaved: 100000}

		assert.InDelta(t, vs.Score(a, now), vs.Score(b, now), 1e-9)
	})

	t.Run("WeightsAreSwappable", func(t *testing.T) {
		cfg := scoringConfig()
		cfg.WeightFrequency = 1
		cfg.WeightRecency = 0
		cfg.WeightQuality = 0
		cfg.WeightSavings = 0
		vs := NewValueScorer(cfg)

		e := &models.CacheEntry{CreatedAt: now, LastAccess: now, Hits: 5, SimilaritySum: 5}
		assert.InDelta(t, 0.5, vs.Score(e, now), 1e-9)
	})

	t.Run("ScoreBounded", func(t *testing.T) {
		vs := NewValueScorer(scoringConfig())
		e := &models.CacheEntry{
			CreatedAt:     now,
			LastAccess:    now,
			Hits:          1000,
			SimilaritySum: 2000, // avg > 1, clamped
			TokensSaved:   1 << 30,
		}
		score := vs.Score(e, now)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}
