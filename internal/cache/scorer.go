package cache

import (
	"math"
	"time"

	"adaptive-cache/internal/models"
)

// ValueScorer computes the normalized value score used to rank entries for
// eviction. Scores are computed lazily from an entry's stored counters and the
// current time; there is no background recomputation.
type ValueScorer struct {
	cfg models.ScoringConfig
}

// NewValueScorer creates a scorer with the given weights and caps.
func NewValueScorer(cfg models.ScoringConfig) *ValueScorer {
	return &ValueScorer{cfg: cfg}
}

// Score returns the weighted composite value of an entry at the given instant.
// Each term is clamped to [0,1] before weighting:
//
//	frequency: hit count over the configured cap
//	recency:   exp(-age_since_last_access / half-life), continuous decay
//	quality:   running average of match similarities (0 if never hit)
//	savings:   cumulative tokens saved over the configured cap
func (vs *ValueScorer) Score(entry *models.CacheEntry, now time.Time) float64 {
	freq := clamp01(float64(entry.Hits) / vs.cfg.FrequencyCap)

	sinceAccess := now.Sub(entry.LastAccess)
	if sinceAccess < 0 {
		sinceAccess = 0
	}
	recency := clamp01(math.Exp(-float64(sinceAccess) / float64(vs.cfg.RecencyHalfLife)))

	quality := clamp01(entry.AvgSimilarity())

	savings := clamp01(float64(entry.TokensSaved) / vs.cfg.SavingsCap)

	return vs.cfg.WeightFrequency*freq +
		vs.cfg.WeightRecency*recency +
		vs.cfg.WeightQuality*quality +
		vs.cfg.WeightSavings*savings
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
