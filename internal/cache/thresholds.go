package cache

import "adaptive-cache/internal/models"

// ThresholdPolicy maps a query's length bucket to the current admission/match
// threshold and applies bounded adjustments from the optimizer.
//
// The policy performs no locking of its own: the owning SemanticCache
// serializes every read and mutation under its exclusion lock.
type ThresholdPolicy struct {
	cfg     models.ThresholdConfig
	current models.BucketThresholds
}

// NewThresholdPolicy bootstraps the live thresholds from configuration.
func NewThresholdPolicy(cfg models.ThresholdConfig) *ThresholdPolicy {
	return &ThresholdPolicy{cfg: cfg, current: cfg.Initial}
}

// BucketFor classifies a query by character length.
func (tp *ThresholdPolicy) BucketFor(query string) models.Bucket {
	n := len(query)
	switch {
	case n < tp.cfg.ShortMaxLen:
		return models.BucketShort
	case n <= tp.cfg.MediumMaxLen:
		return models.BucketMedium
	default:
		return models.BucketLong
	}
}

// ThresholdFor returns the current threshold for a bucket. Callers read it at
// search time so optimizer adjustments take effect on the next query.
func (tp *ThresholdPolicy) ThresholdFor(b models.Bucket) float64 {
	return tp.current.Get(b)
}

// Current returns a copy of all current bucket thresholds.
func (tp *ThresholdPolicy) Current() models.BucketThresholds {
	return tp.current
}

// AdjustAll shifts every bucket threshold by delta, clamped to the configured
// [min, max] range. It returns the thresholds before and after the adjustment.
func (tp *ThresholdPolicy) AdjustAll(delta float64) (old, updated models.BucketThresholds) {
	old = tp.current
	tp.current.Short = tp.clamp(tp.current.Short + delta)
	tp.current.Medium = tp.clamp(tp.current.Medium + delta)
	tp.current.Long = tp.clamp(tp.current.Long + delta)
	return old, tp.current
}

// ResetToInitial restores the configured bootstrap thresholds.
func (tp *ThresholdPolicy) ResetToInitial() {
	tp.current = tp.cfg.Initial
}

func (tp *ThresholdPolicy) clamp(v float64) float64 {
	if v < tp.cfg.Min {
		return tp.cfg.Min
	}
	if v > tp.cfg.Max {
		return tp.cfg.Max
	}
	return v
}
