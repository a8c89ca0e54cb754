package cache

import (
	"time"

	"adaptive-cache/internal/models"
)

// Optimizer is the closed-loop threshold controller. It accumulates a rolling
// window of request/hit counts and, once per configured interval, nudges every
// bucket threshold one step toward the target hit rate. A simple proportional
// controller with clamped output keeps convergence predictable.
//
// Like ThresholdPolicy, the optimizer relies on the owning cache's exclusion
// lock and performs no locking of its own.
type Optimizer struct {
	cfg models.OptimizerConfig

	windowRequests int
	windowHits     int
	cycles         int
	lastAdjusted   *time.Time
	decisions      []models.OptimizerDecision
}

// NewOptimizer creates an optimizer with reset window counters.
func NewOptimizer(cfg models.OptimizerConfig) *Optimizer {
	return &Optimizer{cfg: cfg}
}

// Observe counts one request, and the hit flag, into the current window.
func (o *Optimizer) Observe(hit bool) {
	o.windowRequests++
	if hit {
		o.windowHits++
	}
}

// Due reports whether the current window has accumulated a full interval.
func (o *Optimizer) Due() bool {
	return o.windowRequests >= o.cfg.Interval
}

// RunCycle computes the observed hit rate for the window, applies at most one
// threshold step in the indicated direction, records the decision and resets
// the window counters. Counters reset regardless of whether an adjustment was
// made.
func (o *Optimizer) RunCycle(thresholds *ThresholdPolicy, now time.Time) models.OptimizerDecision {
	observed := 0.0
	if o.windowRequests > 0 {
		observed = float64(o.windowHits) / float64(o.windowRequests)
	}

	o.cycles++

	decision := models.OptimizerDecision{
		Cycle:           o.cycles,
		ObservedHitRate: observed,
		TargetHitRate:   o.cfg.TargetHitRate,
		WindowRequests:  o.windowRequests,
		WindowHits:      o.windowHits,
		AdjustedAt:      now,
	}

	switch {
	case observed < o.cfg.TargetHitRate-o.cfg.Tolerance:
		// Too few hits: relax thresholds for more lenient matching.
		decision.Direction = models.AdjustmentRelaxed
		decision.OldThresholds, decision.NewThresholds = thresholds.AdjustAll(-o.cfg.Step)
	case observed > o.cfg.TargetHitRate+o.cfg.Tolerance:
		// Too many hits: tighten thresholds for better match quality.
		decision.Direction = models.AdjustmentTightened
		decision.OldThresholds, decision.NewThresholds = thresholds.AdjustAll(o.cfg.Step)
	default:
		decision.Direction = models.AdjustmentHeld
		decision.OldThresholds = thresholds.Current()
		decision.NewThresholds = decision.OldThresholds
	}

	o.windowRequests = 0
	o.windowHits = 0
	o.lastAdjusted = &now

	o.decisions = append(o.decisions, decision)
	if len(o.decisions) > o.cfg.HistorySize {
		o.decisions = o.decisions[len(o.decisions)-o.cfg.HistorySize:]
	}

	return decision
}

// Cycles returns the number of completed optimization cycles.
func (o *Optimizer) Cycles() int {
	return o.cycles
}

// ResetWindow zeroes the rolling window counters without touching cycle
// history. Used by full reset, never by Clear.
func (o *Optimizer) ResetWindow() {
	o.windowRequests = 0
	o.windowHits = 0
}

// Summary reports the optimizer's position in its cycle plus recent decisions.
func (o *Optimizer) Summary(thresholds *ThresholdPolicy) models.OptimizerSummary {
	const recentLimit = 5

	recent := o.decisions
	if len(recent) > recentLimit {
		recent = recent[len(recent)-recentLimit:]
	}
	decisions := make([]models.OptimizerDecision, len(recent))
	copy(decisions, recent)

	return models.OptimizerSummary{
		Cycles:             o.cycles,
		LastAdjustedAt:     o.lastAdjusted,
		RequestsSinceCycle: o.windowRequests,
		RequestsUntilCycle: o.cfg.Interval - o.windowRequests,
		TargetHitRate:      o.cfg.TargetHitRate,
		CurrentThresholds:  thresholds.Current(),
		RecentDecisions:    decisions,
	}
}
