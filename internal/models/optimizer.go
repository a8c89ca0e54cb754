package models

import "time"

// Threshold adjustment directions.
const (
	AdjustmentRelaxed   = "relaxed"
	AdjustmentTightened = "tightened"
	AdjustmentHeld      = "held"
)

// OptimizerDecision records one optimizer cycle for observability.
type OptimizerDecision struct {
	Cycle           int              `json:"cycle"`
	ObservedHitRate float64          `json:"observed_hit_rate"`
	TargetHitRate   float64          `json:"target_hit_rate"`
	Direction       string           `json:"direction"`
	OldThresholds   BucketThresholds `json:"old_thresholds"`
	NewThresholds   BucketThresholds `json:"new_thresholds"`
	WindowRequests  int              `json:"window_requests"`
	WindowHits      int              `json:"window_hits"`
	AdjustedAt      time.Time        `json:"adjusted_at"`
}

// OptimizerSummary describes the optimizer's current position in its cycle.
type OptimizerSummary struct {
	Cycles             int                 `json:"cycles"`
	LastAdjustedAt     *time.Time          `json:"last_adjusted_at,omitempty"`
	RequestsSinceCycle int                 `json:"requests_since_cycle"`
	RequestsUntilCycle int                 `json:"requests_until_cycle"`
	TargetHitRate      float64             `json:"target_hit_rate"`
	CurrentThresholds  BucketThresholds    `json:"current_thresholds"`
	RecentDecisions    []OptimizerDecision `json:"recent_decisions"`
}
