package cache

import "adaptive-cache/internal/models"

// AdmissionPolicy decides whether the result of a resolved cache miss is worth
// storing. Rejections are normal policy outcomes with a reason code.
type AdmissionPolicy struct {
	cfg models.AdmissionConfig
}

// NewAdmissionPolicy creates an admission policy from configuration.
func NewAdmissionPolicy(cfg models.AdmissionConfig) *AdmissionPolicy {
	return &AdmissionPolicy{cfg: cfg}
}

// Decide applies the admission rules to a resolved miss. bestSimilarity is the
// similarity of the closest existing entry; hasBest is false when the cache is
// empty. The result is admitted only when every rule holds:
//
//   - tokens within [MinTokens, MaxTokens]: very short responses have low
//     reuse value, very long ones are rarely identical enough to reuse safely
//   - cost at least MinCost: cheap responses are not worth eviction pressure
//   - best existing similarity below CoverageThreshold: a near-identical entry
//     would make this one redundant coverage
func (ap *AdmissionPolicy) Decide(tokens int, cost float64, bestSimilarity float64, hasBest bool) (bool, models.AdmissionReason) {
	if tokens < ap.cfg.MinTokens {
		return false, models.AdmissionTooShort
	}
	if tokens > ap.cfg.MaxTokens {
		return false, models.AdmissionTooLong
	}
	if cost < ap.cfg.MinCost {
		return false, models.AdmissionTooCheap
	}
	if hasBest && bestSimilarity >= ap.cfg.CoverageThreshold {
		return false, models.AdmissionCovered
	}
	return true, models.AdmissionAdmitted
}
