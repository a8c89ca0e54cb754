package models

import "time"

// Eviction reasons recorded in EvictionRecord.
const (
	EvictionReasonLowValue = "low_value_score"
)

// EvictionRecord is an immutable snapshot of an entry at the moment it was
// evicted, kept in a bounded history log for observability.
type EvictionRecord struct {
	EntryID       string        `json:"entry_id"`
	Query         string        `json:"query"`
	ValueScore    float64       `json:"value_score"`
	Hits          int           `json:"hits"`
	Age           time.Duration `json:"age"`
	AvgSimilarity float64       `json:"avg_similarity"`
	TokensSaved   int           `json:"tokens_saved"`
	EvictedAt     time.Time     `json:"evicted_at"`
	Reason        string        `json:"reason"`
}
