package models

// CacheMetrics accumulates process-lifetime counters for the cache. It is
// guarded by the cache's exclusion lock; callers receive copies.
type CacheMetrics struct {
	TotalRequests int64 `json:"total_requests"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`

	TokensUsed  int64   `json:"llm_tokens_used"`
	TokensSaved int64   `json:"llm_tokens_saved"`
	TotalCost   float64 `json:"total_cost"`
	CostSaved   float64 `json:"total_cost_saved"`

	CacheSize int64 `json:"cache_size"`
	Evictions int64 `json:"evictions"`
}

// HitRate returns hits over total requests, 0 when no requests were seen.
func (m CacheMetrics) HitRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(m.TotalRequests)
}

// CostReduction returns the saved share of total potential cost, as a percentage.
func (m CacheMetrics) CostReduction() float64 {
	potential := m.TotalCost + m.CostSaved
	if potential == 0 {
		return 0
	}
	return m.CostSaved / potential * 100
}

// CacheStats is the detailed statistics payload exposed by the stats endpoint.
type CacheStats struct {
	Size              int              `json:"size"`
	Capacity          int              `json:"capacity"`
	Thresholds        BucketThresholds `json:"thresholds"`
	OptimizerCycles   int              `json:"optimizer_cycles"`
	EvictionCount     int64            `json:"eviction_count"`
	AvgHitsPerEntry   float64          `json:"avg_hits_per_entry"`
	AvgAgeSeconds     float64          `json:"avg_age_seconds"`
	TopQueries        []TopQuery       `json:"top_queries"`
	ValueDistribution ValueStats       `json:"value_distribution"`
}

// TopQuery summarizes one of the most frequently hit entries.
type TopQuery struct {
	Query         string  `json:"query"`
	Hits          int     `json:"hits"`
	TokensSaved   int     `json:"tokens_saved"`
	AvgSimilarity float64 `json:"avg_similarity"`
}

// ValueStats summarizes the distribution of value scores across entries.
type ValueStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}
