package models

import "time"

// CacheEntry is a stored query/response pair with the counters the value
// scorer reads. The entry is owned by the cache manager; its embedding is
// co-owned by the similarity index under the same id. All mutation happens
// under the cache's exclusion lock.
type CacheEntry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"` // normalized query text
	Embedding []float32 `json:"-"`     // unit-normalized, dimension D
	Response  string    `json:"response"`

	// Cost of the original, uncached computation.
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`

	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`

	// Accumulated on every hit.
	Hits          int     `json:"hits"`
	SimilaritySum float64 `json:"similarity_sum"`
	TokensSaved   int     `json:"tokens_saved"`
	CostSaved     float64 `json:"cost_saved"`
}

// TotalTokens returns the token count of the original computation.
func (e *CacheEntry) TotalTokens() int {
	return e.InputTokens + e.OutputTokens
}

// AvgSimilarity returns the running average of match similarities recorded on
// this entry, or 0 if it was never hit.
func (e *CacheEntry) AvgSimilarity() float64 {
	if e.Hits == 0 {
		return 0
	}
	return e.SimilaritySum / float64(e.Hits)
}

// Age returns the entry age at the given instant.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
