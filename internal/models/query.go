package models

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query       string  `json:"query"`
	MaxTokens   int     `json:"max_tokens,omitzero"`
	Temperature float64 `json:"temperature,omitzero"`
}

// Cache tiers reported in query responses.
const (
	CacheTierExact    = "exact"
	CacheTierSemantic = "semantic"
)

// QueryResponse is the body returned by POST /v1/query.
type QueryResponse struct {
	Response        string   `json:"response"`
	Cached          bool     `json:"cached"`
	CacheTier       string   `json:"cache_tier,omitzero"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	TokensUsed      int      `json:"tokens_used"`
	TokensSaved     int      `json:"tokens_saved"`
	Cost            float64  `json:"cost"`
	CostSaved       float64  `json:"cost_saved"`
	LatencyMs       float64  `json:"latency_ms"`
	ThresholdUsed   float64  `json:"threshold_used"`
	EntryID         string   `json:"entry_id,omitzero"`
}

// QueryResult is the cache core's answer to a single lookup.
type QueryResult struct {
	Hit bool

	// Populated on a hit.
	EntryID     string
	Response    string
	Similarity  float64
	TokensSaved int
	CostSaved   float64

	// Populated on every lookup.
	Bucket         Bucket
	ThresholdUsed  float64
	BestSimilarity float64 // best similarity seen, hit or not; 0 on empty cache
}

// AdmissionReason encodes why a miss result was or was not admitted.
type AdmissionReason string

const (
	AdmissionAdmitted AdmissionReason = "admitted"
	AdmissionTooShort AdmissionReason = "too_short"
	AdmissionTooLong  AdmissionReason = "too_long"
	AdmissionTooCheap AdmissionReason = "too_cheap"
	AdmissionCovered  AdmissionReason = "covered"
)

// AdmissionDecision is the outcome of recording a resolved miss. Rejections
// are normal policy outcomes, not errors.
type AdmissionDecision struct {
	Admitted       bool            `json:"admitted"`
	Reason         AdmissionReason `json:"reason"`
	EntryID        string          `json:"entry_id,omitzero"`
	BestSimilarity float64         `json:"best_similarity"`
	Evicted        int             `json:"evicted"` // entries evicted to free capacity
}
