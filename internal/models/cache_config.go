package models

import "time"

// Bucket is a query-length category used to select a similarity threshold.
type Bucket string

const (
	BucketShort  Bucket = "short"
	BucketMedium Bucket = "medium"
	BucketLong   Bucket = "long"
)

// BucketThresholds holds one similarity threshold per query-length bucket.
type BucketThresholds struct {
	Short  float64 `json:"short" yaml:"short"`
	Medium float64 `json:"medium" yaml:"medium"`
	Long   float64 `json:"long" yaml:"long"`
}

// Get returns the threshold for the given bucket.
func (bt BucketThresholds) Get(b Bucket) float64 {
	switch b {
	case BucketShort:
		return bt.Short
	case BucketMedium:
		return bt.Medium
	default:
		return bt.Long
	}
}

// ThresholdConfig configures the adaptive per-bucket similarity thresholds.
// Initial values bootstrap the policy; the optimizer mutates the live values
// within [Min, Max].
type ThresholdConfig struct {
	Initial BucketThresholds `json:"initial" yaml:"initial"`
	Min     float64          `json:"min,omitzero" yaml:"min"`
	Max     float64          `json:"max,omitzero" yaml:"max"`

	// Bucket boundaries in characters of the normalized query.
	ShortMaxLen  int `json:"short_max_len,omitzero" yaml:"short_max_len"`
	MediumMaxLen int `json:"medium_max_len,omitzero" yaml:"medium_max_len"`
}

// ScoringConfig configures the value score used to rank entries for eviction.
// Weights should sum to 1; each term is clamped to [0,1] before weighting.
type ScoringConfig struct {
	WeightFrequency float64 `json:"weight_frequency,omitzero" yaml:"weight_frequency"`
	WeightRecency   float64 `json:"weight_recency,omitzero" yaml:"weight_recency"`
	WeightQuality   float64 `json:"weight_quality,omitzero" yaml:"weight_quality"`
	WeightSavings   float64 `json:"weight_savings,omitzero" yaml:"weight_savings"`

	FrequencyCap    float64       `json:"frequency_cap,omitzero" yaml:"frequency_cap"`
	RecencyHalfLife time.Duration `json:"recency_half_life,omitzero" yaml:"recency_half_life"`
	SavingsCap      float64       `json:"savings_cap,omitzero" yaml:"savings_cap"`
}

// AdmissionConfig configures the policy deciding whether a resolved miss is
// worth storing.
type AdmissionConfig struct {
	MinTokens         int     `json:"min_tokens,omitzero" yaml:"min_tokens"`
	MaxTokens         int     `json:"max_tokens,omitzero" yaml:"max_tokens"`
	MinCost           float64 `json:"min_cost,omitzero" yaml:"min_cost"`
	CoverageThreshold float64 `json:"coverage_threshold,omitzero" yaml:"coverage_threshold"`
}

// EvictionConfig configures batch eviction.
type EvictionConfig struct {
	// Fraction of capacity evicted per batch (minimum one entry).
	Fraction float64 `json:"fraction,omitzero" yaml:"fraction"`
	// HistorySize bounds the retained eviction record log.
	HistorySize int `json:"history_size,omitzero" yaml:"history_size"`
}

// OptimizerConfig configures the closed-loop threshold controller.
type OptimizerConfig struct {
	// Interval is the number of requests per observation window.
	Interval      int     `json:"interval,omitzero" yaml:"interval"`
	TargetHitRate float64 `json:"target_hit_rate,omitzero" yaml:"target_hit_rate"`
	Tolerance     float64 `json:"tolerance,omitzero" yaml:"tolerance"`
	Step          float64 `json:"step,omitzero" yaml:"step"`
	// HistorySize bounds the retained adjustment decision log.
	HistorySize int `json:"history_size,omitzero" yaml:"history_size"`
}

// SemanticCacheConfig is the full configuration of the adaptive semantic cache.
type SemanticCacheConfig struct {
	Dimension  int             `json:"dimension,omitzero" yaml:"dimension"`
	Capacity   int             `json:"capacity,omitzero" yaml:"capacity"`
	Thresholds ThresholdConfig `json:"thresholds" yaml:"thresholds"`
	Scoring    ScoringConfig   `json:"scoring" yaml:"scoring"`
	Admission  AdmissionConfig `json:"admission" yaml:"admission"`
	Eviction   EvictionConfig  `json:"eviction" yaml:"eviction"`
	Optimizer  OptimizerConfig `json:"optimizer" yaml:"optimizer"`
}

// DefaultSemanticCacheConfig returns the cache defaults.
func DefaultSemanticCacheConfig() SemanticCacheConfig {
	return SemanticCacheConfig{
		Dimension: 768,
		Capacity:  1000,
		Thresholds: ThresholdConfig{
			Initial:      BucketThresholds{Short: 0.92, Medium: 0.88, Long: 0.84},
			Min:          0.70,
			Max:          0.98,
			ShortMaxLen:  50,
			MediumMaxLen: 200,
		},
		Scoring: ScoringConfig{
			WeightFrequency: 0.40,
			WeightRecency:   0.20,
			WeightQuality:   0.20,
			WeightSavings:   0.20,
			FrequencyCap:    10,
			RecencyHalfLife: time.Hour,
			SavingsCap:      1000,
		},
		Admission: AdmissionConfig{
			MinTokens:         10,
			MaxTokens:         4000,
			MinCost:           0.000001,
			CoverageThreshold: 0.98,
		},
		Eviction: EvictionConfig{
			Fraction:    0.10,
			HistorySize: 500,
		},
		Optimizer: OptimizerConfig{
			Interval:      50,
			TargetHitRate: 0.40,
			Tolerance:     0.05,
			Step:          0.01,
			HistorySize:   100,
		},
	}
}

// ApplyDefaults fills zero-valued fields from DefaultSemanticCacheConfig.
func (c *SemanticCacheConfig) ApplyDefaults() {
	d := DefaultSemanticCacheConfig()
	if c.Dimension <= 0 {
		c.Dimension = d.Dimension
	}
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.Thresholds.Initial == (BucketThresholds{}) {
		c.Thresholds.Initial = d.Thresholds.Initial
	}
	if c.Thresholds.Min <= 0 {
		c.Thresholds.Min = d.Thresholds.Min
	}
	if c.Thresholds.Max <= 0 {
		c.Thresholds.Max = d.Thresholds.Max
	}
	if c.Thresholds.ShortMaxLen <= 0 {
		c.Thresholds.ShortMaxLen = d.Thresholds.ShortMaxLen
	}
	if c.Thresholds.MediumMaxLen <= 0 {
		c.Thresholds.MediumMaxLen = d.Thresholds.MediumMaxLen
	}
	if c.Scoring.WeightFrequency == 0 && c.Scoring.WeightRecency == 0 &&
		c.Scoring.WeightQuality == 0 && c.Scoring.WeightSavings == 0 {
		c.Scoring.WeightFrequency = d.Scoring.WeightFrequency
		c.Scoring.WeightRecency = d.Scoring.WeightRecency
		c.Scoring.WeightQuality = d.Scoring.WeightQuality
		c.Scoring.WeightSavings = d.Scoring.WeightSavings
	}
	if c.Scoring.FrequencyCap <= 0 {
		c.Scoring.FrequencyCap = d.Scoring.FrequencyCap
	}
	if c.Scoring.RecencyHalfLife <= 0 {
		c.Scoring.RecencyHalfLife = d.Scoring.RecencyHalfLife
	}
	if c.Scoring.SavingsCap <= 0 {
		c.Scoring.SavingsCap = d.Scoring.SavingsCap
	}
	if c.Admission.MinTokens <= 0 {
		c.Admission.MinTokens = d.Admission.MinTokens
	}
	if c.Admission.MaxTokens <= 0 {
		c.Admission.MaxTokens = d.Admission.MaxTokens
	}
	if c.Admission.MinCost <= 0 {
		c.Admission.MinCost = d.Admission.MinCost
	}
	if c.Admission.CoverageThreshold <= 0 {
		c.Admission.CoverageThreshold = d.Admission.CoverageThreshold
	}
	if c.Eviction.Fraction <= 0 {
		c.Eviction.Fraction = d.Eviction.Fraction
	}
	if c.Eviction.HistorySize <= 0 {
		c.Eviction.HistorySize = d.Eviction.HistorySize
	}
	if c.Optimizer.Interval <= 0 {
		c.Optimizer.Interval = d.Optimizer.Interval
	}
	if c.Optimizer.TargetHitRate <= 0 {
		c.Optimizer.TargetHitRate = d.Optimizer.TargetHitRate
	}
	if c.Optimizer.Tolerance <= 0 {
		c.Optimizer.Tolerance = d.Optimizer.Tolerance
	}
	if c.Optimizer.Step <= 0 {
		c.Optimizer.Step = d.Optimizer.Step
	}
	if c.Optimizer.HistorySize <= 0 {
		c.Optimizer.HistorySize = d.Optimizer.HistorySize
	}
}

// ExactCacheConfig configures the optional Redis-backed exact-match tier that
// sits in front of the semantic tier.
type ExactCacheConfig struct {
	Enabled  bool          `json:"enabled,omitzero" yaml:"enabled"`
	RedisURL string        `json:"redis_url,omitzero" yaml:"redis_url"`
	TTL      time.Duration `json:"ttl,omitzero" yaml:"ttl"`
}
