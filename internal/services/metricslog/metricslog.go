// Package metricslog persists one row per served query. The log is optional:
// with no database configured the writer is nil-safe and every call is a
// no-op.
package metricslog

import (
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"adaptive-cache/internal/services/database"
)

// RequestMetric is one served query with its cost and cache outcome.
type RequestMetric struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	RequestID string `gorm:"uniqueIndex" json:"request_id"`
	Provider  string `gorm:"index" json:"provider"`
	Model     string `gorm:"index" json:"model"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	Cost      float64 `json:"cost"`
	CostSaved float64 `json:"cost_saved"`

	LatencyMs float64 `json:"latency_ms"`

	CacheHit        bool    `gorm:"index" json:"cache_hit"`
	CacheTier       string  `json:"cache_tier,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
	ThresholdUsed   float64 `json:"threshold_used,omitempty"`

	BatchID string `gorm:"index" json:"batch_id,omitempty"`

	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Writer appends request metrics to the configured database.
type Writer struct {
	db *database.DB
}

// NewWriter migrates the metrics table and returns the writer. A nil db
// yields a disabled writer.
func NewWriter(db *database.DB) (*Writer, error) {
	if db == nil {
		fiberlog.Info("Metrics log disabled - no database configured")
		return &Writer{}, nil
	}
	if err := db.AutoMigrate(&RequestMetric{}); err != nil {
		return nil, fmt.Errorf("failed to migrate request metrics table: %w", err)
	}
	fiberlog.Infof("Metrics log enabled on %s", db.DriverName())
	return &Writer{db: db}, nil
}

// Enabled reports whether writes actually persist.
func (w *Writer) Enabled() bool {
	return w != nil && w.db != nil
}

// Record appends one metric row. Failures are logged, not returned: the
// metrics log must never fail a query.
func (w *Writer) Record(metric *RequestMetric) {
	if !w.Enabled() {
		return
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	metric.TotalTokens = metric.InputTokens + metric.OutputTokens

	if err := w.db.Create(metric).Error; err != nil {
		fiberlog.Warnf("Metrics log: failed to record request %s: %v", metric.RequestID, err)
	}
}

// Recent returns the newest rows, most recent first.
func (w *Writer) Recent(limit int) ([]RequestMetric, error) {
	if !w.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var rows []RequestMetric
	if err := w.db.Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query request metrics: %w", err)
	}
	return rows, nil
}
