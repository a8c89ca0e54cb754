package cache

import (
	"strings"
	"testing"

	"adaptive-cache/internal/models"

	"github.com/stretchr/testify/assert"
)

func thresholdConfig() models.ThresholdConfig {
	return models.DefaultSemanticCacheConfig().Thresholds
}

func TestBucketFor(t *testing.T) {
	tp := NewThresholdPolicy(thresholdConfig())

	tests := []struct {
		length int
		want   models.Bucket
	}{
		{0, models.BucketShort},
		{49, models.BucketShort},
		{50, models.BucketMedium},
		{200, models.BucketMedium},
		{201, models.BucketLong},
		{1000, models.BucketLong},
	}
	for _, tt := range tests {
		got := tp.BucketFor(strings.Repeat("x", tt.length))
		assert.Equal(t, tt.want, got, "length %d", tt.length)
	}
}

func TestThresholdAdjustment(t *testing.T) {
	t.Run("AdjustAll", func(t *testing.T) {
		tp := NewThresholdPolicy(thresholdConfig())

		old, updated := tp.AdjustAll(-0.01)
		assert.InDelta(t, 0.92, old.Short, 1e-9)
		assert.InDelta(t, 0.91, updated.Short, 1e-9)
		assert.InDelta(t, 0.87, updated.Medium, 1e-9)
		assert.InDelta(t, 0.83, updated.Long, 1e-9)
	})

	t.Run("ClampsToBounds", func(t *testing.T) {
		tp := NewThresholdPolicy(thresholdConfig())

		for range 100 {
			tp.AdjustAll(-0.05)
		}
		assert.InDelta(t, 0.70, tp.Current().Short, 1e-9)

		for range 100 {
			tp.AdjustAll(0.05)
		}
		assert.InDelta(t, 0.98, tp.Current().Long, 1e-9)
	})

	t.Run("ResetToInitial", func(t *testing.T) {
		cfg := thresholdConfig()
		tp := NewThresholdPolicy(cfg)
		tp.AdjustAll(-0.05)
		tp.ResetToInitial()
		assert.Equal(t, cfg.Initial, tp.Current())
	})
}

func TestThresholdFor(t *testing.T) {
	tp := NewThresholdPolicy(thresholdConfig())

	assert.InDelta(t, 0.92, tp.ThresholdFor(models.BucketShort), 1e-9)
	assert.InDelta(t, 0.88, tp.ThresholdFor(models.BucketMedium), 1e-9)
	assert.InDelta(t, 0.84, tp.ThresholdFor(models.BucketLong), 1e-9)
}
