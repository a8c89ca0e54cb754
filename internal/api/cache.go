package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"adaptive-cache/internal/cache"
	"adaptive-cache/internal/models"
	"adaptive-cache/internal/services/exactcache"
	"adaptive-cache/internal/services/metricslog"
)

// CacheHandler exposes the cache's observability and administration surface.
type CacheHandler struct {
	cache      *cache.SemanticCache
	exactTier  *exactcache.ExactCache
	metricsLog *metricslog.Writer
}

func NewCacheHandler(semanticCache *cache.SemanticCache, exactTier *exactcache.ExactCache, metricsLog *metricslog.Writer) *CacheHandler {
	return &CacheHandler{
		cache:      semanticCache,
		exactTier:  exactTier,
		metricsLog: metricsLog,
	}
}

// Metrics returns the cumulative counters: GET /v1/metrics.
func (h *CacheHandler) Metrics(c *fiber.Ctx) error {
	metrics := h.cache.Metrics()
	return c.JSON(fiber.Map{
		"metrics":        metrics,
		"hit_rate":       metrics.HitRate(),
		"cost_reduction": metrics.CostReduction(),
		"size":           h.cache.Size(),
	})
}

// Stats returns the derived view over the live entry table: GET /v1/cache/stats.
func (h *CacheHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stats":      h.cache.Stats(),
		"thresholds": h.cache.Thresholds(),
	})
}

// Entries lists cached entries without embeddings: GET /v1/cache/entries.
func (h *CacheHandler) Entries(c *fiber.Ctx) error {
	limit := parseLimit(c, 100)
	return c.JSON(fiber.Map{
		"entries": h.cache.Entries(limit),
		"total":   h.cache.Size(),
	})
}

// EvictionHistory lists recent evictions, newest first: GET /v1/evictions/history.
func (h *CacheHandler) EvictionHistory(c *fiber.Ctx) error {
	limit := parseLimit(c, 50)
	return c.JSON(fiber.Map{
		"evictions": h.cache.EvictionHistory(limit),
	})
}

// OptimizerHistory reports the threshold optimizer's state: GET /v1/optimizer/history.
func (h *CacheHandler) OptimizerHistory(c *fiber.Ctx) error {
	return c.JSON(h.cache.OptimizerSummary())
}

// RecentRequests lists the newest persisted request metrics: GET /v1/requests/recent.
func (h *CacheHandler) RecentRequests(c *fiber.Ctx) error {
	requestID := getRequestID(c)

	if !h.metricsLog.Enabled() {
		return respondError(c, models.NewValidationError("metrics log not configured", nil), requestID)
	}

	rows, err := h.metricsLog.Recent(parseLimit(c, 100))
	if err != nil {
		return respondError(c, models.NewInternalError("failed to read request metrics", err), requestID)
	}
	return c.JSON(fiber.Map{"requests": rows})
}

// Clear drops entries but keeps the learned thresholds and the optimizer
// window: POST /v1/cache/clear.
func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	requestID := getRequestID(c)

	h.cache.Clear()
	if err := h.exactTier.Clear(context.Background()); err != nil {
		fiberlog.Warnf("[%s] exact tier clear failed: %v", requestID, err)
	}

	fiberlog.Infof("[%s] cache cleared (thresholds and optimizer state kept)", requestID)
	return c.JSON(fiber.Map{"status": "cleared", "size": h.cache.Size()})
}

// Reset restores the cache to its initial state, learned state included:
// POST /v1/cache/reset.
func (h *CacheHandler) Reset(c *fiber.Ctx) error {
	requestID := getRequestID(c)

	h.cache.Reset()
	if err := h.exactTier.Clear(context.Background()); err != nil {
		fiberlog.Warnf("[%s] exact tier clear failed: %v", requestID, err)
	}

	fiberlog.Infof("[%s] cache reset to initial state", requestID)
	return c.JSON(fiber.Map{"status": "reset", "thresholds": h.cache.Thresholds()})
}

func parseLimit(c *fiber.Ctx, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
