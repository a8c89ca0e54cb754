package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"adaptive-cache/internal/services/database"
	"adaptive-cache/internal/services/exactcache"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	exactTier *exactcache.ExactCache
	db        *database.DB
}

func NewHealthHandler(exactTier *exactcache.ExactCache, db *database.DB) *HealthHandler {
	return &HealthHandler{
		exactTier: exactTier,
		db:        db,
	}
}

// HealthCheck returns the health status of the service and its dependencies
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	redisStatus := h.checkRedis()
	databaseStatus := h.checkDatabase()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK

	if redisStatus == "unhealthy" || databaseStatus == "unhealthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"redis":    redisStatus,
			"database": databaseStatus,
		},
	})
}

func (h *HealthHandler) checkRedis() string {
	if !h.exactTier.Enabled() {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.exactTier.Health(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkDatabase() string {
	if h.db == nil {
		return "disabled"
	}
	if err := h.db.Ping(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
