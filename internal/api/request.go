package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"adaptive-cache/internal/models"
)

const (
	requestIDLocalKey  = "request_id"
	maxRequestIDLength = 256
)

// getRequestID returns the caller-supplied X-Request-ID or generates one,
// cached in fiber locals so every log line of a request shares the same id.
func getRequestID(c *fiber.Ctx) string {
	if cached, ok := c.Locals(requestIDLocalKey).(string); ok && cached != "" {
		return cached
	}

	requestID := strings.TrimSpace(c.Get("X-Request-ID"))
	if len(requestID) > maxRequestIDLength {
		requestID = requestID[:maxRequestIDLength]
	}
	if requestID == "" {
		requestID = "req_" + uuid.NewString()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

// respondError maps structured errors to their HTTP status and a stable JSON
// shape. Anything that is not an AppError becomes a 500.
func respondError(c *fiber.Ctx, err error, requestID string) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError("internal server error", err)
	}

	fiberlog.Errorf("[%s] Error %d (%s): %v", requestID, appErr.GetStatusCode(), appErr.Type, err)

	return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{
		"error": fiber.Map{
			"type":    appErr.Type,
			"message": appErr.Message,
		},
	})
}
