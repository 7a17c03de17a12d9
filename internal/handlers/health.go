package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"solace/internal/session"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store   *session.Store
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *session.Store) *HealthHandler {
	return &HealthHandler{store: store, started: time.Now()}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"sessions":  h.store.Count(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
