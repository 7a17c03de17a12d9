package handlers

import (
	"github.com/gofiber/fiber/v2"

	"solace/internal/models"
	"solace/internal/policy"
	"solace/internal/services"
)

// FeedbackHandler handles suggestion accept/reject submissions
type FeedbackHandler struct {
	engine  *policy.Engine
	metrics *services.Metrics
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(engine *policy.Engine, metrics *services.Metrics) *FeedbackHandler {
	return &FeedbackHandler{engine: engine, metrics: metrics}
}

// Handle applies one feedback signal and returns the updated preference state
func (h *FeedbackHandler) Handle(c *fiber.Ctx) error {
	var req models.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	t := models.SuggestionType(req.SuggestionType)
	h.engine.Feedback(req.SessionID, t, req.Accepted)
	h.metrics.RecordFeedback(req.SuggestionType, req.Accepted)

	weights, accepts, rejects := h.engine.Weights(req.SessionID)
	return c.JSON(fiber.Map{
		"ok":      true,
		"weights": weights,
		"accepts": accepts,
		"rejects": rejects,
	})
}
