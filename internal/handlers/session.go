package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"solace/internal/models"
	"solace/internal/session"
)

// SessionHandler handles session lifecycle and preference requests
type SessionHandler struct {
	store *session.Store
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// Create ensures a session exists, minting a fresh id when none is given
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req models.NewSessionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sid := req.SID
	if sid == "" {
		sid = uuid.New().String()
	}

	st := h.store.Get(sid)
	st.Lock()
	settings := st.Settings
	st.Unlock()

	return c.JSON(fiber.Map{
		"sid":      sid,
		"settings": settings,
	})
}

// UpdateSettings applies partial proactive-preference changes
func (h *SessionHandler) UpdateSettings(c *fiber.Ctx) error {
	var req models.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.SID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sid is required",
		})
	}

	settings := h.store.UpdateSettings(req.SID, req.Proactive, req.Frequency)
	return c.JSON(fiber.Map{
		"sid":      req.SID,
		"settings": settings,
	})
}

// PushEmotion records an externally classified emotion sample
func (h *SessionHandler) PushEmotion(c *fiber.Ctx) error {
	var req models.EmotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.SID == "" || req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sid and label are required",
		})
	}

	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	h.store.PushEmotion(req.SID, req.Label, req.Confidence, req.Intensity, ts)
	return c.JSON(fiber.Map{"ok": true})
}

// LogEvent accepts fire-and-forget frontend telemetry
func (h *SessionHandler) LogEvent(c *fiber.Ctx) error {
	var ev models.ClientEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	log.Printf("📋 [EVENT] Session %s: %s %v", ev.SID, ev.Name, ev.Attrs)
	return c.JSON(fiber.Map{"ok": true})
}
