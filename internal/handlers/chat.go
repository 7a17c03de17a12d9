package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"solace/internal/logging"
	"solace/internal/services"
)

// maxAudioUpload bounds the voice upload size (Whisper caps at 25MB).
const maxAudioUpload = 25 * 1024 * 1024

// ChatHandler handles the voice chat endpoints
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// parseRequest extracts the multipart chat turn and the pass-through
// provider credential.
func (h *ChatHandler) parseRequest(c *fiber.Ctx) (*services.ChatRequest, error) {
	file, err := c.FormFile("audio")
	if err != nil {
		return nil, fmt.Errorf("no audio file uploaded")
	}
	if file.Size > maxAudioUpload {
		return nil, fmt.Errorf("audio file too large, maximum size is 25MB")
	}

	apiKey := c.Get("X-API-KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing X-API-KEY header")
	}

	sid := c.FormValue("sid")
	if sid == "" {
		return nil, fmt.Errorf("sid is required")
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio upload")
	}

	return &services.ChatRequest{
		SID:       sid,
		PersonaID: c.FormValue("persona"),
		APIKey:    apiKey,
		Filename:  file.Filename,
		Audio:     data,
	}, nil
}

// Chat runs one complete voice turn and returns the full response
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	logger := logging.WithSession(req.SID, req.PersonaID)
	logger.Info("chat turn started", slog.Int("audio_bytes", len(req.Audio)))

	resp, err := h.chat.Process(c.Context(), req)
	if err != nil {
		log.Printf("❌ [CHAT-API] Turn failed for session %s: %v", req.SID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(resp)
}

// ChatStream runs one voice turn, streaming reply tokens as SSE events
// before a final "done" event carrying the full response payload.
func (h *ChatHandler) ChatStream(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	ctx := c.Context()
	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		onToken := func(token string) {
			payload, _ := json.Marshal(fiber.Map{"token": token})
			fmt.Fprintf(w, "event: token\ndata: %s\n\n", payload)
			w.Flush()
		}

		resp, err := h.chat.ProcessStream(ctx, req, onToken)
		if err != nil {
			log.Printf("❌ [CHAT-API] Stream turn failed for session %s: %v", req.SID, err)
			payload, _ := json.Marshal(fiber.Map{"error": err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			w.Flush()
			return
		}

		payload, _ := json.Marshal(resp)
		fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
		w.Flush()
	}))
	return nil
}
