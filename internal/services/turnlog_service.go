package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"solace/internal/logging"
	"solace/internal/models"
)

// TurnLog is the per-turn record shipped to the log sink.
type TurnLog struct {
	Timestamp      string                 `json:"timestamp"`
	SessionID      string                 `json:"session_id"`
	Persona        string                 `json:"persona"`
	UserText       string                 `json:"user_text"`
	EmotionPercent map[string]float64     `json:"emotion_percent"`
	TopEmotion     string                 `json:"top_emotion"`
	AIText         string                 `json:"ai_text"`
	ProactiveCard  *models.SuggestionCard `json:"proactive_card,omitempty"`
}

// TurnLogService ships turn records to an external blob endpoint. When
// the endpoint or token is not configured, uploads are skipped with a
// warning instead of failing the turn.
type TurnLogService struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewTurnLogService creates the turn log shipper.
func NewTurnLogService(endpoint, token string) *TurnLogService {
	if endpoint == "" || token == "" {
		log.Printf("⚠️  [TURNLOG] TURNLOG_ENDPOINT/TURNLOG_TOKEN not set - turn logs will not be shipped")
	}
	return &TurnLogService{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Upload ships one turn record. Callers run it in a goroutine; failures
// are logged, never propagated into the chat response path.
func (s *TurnLogService) Upload(ctx context.Context, entry *TurnLog) {
	if s.endpoint == "" || s.token == "" {
		return
	}

	// User text may contain contact details; redact before it leaves the process.
	entry.UserText = logging.RedactPII(entry.UserText)

	body, err := json.Marshal(map[string]interface{}{
		"name": fmt.Sprintf("logs/%s_%s.json", time.Now().UTC().Format("2006-01-02T15-04-05Z"), entry.Persona),
		"data": entry,
	})
	if err != nil {
		log.Printf("⚠️  [TURNLOG] Failed to marshal turn log: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("⚠️  [TURNLOG] Failed to create upload request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️  [TURNLOG] Upload failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("⚠️  [TURNLOG] Upload rejected with status %d", resp.StatusCode)
		return
	}
	log.Printf("📤 [TURNLOG] Shipped turn log for session %s", entry.SessionID)
}
