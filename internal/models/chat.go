package models

// ChatResponse is the full payload returned by POST /api/chat.
type ChatResponse struct {
	UserText       string             `json:"user_text"`
	AIText         string             `json:"ai_text"`
	Audio          string             `json:"audio"` // base64 TTS audio, empty when synthesis failed
	EmotionPercent map[string]float64 `json:"emotion_percent"`
	TopEmotion     string             `json:"top_emotion"`
	Link           string             `json:"link,omitempty"`
	ProactiveCard  *SuggestionCard    `json:"proactive_card,omitempty"`
}

// NewSessionRequest creates or ensures a session.
type NewSessionRequest struct {
	SID string `json:"sid"`
}

// SettingsRequest updates a session's proactive preferences.
type SettingsRequest struct {
	SID       string  `json:"sid"`
	Proactive *bool   `json:"proactive"`
	Frequency *string `json:"frequency"`
}

// EmotionRequest pushes an externally classified emotion sample.
type EmotionRequest struct {
	SID        string  `json:"sid"`
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"`
	Intensity  float64 `json:"intensity"`
	Timestamp  int64   `json:"ts"` // unix milliseconds, 0 means "now"
}

// FeedbackRequest reports whether the user accepted a suggestion.
type FeedbackRequest struct {
	SessionID      string `json:"session_id"`
	SuggestionType string `json:"suggestion_type"`
	Accepted       bool   `json:"accepted"`
}

// ClientEvent is a fire-and-forget frontend telemetry event
// (card shown, button clicked, card dismissed).
type ClientEvent struct {
	SID   string                 `json:"sid"`
	Name  string                 `json:"name"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}
