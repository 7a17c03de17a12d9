package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"solace/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port           string
	AllowedOrigins string

	// Provider endpoint and models (OpenAI-compatible)
	ProviderBaseURL   string
	STTModel          string
	ChatModel         string
	SearchModel       string
	TTSModel          string
	ProviderRateLimit float64 // outbound requests/second, 0 disables

	// Emotion classification
	EmotionVocabulary []string // fixed label set given to the classifier
	NegativeEmotions  []string // labels that route the reply through web search

	// Proactive policy thresholds
	SadnessLabel     string
	AngerLabel       string
	SadnessThreshold float64
	AngerThreshold   float64
	SilenceWindow    time.Duration
	CooldownWindow   time.Duration

	// Session store
	HistoryWindow int           // bounded turns/emotions per session
	SessionTTL    time.Duration // 0 keeps sessions for the process lifetime

	// Audio transcoding
	FFmpegPath string

	// Personas
	PersonasPath string

	// Turn log shipping (skipped entirely when endpoint or token is unset)
	TurnLogEndpoint string
	TurnLogToken    string

	// Session stats job interval
	StatsInterval time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "7860"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),

		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "https://api.openai.com/v1"),
		STTModel:          getEnv("STT_MODEL", "whisper-1"),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o"),
		SearchModel:       getEnv("SEARCH_MODEL", "gpt-4o-mini-search-preview"),
		TTSModel:          getEnv("TTS_MODEL", "gpt-4o-mini-tts"),
		ProviderRateLimit: getFloatEnv("PROVIDER_RATE_LIMIT", 5),

		EmotionVocabulary: getListEnv("EMOTION_VOCABULARY", "joy,anger,sadness,pleasure,love,disgust,desire"),
		NegativeEmotions:  getListEnv("NEGATIVE_EMOTIONS", "anger,sadness,disgust"),

		SadnessLabel:     getEnv("SADNESS_LABEL", "sadness"),
		AngerLabel:       getEnv("ANGER_LABEL", "anger"),
		SadnessThreshold: getFloatEnv("SADNESS_THRESHOLD", 0.5),
		AngerThreshold:   getFloatEnv("ANGER_THRESHOLD", 0.6),
		SilenceWindow:    getMillisEnv("SILENCE_MS", 15000),
		CooldownWindow:   getMillisEnv("COOLDOWN_MS", 45000),

		HistoryWindow: getIntEnv("HISTORY_WINDOW", 10),
		SessionTTL:    getMillisEnv("SESSION_TTL_MS", 0),

		FFmpegPath: getEnv("FFMPEG_PATH", ""),

		PersonasPath: getEnv("PERSONAS_PATH", "personas.json"),

		TurnLogEndpoint: getEnv("TURNLOG_ENDPOINT", ""),
		TurnLogToken:    getEnv("TURNLOG_TOKEN", ""),

		StatsInterval: time.Duration(getIntEnv("STATS_INTERVAL_MINUTES", 10)) * time.Minute,
	}
}

// LoadPersonas loads the persona registry from a JSON file.
func LoadPersonas(filePath string) (*models.PersonasConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}

	var config models.PersonasConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse personas JSON: %w", err)
	}
	if len(config.Personas) == 0 {
		return nil, fmt.Errorf("personas file %s defines no personas", filePath)
	}
	return &config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultMillis int) time.Duration {
	return time.Duration(getIntEnv(key, defaultMillis)) * time.Millisecond
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
