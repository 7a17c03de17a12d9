package models

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Frequency settings control how often proactive suggestions may fire.
const (
	FrequencyNormal = "normal"
	FrequencyLow    = "low"
)

// Turn is a single conversation turn within a session.
type Turn struct {
	ID        string                 `json:"id"`
	Role      string                 `json:"role"`
	Text      string                 `json:"text"`
	Timestamp int64                  `json:"ts"` // unix milliseconds
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// EmotionSample is one classified emotion observation for a session.
// Confidence and Intensity are both in [0,1].
type EmotionSample struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"conf"`
	Intensity  float64 `json:"intensity"`
	Timestamp  int64   `json:"ts"` // unix milliseconds
}

// SessionSettings are the user-controlled proactive preferences.
type SessionSettings struct {
	ProactiveEnabled bool   `json:"proactive"`
	Frequency        string `json:"frequency"` // "normal" or "low"
}

// DefaultSessionSettings returns the settings a fresh session starts with.
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		ProactiveEnabled: true,
		Frequency:        FrequencyNormal,
	}
}

// SuggestionType tags the category of proactive help offered to the user.
type SuggestionType string

const (
	SuggestionMusic     SuggestionType = "music"
	SuggestionBreathing SuggestionType = "breathing"
	SuggestionTimer     SuggestionType = "timer"
	SuggestionMemo      SuggestionType = "memo"
	SuggestionInfo      SuggestionType = "info"
)

// AllSuggestionTypes is the fixed suggestion vocabulary.
var AllSuggestionTypes = []SuggestionType{
	SuggestionMusic,
	SuggestionBreathing,
	SuggestionTimer,
	SuggestionMemo,
	SuggestionInfo,
}

// IsValidSuggestionType reports whether t is part of the vocabulary.
func IsValidSuggestionType(t SuggestionType) bool {
	for _, s := range AllSuggestionTypes {
		if s == t {
			return true
		}
	}
	return false
}
