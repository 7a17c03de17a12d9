package models

// Persona describes one of the selectable companion characters.
type Persona struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Voice         string `json:"voice"`          // TTS voice name
	SystemPrompt  string `json:"system_prompt"`  // base character instructions
	SuggestTone   string `json:"suggest_tone"`   // line used when proposing a distraction
	EmpathizeTone string `json:"empathize_tone"` // line used when sitting with the emotion
}

// PersonasConfig is the shape of personas.json.
type PersonasConfig struct {
	Default  string    `json:"default"`
	Personas []Persona `json:"personas"`
}
