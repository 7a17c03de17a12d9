package models

// CardButton is an actionable button on a suggestion card. The frontend
// sends action/payload back when the user taps it.
type CardButton struct {
	Label   string                 `json:"label"`
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload"`
}

// CardLink is a secondary link attached to a card.
type CardLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SuggestionCard is the user-facing payload for a proactive suggestion.
// Field names are part of the frontend contract.
type SuggestionCard struct {
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Desc      string       `json:"desc"`
	Buttons   []CardButton `json:"buttons"`
	Emotion   string       `json:"emotion"`
	Timestamp int64        `json:"timestamp"`
	URL       string       `json:"url,omitempty"`
	Alt       []CardLink   `json:"alt"`
	Reason    string       `json:"reason"`
	CardType  string       `json:"card_type"`
	TypeKey   string       `json:"type_key"`
}
