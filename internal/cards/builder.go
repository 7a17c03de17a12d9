package cards

import (
	"fmt"
	"math/rand"
	"time"

	"solace/internal/models"
)

// Default content for the actionable buttons. URLs are the curated
// fallbacks; richer links come from the reply generator's web search.
const (
	lofiURL      = "https://www.youtube.com/watch?v=jfKfPfyJRdk"
	breathingURL = "https://www.healthline.com/health/box-breathing"
	soothingURL  = "https://www.healthline.com/health/mental-health/self-soothing"
)

// Builder formats policy decisions into user-facing suggestion cards.
// Button order is shuffled per call for variety; the RNG source is
// injectable so tests can fix the seed.
type Builder struct {
	newRand func() *rand.Rand
}

// NewBuilder creates a builder with a fresh time-seeded RNG per call.
func NewBuilder() *Builder {
	return &Builder{
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// NewBuilderWithRand creates a builder using the supplied RNG factory.
func NewBuilderWithRand(newRand func() *rand.Rand) *Builder {
	return &Builder{newRand: newRand}
}

// Build maps the chosen suggestion types to a card with 2-3 actionable
// buttons. Deterministic given identical inputs except for button order
// and trimming.
func (b *Builder) Build(types []models.SuggestionType, emotion, reason string) *models.SuggestionCard {
	card := &models.SuggestionCard{
		Type:      "proactive_suggestion",
		Title:     fmt.Sprintf("Something that might help right now (%s)", emotion),
		Desc:      fmt.Sprintf("Basis: %s", reason),
		Emotion:   emotion,
		Timestamp: time.Now().Unix(),
		Alt:       []models.CardLink{},
		Reason:    reason,
		CardType:  "info",
	}

	var buttons []models.CardButton
	for _, t := range types {
		switch t {
		case models.SuggestionMusic:
			card.CardType = "music"
			card.URL = lofiURL
			buttons = append(buttons, button("Play lo-fi", "play_audio", map[string]interface{}{
				"url": lofiURL,
			}))
		case models.SuggestionBreathing:
			buttons = append(buttons, button("3-minute breathing guide", "start_breathing", map[string]interface{}{
				"duration_sec": 180,
			}))
			card.Alt = append(card.Alt, models.CardLink{Title: "Read the breathing guide", URL: breathingURL})
		case models.SuggestionTimer:
			buttons = append(buttons, button("5-minute stretch timer", "start_timer", map[string]interface{}{
				"duration_sec": 300,
			}))
		case models.SuggestionMemo:
			buttons = append(buttons, button("Jot it down", "open_memo", map[string]interface{}{
				"template": "One line about what you're feeling right now",
			}))
		case models.SuggestionInfo:
			if card.URL == "" {
				card.URL = soothingURL
			}
			buttons = append(buttons, button("A short read", "open_link", map[string]interface{}{
				"url": card.URL,
			}))
		}
	}

	rng := b.newRand()
	rng.Shuffle(len(buttons), func(i, j int) {
		buttons[i], buttons[j] = buttons[j], buttons[i]
	})

	// Keep 2-3 buttons: never fewer than 2 when at least 2 exist,
	// never more than 3.
	limit := len(buttons)
	if limit > 3 {
		limit = 3
	}
	if limit < 2 && len(buttons) >= 2 {
		limit = 2
	}
	card.Buttons = buttons[:limit]
	card.TypeKey = card.CardType
	return card
}

func button(label, action string, payload map[string]interface{}) models.CardButton {
	return models.CardButton{Label: label, Action: action, Payload: payload}
}
