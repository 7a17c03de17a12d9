package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"solace/internal/models"
)

// State holds everything the service remembers about one conversation.
// The embedded mutex serializes all access to a single session; callers
// that read and then write (the policy engine's check-and-stamp) hold it
// across the whole evaluation.
type State struct {
	sync.Mutex

	History  *Ring[models.Turn]
	Emotions *Ring[models.EmotionSample]
	Settings models.SessionSettings

	// LastProactiveTS is the cooldown anchor (unix ms). It only ever
	// moves forward within a session.
	LastProactiveTS int64
	// LastUserUtterTS is the silence-detection anchor (unix ms).
	LastUserUtterTS int64

	PrefWeights map[models.SuggestionType]float64
	Accepts     map[models.SuggestionType]int
	Rejects     map[models.SuggestionType]int
}

// Store owns all session state. Sessions are created lazily on first
// reference and expire only if a TTL is configured (cache.NoExpiration
// keeps them for the process lifetime).
type Store struct {
	sessions *cache.Cache
	window   int
	mu       sync.Mutex // serializes create-on-miss
}

// NewStore creates a session store. window bounds history and emotion
// buffers per session; ttl <= 0 disables expiration.
func NewStore(window int, ttl time.Duration) *Store {
	exp := ttl
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		exp = cache.NoExpiration
		cleanup = 0
	}
	return &Store{
		sessions: cache.New(exp, cleanup),
		window:   window,
	}
}

// Get returns the state for sid, creating a fresh default state when the
// session is unknown. It never fails.
func (s *Store) Get(sid string) *State {
	if v, found := s.sessions.Get(sid); found {
		return v.(*State)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock so concurrent first references share one state.
	if v, found := s.sessions.Get(sid); found {
		return v.(*State)
	}

	st := s.newState()
	s.sessions.Set(sid, st, cache.DefaultExpiration)
	log.Printf("💬 [SESSION] Created session %s (total: %d)", sid, s.sessions.ItemCount())
	return st
}

func (s *Store) newState() *State {
	weights := make(map[models.SuggestionType]float64, len(models.AllSuggestionTypes))
	for _, t := range models.AllSuggestionTypes {
		weights[t] = 1.0
	}
	return &State{
		History:     NewRing[models.Turn](s.window),
		Emotions:    NewRing[models.EmotionSample](s.window),
		Settings:    models.DefaultSessionSettings(),
		PrefWeights: weights,
		Accepts:     make(map[models.SuggestionType]int),
		Rejects:     make(map[models.SuggestionType]int),
	}
}

// UpsertTurn appends a conversation turn. A user turn also refreshes the
// silence anchor from meta["ts"] when present.
func (s *Store) UpsertTurn(sid, role, text string, meta map[string]interface{}) {
	st := s.Get(sid)
	st.Lock()
	defer st.Unlock()

	ts := int64(0)
	if meta != nil {
		switch v := meta["ts"].(type) {
		case int64:
			ts = v
		case float64:
			ts = int64(v)
		}
	}
	st.History.Push(models.Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: ts,
		Meta:      meta,
	})
	if role == models.RoleUser && ts > 0 {
		st.LastUserUtterTS = ts
	}
}

// PushEmotion appends an emotion sample. An emotion push is evidence of a
// fresh utterance, so it also refreshes the silence anchor.
func (s *Store) PushEmotion(sid, label string, confidence, intensity float64, ts int64) {
	st := s.Get(sid)
	st.Lock()
	defer st.Unlock()

	st.Emotions.Push(models.EmotionSample{
		Label:      label,
		Confidence: confidence,
		Intensity:  intensity,
		Timestamp:  ts,
	})
	st.LastUserUtterTS = ts
}

// UpdateSettings applies partial settings changes.
func (s *Store) UpdateSettings(sid string, proactive *bool, frequency *string) models.SessionSettings {
	st := s.Get(sid)
	st.Lock()
	defer st.Unlock()

	if proactive != nil {
		st.Settings.ProactiveEnabled = *proactive
	}
	if frequency != nil && (*frequency == models.FrequencyNormal || *frequency == models.FrequencyLow) {
		st.Settings.Frequency = *frequency
	}
	return st.Settings
}

// History returns a copy of the session's turns, oldest first.
func (s *Store) History(sid string) []models.Turn {
	st := s.Get(sid)
	st.Lock()
	defer st.Unlock()
	return st.History.Items()
}

// SilenceSince reports how long the user has been silent as of nowMs.
// A session with no recorded utterance yet reports zero silence.
func (s *Store) SilenceSince(sid string, nowMs int64) time.Duration {
	st := s.Get(sid)
	st.Lock()
	defer st.Unlock()

	if st.LastUserUtterTS <= 0 || nowMs <= st.LastUserUtterTS {
		return 0
	}
	return time.Duration(nowMs-st.LastUserUtterTS) * time.Millisecond
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return s.sessions.ItemCount()
}
