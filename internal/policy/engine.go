package policy

import (
	"math/rand"
	"sync"
	"time"

	"solace/internal/models"
	"solace/internal/session"
)

// Action is the kind of proactive move the engine decided on.
type Action string

const (
	ActionNone      Action = "none"
	ActionHint      Action = "hint"      // gentle nudge after prolonged silence
	ActionAssist    Action = "assist"    // offer practical help (anger)
	ActionRecommend Action = "recommend" // offer comfort content (sadness)
)

// Decision is the outcome of one policy evaluation. Every evaluation
// produces a decision; the engine never errors.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// OK reports whether a suggestion should actually be surfaced.
func (d Decision) OK() bool {
	return d.Action != ActionNone
}

// Config holds the tunable trigger thresholds.
type Config struct {
	SadnessLabel     string
	AngerLabel       string
	SadnessThreshold float64
	AngerThreshold   float64
	SilenceWindow    time.Duration
	CooldownWindow   time.Duration
}

// DefaultConfig mirrors the production defaults: 15s silence, 45s
// cooldown, sadness >= 0.5, anger >= 0.6.
func DefaultConfig() Config {
	return Config{
		SadnessLabel:     "sadness",
		AngerLabel:       "anger",
		SadnessThreshold: 0.5,
		AngerThreshold:   0.6,
		SilenceWindow:    15 * time.Second,
		CooldownWindow:   45 * time.Second,
	}
}

// Engine decides whether, what, and how often to interject proactive
// suggestions. It is pure in-memory computation; all state lives in the
// session store, which the engine mutates in place under the session lock.
type Engine struct {
	store *session.Store
	cfg   Config

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a policy engine over the given store.
func NewEngine(store *session.Store, cfg Config) *Engine {
	return &Engine{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the engine's clock. Tests use this to pin "now".
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetRandSource seeds type selection deterministically. Tests only.
func (e *Engine) SetRandSource(src rand.Source) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng = rand.New(src)
}

// ShouldSuggest evaluates the trigger chain for one new user turn.
// emotionLabel may be empty, in which case the session's latest sample is
// used. silence is the orchestrator-observed gap since the last user
// utterance; the engine also derives its own from the session anchor and
// takes the larger of the two.
func (e *Engine) ShouldSuggest(sid, emotionLabel string, silence time.Duration, topicHint string) Decision {
	return e.ShouldSuggestAt(sid, emotionLabel, silence, topicHint, e.now())
}

// ShouldSuggestAt is ShouldSuggest with an explicit evaluation time.
//
// Trigger priority is fixed: disabled > cooldown > silence > sadness >
// anger > no-trigger. Only the first matching rule fires, and a firing
// rule stamps the cooldown anchor, re-arming the gate.
func (e *Engine) ShouldSuggestAt(sid, emotionLabel string, silence time.Duration, topicHint string, now time.Time) Decision {
	st := e.store.Get(sid)
	st.Lock()
	defer st.Unlock()

	if !st.Settings.ProactiveEnabled {
		return Decision{ActionNone, "proactive disabled by user"}
	}

	nowMs := now.UnixMilli()
	cooldown := e.cfg.CooldownWindow
	if st.Settings.Frequency == models.FrequencyLow {
		cooldown *= 2
	}
	if nowMs-st.LastProactiveTS < cooldown.Milliseconds() {
		return Decision{ActionNone, "cooldown active"}
	}

	silenceMs := silence.Milliseconds()
	if st.LastUserUtterTS > 0 {
		if observed := nowMs - st.LastUserUtterTS; observed > silenceMs {
			silenceMs = observed
		}
	}
	if silenceMs > e.cfg.SilenceWindow.Milliseconds() {
		e.stampLocked(st, nowMs)
		return Decision{ActionHint, "prolonged silence"}
	}

	label, intensity, ok := e.recentEmotion(st, emotionLabel)
	if !ok {
		return Decision{ActionNone, "no emotion signal"}
	}

	switch {
	case label == e.cfg.SadnessLabel && intensity >= e.cfg.SadnessThreshold:
		e.stampLocked(st, nowMs)
		return Decision{ActionRecommend, "sadness detected"}
	case label == e.cfg.AngerLabel && intensity >= e.cfg.AngerThreshold:
		e.stampLocked(st, nowMs)
		return Decision{ActionAssist, "anger detected"}
	}
	return Decision{ActionNone, "no policy hit"}
}

// recentEmotion resolves the (label, intensity) pair for the trigger
// rules. The caller-supplied label wins when present; intensity always
// comes from the session's latest sample, and a label with no matching
// sample degrades to intensity 0 rather than erroring.
func (e *Engine) recentEmotion(st *session.State, emotionLabel string) (string, float64, bool) {
	sample, haveSample := st.Emotions.Last()
	if emotionLabel == "" {
		if !haveSample {
			return "", 0, false
		}
		return sample.Label, sample.Intensity, true
	}
	if haveSample && sample.Label == emotionLabel {
		return emotionLabel, sample.Intensity, true
	}
	return emotionLabel, 0, true
}

// stampLocked advances the cooldown anchor. The anchor is monotonically
// non-decreasing within a session.
func (e *Engine) stampLocked(st *session.State, nowMs int64) {
	if nowMs > st.LastProactiveTS {
		st.LastProactiveTS = nowMs
	}
}

// ChooseSuggestionTypes picks 2-3 suggestion types by weighted sampling
// without replacement over the session's preference weights. Low-weight
// types stay reachable; accepted types win more often over time.
func (e *Engine) ChooseSuggestionTypes(sid string) []models.SuggestionType {
	st := e.store.Get(sid)
	st.Lock()

	candidates := make([]models.SuggestionType, 0, len(models.AllSuggestionTypes))
	weights := make([]float64, 0, len(models.AllSuggestionTypes))
	for _, t := range models.AllSuggestionTypes {
		w := st.PrefWeights[t]
		if w <= 0 {
			w = minWeight
		}
		candidates = append(candidates, t)
		weights = append(weights, w)
	}
	st.Unlock()

	count := len(candidates)
	if count > 3 {
		count = 3
	}

	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	chosen := make([]models.SuggestionType, 0, count)
	for len(chosen) < count {
		total := 0.0
		for _, w := range weights {
			total += w
		}
		pick := e.rng.Float64() * total
		idx := len(weights) - 1
		for i, w := range weights {
			pick -= w
			if pick < 0 {
				idx = i
				break
			}
		}
		chosen = append(chosen, candidates[idx])
		candidates = append(candidates[:idx], candidates[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return chosen
}

// Preference weight bounds. Weights stay strictly positive so no type is
// ever starved, and capped so one type cannot dominate forever.
const (
	minWeight = 0.1
	maxWeight = 5.0

	acceptFactor = 1.2
	rejectFactor = 0.85
)

// Feedback applies one accept/reject signal for a suggestion type.
// Accepts never decrease the weight; rejects never increase it.
func (e *Engine) Feedback(sid string, t models.SuggestionType, accepted bool) {
	if !models.IsValidSuggestionType(t) {
		t = models.SuggestionInfo
	}

	st := e.store.Get(sid)
	st.Lock()
	defer st.Unlock()

	w, ok := st.PrefWeights[t]
	if !ok || w <= 0 {
		w = 1.0
	}
	if accepted {
		w *= acceptFactor
		if w > maxWeight {
			w = maxWeight
		}
		st.Accepts[t]++
	} else {
		w *= rejectFactor
		if w < minWeight {
			w = minWeight
		}
		st.Rejects[t]++
	}
	st.PrefWeights[t] = w
}

// Weights returns a snapshot of the session's preference state for the
// feedback endpoint response.
func (e *Engine) Weights(sid string) (map[models.SuggestionType]float64, map[models.SuggestionType]int, map[models.SuggestionType]int) {
	st := e.store.Get(sid)
	st.Lock()
	defer st.Unlock()

	weights := make(map[models.SuggestionType]float64, len(st.PrefWeights))
	accepts := make(map[models.SuggestionType]int, len(st.Accepts))
	rejects := make(map[models.SuggestionType]int, len(st.Rejects))
	for k, v := range st.PrefWeights {
		weights[k] = v
	}
	for k, v := range st.Accepts {
		accepts[k] = v
	}
	for k, v := range st.Rejects {
		rejects[k] = v
	}
	return weights, accepts, rejects
}
