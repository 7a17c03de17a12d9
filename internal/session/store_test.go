package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"solace/internal/models"
)

func TestStore_LazyCreate(t *testing.T) {
	store := NewStore(10, 0)

	st := store.Get("fresh")
	if st == nil {
		t.Fatal("Expected a state for an unknown session")
	}
	if !st.Settings.ProactiveEnabled {
		t.Error("Expected proactive enabled by default")
	}
	if st.Settings.Frequency != models.FrequencyNormal {
		t.Errorf("Expected normal frequency, got %s", st.Settings.Frequency)
	}
	for _, tp := range models.AllSuggestionTypes {
		if st.PrefWeights[tp] != 1.0 {
			t.Errorf("Expected weight 1.0 for %s, got %v", tp, st.PrefWeights[tp])
		}
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", store.Count())
	}

	// Same id returns the same state.
	if store.Get("fresh") != st {
		t.Error("Expected repeated Get to return the same state")
	}
}

func TestStore_HistoryWindowEvictsOldest(t *testing.T) {
	store := NewStore(10, 0)
	sid := "s1"

	for i := 0; i < 11; i++ {
		store.UpsertTurn(sid, models.RoleUser, fmt.Sprintf("turn %d", i), map[string]interface{}{
			"ts": int64(1000 + i),
		})
	}

	turns := store.History(sid)
	if len(turns) != 10 {
		t.Fatalf("Expected history capped at 10, got %d", len(turns))
	}
	if turns[0].Text != "turn 1" {
		t.Errorf("Expected oldest surviving turn to be 'turn 1', got %q", turns[0].Text)
	}
	if turns[9].Text != "turn 10" {
		t.Errorf("Expected newest turn to be 'turn 10', got %q", turns[9].Text)
	}
}

func TestStore_UserTurnRefreshesSilenceAnchor(t *testing.T) {
	store := NewStore(10, 0)
	sid := "s1"

	store.UpsertTurn(sid, models.RoleUser, "hello", map[string]interface{}{"ts": int64(5000)})

	st := store.Get(sid)
	st.Lock()
	anchor := st.LastUserUtterTS
	st.Unlock()
	if anchor != 5000 {
		t.Errorf("Expected anchor 5000 after user turn, got %d", anchor)
	}

	// Assistant turns do not move the anchor.
	store.UpsertTurn(sid, models.RoleAssistant, "hi there", map[string]interface{}{"ts": int64(6000)})
	st.Lock()
	anchor = st.LastUserUtterTS
	st.Unlock()
	if anchor != 5000 {
		t.Errorf("Expected anchor unchanged by assistant turn, got %d", anchor)
	}
}

func TestStore_PushEmotionBounded(t *testing.T) {
	store := NewStore(10, 0)
	sid := "s1"

	for i := 0; i < 15; i++ {
		store.PushEmotion(sid, "joy", 0.5, 0.5, int64(1000+i))
	}

	st := store.Get(sid)
	st.Lock()
	defer st.Unlock()
	if st.Emotions.Len() != 10 {
		t.Errorf("Expected emotion buffer capped at 10, got %d", st.Emotions.Len())
	}
	last, ok := st.Emotions.Last()
	if !ok || last.Timestamp != 1014 {
		t.Errorf("Expected newest sample ts 1014, got %+v", last)
	}
	if st.LastUserUtterTS != 1014 {
		t.Errorf("Expected silence anchor 1014, got %d", st.LastUserUtterTS)
	}
}

func TestStore_UpdateSettingsPartial(t *testing.T) {
	store := NewStore(10, 0)
	sid := "s1"

	off := false
	settings := store.UpdateSettings(sid, &off, nil)
	if settings.ProactiveEnabled {
		t.Error("Expected proactive disabled")
	}
	if settings.Frequency != models.FrequencyNormal {
		t.Errorf("Expected frequency untouched, got %s", settings.Frequency)
	}

	low := models.FrequencyLow
	settings = store.UpdateSettings(sid, nil, &low)
	if settings.ProactiveEnabled {
		t.Error("Expected proactive to stay disabled")
	}
	if settings.Frequency != models.FrequencyLow {
		t.Errorf("Expected low frequency, got %s", settings.Frequency)
	}

	// Unknown frequency values are ignored.
	bogus := "sometimes"
	settings = store.UpdateSettings(sid, nil, &bogus)
	if settings.Frequency != models.FrequencyLow {
		t.Errorf("Expected bogus frequency to be ignored, got %s", settings.Frequency)
	}
}

func TestStore_SilenceSince(t *testing.T) {
	store := NewStore(10, 0)
	sid := "s1"

	if got := store.SilenceSince(sid, 1_000_000); got != 0 {
		t.Errorf("Expected zero silence for a fresh session, got %v", got)
	}

	store.PushEmotion(sid, "joy", 0.5, 0.5, 1_000_000)
	if got := store.SilenceSince(sid, 1_016_000); got != 16*time.Second {
		t.Errorf("Expected 16s silence, got %v", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(10, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", n%2)
			for j := 0; j < 100; j++ {
				store.UpsertTurn(sid, models.RoleUser, "x", map[string]interface{}{"ts": int64(j)})
				store.PushEmotion(sid, "joy", 0.5, 0.5, int64(j))
				store.History(sid)
			}
		}(i)
	}
	wg.Wait()

	if store.Count() != 2 {
		t.Errorf("Expected 2 sessions after concurrent access, got %d", store.Count())
	}
}

func TestRing_PushAndEvict(t *testing.T) {
	r := NewRing[int](3)

	if _, ok := r.Last(); ok {
		t.Error("Expected empty ring to have no last element")
	}

	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	if r.Len() != 3 {
		t.Fatalf("Expected length 3, got %d", r.Len())
	}

	items := r.Items()
	want := []int{3, 4, 5}
	for i, v := range want {
		if items[i] != v {
			t.Errorf("Expected items %v, got %v", want, items)
			break
		}
	}

	last, ok := r.Last()
	if !ok || last != 5 {
		t.Errorf("Expected last 5, got %d (%v)", last, ok)
	}
}
