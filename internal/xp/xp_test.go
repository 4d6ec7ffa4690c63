package xp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	player  *model.PlayerProfile
	events  []model.XPEvent
	saves   int
	failing bool
}

func (s *memStore) GetOrCreate() (*model.PlayerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("db down")
	}
	if s.player == nil {
		p := model.NewPlayerProfile()
		s.player = &p
	}
	p := *s.player
	return &p, nil
}

func (s *memStore) Save(p model.PlayerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("db down")
	}
	s.player = &p
	s.saves++
	return nil
}

func (s *memStore) AddEvent(e model.XPEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("db down")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memStore) RecentEvents(limit int) ([]model.XPEvent, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) Notify(entity, action, id string, extra map[string]any) {
	n.mu.Lock()
	n.types = append(n.types, entity+"_"+action)
	n.mu.Unlock()
}

func (n *recordingNotifier) has(typ string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.types {
		if t == typ {
			return true
		}
	}
	return false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, store Store, n Notifier) *Engine {
	t.Helper()
	e := NewEngine(store, n, clock.NewFixed(time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)), quietLogger())
	t.Cleanup(e.Close)
	return e
}

func TestXPRequired(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 0},
		{1, 0},
		{2, 100},
		{3, 400},
		{4, 900},
		{11, 10000},
	}
	for _, tt := range tests {
		if got := XPRequired(tt.level); got != tt.want {
			t.Errorf("XPRequired(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestTitleForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{1, "Beginner"},
		{3, "Beginner"},
		{4, "Apprentice"},
		{6, "Apprentice"},
		{7, "Scholar"},
		{10, "Scholar"},
		{11, "Warrior"},
		{16, "Champion"},
		{21, "Master"},
		{26, "Grandmaster"},
		{31, "Legend"},
		{40, "Legend"},
		{41, "Mythic"},
	}
	for _, tt := range tests {
		if got := TitleForLevel(tt.level); got != tt.want {
			t.Errorf("TitleForLevel(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevelProgress(t *testing.T) {
	tests := []struct {
		name      string
		level, xp int
		want      float64
	}{
		{"start", 1, 0, 0},
		{"half to level 2", 1, 50, 0.5},
		{"quarter into level 2", 2, 175, 0.25},
		{"clamped high", 1, 150, 1},
		{"clamped low", 3, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelProgress(tt.level, tt.xp); got != tt.want {
				t.Errorf("LevelProgress(%d, %d) = %v, want %v", tt.level, tt.xp, got, tt.want)
			}
		})
	}
}

func TestAwardExactThreshold(t *testing.T) {
	e := newTestEngine(t, &memStore{}, nil)

	e.AwardXP(50, SourceQuiz, "q")
	res := e.AwardXP(XPRequired(3)-e.Player().CurrentXP, SourceQuiz, "q")

	if res.LevelAfter != 3 {
		t.Errorf("level = %d, want 3", res.LevelAfter)
	}
	if got := e.Player().Level; got != 3 {
		t.Errorf("player level = %d, want 3", got)
	}
}

func TestAwardMultiLevelUp(t *testing.T) {
	n := &recordingNotifier{}
	e := newTestEngine(t, &memStore{}, n)

	res := e.AwardXP(500, SourceStudy, "book")

	if res.LevelBefore != 1 || res.LevelAfter != 3 {
		t.Errorf("levels = %d -> %d, want 1 -> 3", res.LevelBefore, res.LevelAfter)
	}
	p := e.Player()
	if p.CurrentXP != 500 || p.TotalXP != 500 {
		t.Errorf("xp = %d/%d, want 500/500", p.CurrentXP, p.TotalXP)
	}
	if !n.has("level_up") {
		t.Error("expected level_up notification")
	}
	if !n.has("xp_awarded") {
		t.Error("expected xp_awarded notification")
	}
}

func TestAwardTitleFollowsLevel(t *testing.T) {
	e := newTestEngine(t, &memStore{}, nil)

	e.AwardXP(XPRequired(7), SourceStudy, "book")

	p := e.Player()
	if p.Level != 7 || p.Title != "Scholar" {
		t.Errorf("player = level %d %q, want level 7 Scholar", p.Level, p.Title)
	}
}

func TestRecentEventsCap(t *testing.T) {
	e := newTestEngine(t, &memStore{}, nil)

	for i := 0; i < 25; i++ {
		e.AwardXP(1, fmt.Sprintf("award-%d", i), "")
	}

	events := e.Events()
	if len(events) != 20 {
		t.Fatalf("events = %d, want 20", len(events))
	}
	if events[0].Source != "award-24" {
		t.Errorf("newest = %q, want award-24", events[0].Source)
	}
	if events[19].Source != "award-5" {
		t.Errorf("oldest = %q, want award-5", events[19].Source)
	}
}

func TestLevelMonotonic(t *testing.T) {
	e := newTestEngine(t, &memStore{}, nil)

	amounts := []int{0, 30, 70, 0, 250, 1, 999, 40}
	sum, lastLevel := 0, 1
	for _, a := range amounts {
		e.AwardXP(a, SourceTask, "")
		sum += a
		p := e.Player()
		if p.Level < lastLevel {
			t.Fatalf("level decreased %d -> %d", lastLevel, p.Level)
		}
		lastLevel = p.Level
		if p.TotalXP != sum {
			t.Fatalf("total = %d, want %d", p.TotalXP, sum)
		}
	}
}

func TestNegativeAwardAccepted(t *testing.T) {
	e := newTestEngine(t, &memStore{}, nil)

	e.AwardXP(150, SourceQuiz, "")
	e.AwardXP(-100, "Correction", "")

	p := e.Player()
	if p.TotalXP != 50 {
		t.Errorf("total = %d, want 50", p.TotalXP)
	}
	if p.Level != 2 {
		t.Errorf("level = %d, want 2 (levels never drop)", p.Level)
	}
}

func TestAwardPersists(t *testing.T) {
	store := &memStore{}
	e := newTestEngine(t, store, nil)

	e.AwardXP(120, SourceStudy, "book")

	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
	if store.player.TotalXP != 120 || store.player.Level != 2 {
		t.Errorf("stored player = %+v", *store.player)
	}
	if len(store.events) != 1 {
		t.Errorf("stored events = %d, want 1", len(store.events))
	}

	reloaded := newTestEngine(t, store, nil)
	if got := reloaded.Player(); got != *store.player {
		t.Errorf("reloaded = %+v, want %+v", got, *store.player)
	}
}

func TestStoreFailureSwallowed(t *testing.T) {
	e := newTestEngine(t, &memStore{failing: true}, nil)

	if p := e.Player(); p != model.NewPlayerProfile() {
		t.Errorf("player = %+v, want defaults", p)
	}
	res := e.AwardXP(100, SourceStudy, "")
	if res.LevelAfter != 2 {
		t.Errorf("level = %d, want 2", res.LevelAfter)
	}
}

func TestPopupHidesAfterDelay(t *testing.T) {
	n := &recordingNotifier{}
	e := newTestEngine(t, &memStore{}, n)
	e.popupDuration = 20 * time.Millisecond

	e.AwardXP(10, SourceQuiz, "")
	if !e.PopupVisible() {
		t.Fatal("expected popup visible right after award")
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.PopupVisible() {
		if time.Now().After(deadline) {
			t.Fatal("popup never hidden")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !n.has("xp_popup_hidden") {
		t.Error("expected xp_popup_hidden notification")
	}
}

func TestActivityXP(t *testing.T) {
	tests := []struct {
		activity Activity
		want     int
	}{
		{ActivityExercise, 25},
		{ActivityYoga, 20},
		{ActivityBreathing, 15},
		{ActivityMood, 10},
	}
	for _, tt := range tests {
		if got, _, _ := ActivityXP(tt.activity); got != tt.want {
			t.Errorf("ActivityXP(%s) = %d, want %d", tt.activity, got, tt.want)
		}
	}

	if _, err := ParseActivity("juggling"); err == nil {
		t.Error("expected error for unknown activity")
	}
}

func TestStudySessionXP(t *testing.T) {
	if got := StudySessionXP(2, 25); got != 100 {
		t.Errorf("StudySessionXP(2, 25) = %d, want 100", got)
	}
}

func TestAchievements(t *testing.T) {
	list := Achievements(Stats{Level: 5, TotalXP: 1600, StudySessions: 1})

	earned := map[string]bool{}
	for _, a := range list {
		earned[a.ID] = a.Earned
	}
	for _, id := range []string{"level_5", "xp_1000", "study_1"} {
		if !earned[id] {
			t.Errorf("%s not earned", id)
		}
	}
	for _, id := range []string{"level_11", "perfect_1", "study_25"} {
		if earned[id] {
			t.Errorf("%s earned unexpectedly", id)
		}
	}
	if got := CountEarned(list); got != 3 {
		t.Errorf("CountEarned = %d, want 3", got)
	}
}
