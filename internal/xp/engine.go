package xp

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
)

const (
	maxRecentEvents = 20
	popupDuration   = 2 * time.Second
)

// Store persists the ledger. Failures are logged and otherwise ignored.
type Store interface {
	GetOrCreate() (*model.PlayerProfile, error)
	Save(p model.PlayerProfile) error
	AddEvent(e model.XPEvent) error
	RecentEvents(limit int) ([]model.XPEvent, error)
}

// Notifier receives UI signals (popup shown/hidden, level up).
type Notifier interface {
	Notify(entity, action, id string, extra map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string, map[string]any) {}

// AwardResult describes the ledger change caused by one award.
type AwardResult struct {
	Event       model.XPEvent `json:"event"`
	LevelBefore int           `json:"level_before"`
	LevelAfter  int           `json:"level_after"`
}

// LeveledUp reports whether the award crossed at least one threshold.
func (r AwardResult) LeveledUp() bool { return r.LevelAfter > r.LevelBefore }

// Engine owns the player's XP ledger. All awards are serialized.
type Engine struct {
	store    Store
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger

	mu            sync.Mutex
	player        model.PlayerProfile
	events        []model.XPEvent
	popupVisible  bool
	popupTimer    *time.Timer
	popupDuration time.Duration
}

// NewEngine loads the ledger from store, falling back to a fresh level 1
// player when nothing is stored or the load fails.
func NewEngine(store Store, notifier Notifier, clk clock.Clock, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	e := &Engine{
		store:         store,
		notifier:      notifier,
		clock:         clk,
		logger:        logger,
		player:        model.NewPlayerProfile(),
		popupDuration: popupDuration,
	}

	p, err := store.GetOrCreate()
	if err != nil {
		logger.Error("load player", "error", err)
	} else if p != nil {
		e.player = *p
	}

	events, err := store.RecentEvents(maxRecentEvents)
	if err != nil {
		logger.Error("load xp events", "error", err)
	}
	e.events = events
	return e
}

// AwardXP adds amount to the ledger, applying as many level-ups as the new
// total allows. Amounts are not validated.
func (e *Engine) AwardXP(amount int, source, icon string) AwardResult {
	e.mu.Lock()

	ev := model.XPEvent{
		ID:        uuid.NewString(),
		Source:    source,
		Amount:    amount,
		Timestamp: e.clock.Now(),
		Icon:      icon,
	}
	res := AwardResult{Event: ev, LevelBefore: e.player.Level}

	e.player.CurrentXP += amount
	e.player.TotalXP += amount

	e.events = append([]model.XPEvent{ev}, e.events...)
	if len(e.events) > maxRecentEvents {
		e.events = e.events[:maxRecentEvents]
	}

	for e.player.CurrentXP >= XPRequired(e.player.Level+1) {
		e.player.Level++
		e.player.Title = TitleForLevel(e.player.Level)
	}
	res.LevelAfter = e.player.Level
	player := e.player

	if err := e.store.Save(player); err != nil {
		e.logger.Error("save player", "error", err)
	}
	if err := e.store.AddEvent(ev); err != nil {
		e.logger.Error("save xp event", "source", source, "error", err)
	}

	e.showPopupLocked()
	e.mu.Unlock()

	e.notifier.Notify("xp", "awarded", ev.ID, map[string]any{
		"amount":   amount,
		"source":   source,
		"icon":     icon,
		"total_xp": player.TotalXP,
		"level":    player.Level,
	})
	if res.LeveledUp() {
		e.logger.Info("level up", "from", res.LevelBefore, "to", res.LevelAfter, "title", player.Title)
		e.notifier.Notify("level", "up", ev.ID, map[string]any{
			"level": player.Level,
			"title": player.Title,
		})
	}
	return res
}

// showPopupLocked raises the popup flag and (re)arms its hide timer.
func (e *Engine) showPopupLocked() {
	e.popupVisible = true
	if e.popupTimer != nil {
		e.popupTimer.Stop()
	}
	e.popupTimer = time.AfterFunc(e.popupDuration, e.hidePopup)
}

func (e *Engine) hidePopup() {
	e.mu.Lock()
	if !e.popupVisible {
		e.mu.Unlock()
		return
	}
	e.popupVisible = false
	e.popupTimer = nil
	e.mu.Unlock()

	e.notifier.Notify("xp", "popup_hidden", "", nil)
}

// Player returns a copy of the ledger.
func (e *Engine) Player() model.PlayerProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player
}

// Events returns the recent awards, newest first.
func (e *Engine) Events() []model.XPEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.XPEvent, len(e.events))
	copy(out, e.events)
	return out
}

func (e *Engine) PopupVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.popupVisible
}

// Progress is the fraction of the way to the next level.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return LevelProgress(e.player.Level, e.player.CurrentXP)
}

// Close stops a pending popup timer.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.popupTimer != nil {
		e.popupTimer.Stop()
		e.popupTimer = nil
	}
}
