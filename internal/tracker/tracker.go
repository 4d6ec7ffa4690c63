// Package tracker owns today's routine and moves its blocks from pending to
// completed, either on request or as the wall clock passes them.
//
// Completion is one way and every operation is total: an unknown block id
// is a no-op reported as false, never an error.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/routine"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/xp"
)

const (
	greetingDuration = 4 * time.Second
	sleepStartHour   = 22
	sleepEndHour     = 6
)

// KV persists the routine snapshot, the profile and the wake/sleep stamps.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	SaveJSON(key string, v any) error
	LoadJSON(key string, v any) (bool, error)
}

// CompletionRecorder keeps per-block completion history.
type CompletionRecorder interface {
	Record(c model.BlockCompletion) error
}

// Awarder credits XP for completed blocks.
type Awarder interface {
	AwardXP(amount int, source, icon string) xp.AwardResult
}

// Notifier receives UI signals.
type Notifier interface {
	Notify(entity, action, id string, extra map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string, map[string]any) {}

type award struct {
	amount int
	source string
	icon   string
}

type Tracker struct {
	kv          KV
	completions CompletionRecorder
	awarder     Awarder
	notifier    Notifier
	clock       clock.Clock
	logger      *slog.Logger

	mu               sync.Mutex
	routine          model.DailyRoutine
	greetingVisible  bool
	greetingTimer    *time.Timer
	greetingDuration time.Duration
}

// New restores the last persisted routine, if any.
func New(kv KV, completions CompletionRecorder, awarder Awarder, notifier Notifier, clk clock.Clock, logger *slog.Logger) *Tracker {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	t := &Tracker{
		kv:               kv,
		completions:      completions,
		awarder:          awarder,
		notifier:         notifier,
		clock:            clk,
		logger:           logger,
		greetingDuration: greetingDuration,
	}

	var r model.DailyRoutine
	ok, err := kv.LoadJSON(store.KeyRoutine, &r)
	if err != nil {
		logger.Warn("load routine snapshot", "error", err)
	}
	if ok {
		t.routine = r
	}
	return t
}

// Profile returns the stored profile, or the onboarding defaults when none is
// stored or it cannot be decoded.
func (t *Tracker) Profile() model.UserProfile {
	p := model.DefaultUserProfile()
	ok, err := t.kv.LoadJSON(store.KeyUserProfile, &p)
	if err != nil {
		t.logger.Warn("load profile", "error", err)
		return model.DefaultUserProfile()
	}
	if !ok {
		return model.DefaultUserProfile()
	}
	return p
}

// Regenerate builds today's routine from p unless one already exists for
// today, in which case the existing routine and its completion state are kept.
func (t *Tracker) Regenerate(p model.UserProfile) model.DailyRoutine {
	t.mu.Lock()
	if t.hasRoutineForLocked(t.clock.Now()) {
		r := t.copyRoutineLocked()
		t.mu.Unlock()
		return r
	}
	t.mu.Unlock()
	return t.Replace(p)
}

// Replace unconditionally generates a new routine for today. Completion state
// of the previous routine is discarded, except that wake-up and sleep blocks
// already stamped for today stay completed. Those stamps are once per day, so
// the new blocks would otherwise never complete. No XP or history is recorded
// for them again.
func (t *Tracker) Replace(p model.UserProfile) model.DailyRoutine {
	now := t.clock.Now()
	today := clock.DateKey(now)
	r := routine.Generate(now, p)

	woke := t.stampIs(store.KeyLastWakeCompleted, today)
	slept := t.stampIs(store.KeyLastSleepCompleted, today)
	for i := range r.Blocks {
		switch r.Blocks[i].Type {
		case model.BlockWakeUp:
			r.Blocks[i].IsCompleted = woke
		case model.BlockSleep:
			r.Blocks[i].IsCompleted = slept
		}
	}

	t.mu.Lock()
	t.routine = r
	t.persistLocked()
	out := t.copyRoutineLocked()
	t.mu.Unlock()

	t.logger.Info("routine generated", "date", today, "blocks", len(r.Blocks))
	t.notifier.Notify("routine", "generated", today, map[string]any{"blocks": len(r.Blocks)})
	return out
}

// HasRoutineFor reports whether the current routine belongs to now's date.
func (t *Tracker) HasRoutineFor(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasRoutineForLocked(now)
}

func (t *Tracker) hasRoutineForLocked(now time.Time) bool {
	return len(t.routine.Blocks) > 0 && clock.SameDay(t.routine.Date, now)
}

// Routine returns a copy of the current routine.
func (t *Tracker) Routine() model.DailyRoutine {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyRoutineLocked()
}

// Pending returns blocks that are not completed yet, in routine order.
func (t *Tracker) Pending() []model.TimeBlock {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []model.TimeBlock
	for _, b := range t.routine.Blocks {
		if !b.IsCompleted {
			out = append(out, b)
		}
	}
	return out
}

// Block returns a copy of the block with the given id in today's routine.
func (t *Tracker) Block(id string) (model.TimeBlock, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.indexLocked(id)
	if idx < 0 {
		return model.TimeBlock{}, false
	}
	return t.routine.Blocks[idx], true
}

func (t *Tracker) GreetingVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.greetingVisible
}

// CompleteExercise completes the first pending exercise block and awards
// exercise XP.
func (t *Tracker) CompleteExercise() bool {
	t.mu.Lock()
	idx := -1
	for i, b := range t.routine.Blocks {
		if b.Type == model.BlockExercise && !b.IsCompleted {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return false
	}
	b := t.completeLocked(idx, false)
	t.persistLocked()
	t.mu.Unlock()

	t.afterComplete(b, false, &award{xp.ExerciseXP, xp.SourceExercise, "figure.run"})
	return true
}

// CompleteStudy completes a verified study block and awards
// cycles x minutes x 2 XP.
func (t *Tracker) CompleteStudy(blockID string) bool {
	t.mu.Lock()
	idx := t.indexLocked(blockID)
	if idx < 0 || t.routine.Blocks[idx].Type != model.BlockStudy || t.routine.Blocks[idx].IsCompleted {
		t.mu.Unlock()
		return false
	}
	b := t.completeLocked(idx, false)
	t.persistLocked()
	t.mu.Unlock()

	t.afterComplete(b, false, &award{studyXP(b), xp.SourceStudy, "book"})
	return true
}

// CompleteBlock is manual completion for any block except study blocks,
// which only complete through quiz verification.
func (t *Tracker) CompleteBlock(blockID string) bool {
	t.mu.Lock()
	idx := t.indexLocked(blockID)
	if idx < 0 || t.routine.Blocks[idx].IsCompleted || t.routine.Blocks[idx].Type == model.BlockStudy {
		t.mu.Unlock()
		return false
	}
	b := t.completeLocked(idx, false)
	t.persistLocked()
	t.mu.Unlock()

	var a *award
	if b.Type == model.BlockExercise {
		a = &award{xp.ExerciseXP, xp.SourceExercise, "figure.run"}
	}
	t.afterComplete(b, false, a)
	return true
}

// CheckAutoComplete completes every pending auto-completing block whose end
// has passed and returns how many changed.
func (t *Tracker) CheckAutoComplete() int {
	now := t.clock.Now()

	t.mu.Lock()
	var done []model.TimeBlock
	for i, b := range t.routine.Blocks {
		if b.IsCompleted || !b.Type.AutoCompletes() {
			continue
		}
		if now.Before(b.EndOn(t.routine.Date)) {
			continue
		}
		done = append(done, t.completeLocked(i, true))
	}
	if len(done) > 0 {
		t.persistLocked()
	}
	t.mu.Unlock()

	for _, b := range done {
		t.afterComplete(b, true, nil)
	}
	return len(done)
}

// CheckWakeUp completes the wake-up block once per day, as soon as its
// window has started, and raises the morning greeting for a few seconds.
func (t *Tracker) CheckWakeUp() bool {
	now := t.clock.Now()
	today := clock.DateKey(now)

	if t.stampIs(store.KeyLastWakeCompleted, today) {
		return false
	}

	t.mu.Lock()
	if !t.hasRoutineForLocked(now) {
		t.mu.Unlock()
		return false
	}
	idx := -1
	for i, b := range t.routine.Blocks {
		if b.Type == model.BlockWakeUp {
			idx = i
			break
		}
	}
	if idx < 0 || now.Before(t.routine.Blocks[idx].StartOn(t.routine.Date)) {
		t.mu.Unlock()
		return false
	}

	var b model.TimeBlock
	changed := !t.routine.Blocks[idx].IsCompleted
	if changed {
		b = t.completeLocked(idx, true)
		t.persistLocked()
	} else {
		b = t.routine.Blocks[idx]
	}
	t.setStamp(store.KeyLastWakeCompleted, today)
	t.showGreetingLocked()
	t.mu.Unlock()

	if changed {
		t.afterComplete(b, true, nil)
	}
	t.notifier.Notify("greeting", "shown", b.ID, nil)
	return true
}

// CompleteSleepIfNeeded completes the sleep block once per night, when the
// clock is past the start of sleep or before the end of it. Times before
// sleepEndHour belong to the previous day's night.
func (t *Tracker) CompleteSleepIfNeeded() bool {
	now := t.clock.Now()
	var night time.Time
	switch {
	case now.Hour() >= sleepStartHour:
		night = now
	case now.Hour() < sleepEndHour:
		night = now.AddDate(0, 0, -1)
	default:
		return false
	}
	key := clock.DateKey(night)

	if t.stampIs(store.KeyLastSleepCompleted, key) {
		return false
	}

	t.mu.Lock()
	if !t.hasRoutineForLocked(night) {
		t.mu.Unlock()
		return false
	}
	idx := -1
	for i, b := range t.routine.Blocks {
		if b.Type == model.BlockSleep {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return false
	}
	changed := !t.routine.Blocks[idx].IsCompleted
	var b model.TimeBlock
	if changed {
		b = t.completeLocked(idx, true)
		t.persistLocked()
	}
	t.setStamp(store.KeyLastSleepCompleted, key)
	t.mu.Unlock()

	if changed {
		t.afterComplete(b, true, nil)
	}
	return true
}

// Close stops a pending greeting timer.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.greetingTimer != nil {
		t.greetingTimer.Stop()
		t.greetingTimer = nil
	}
}

func (t *Tracker) showGreetingLocked() {
	t.greetingVisible = true
	if t.greetingTimer != nil {
		t.greetingTimer.Stop()
	}
	t.greetingTimer = time.AfterFunc(t.greetingDuration, t.hideGreeting)
}

func (t *Tracker) hideGreeting() {
	t.mu.Lock()
	if !t.greetingVisible {
		t.mu.Unlock()
		return
	}
	t.greetingVisible = false
	t.greetingTimer = nil
	t.mu.Unlock()

	t.notifier.Notify("greeting", "hidden", "", nil)
}

func (t *Tracker) indexLocked(id string) int {
	for i, b := range t.routine.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// completeLocked flips the block and writes its history record.
func (t *Tracker) completeLocked(i int, automatic bool) model.TimeBlock {
	t.routine.Blocks[i].IsCompleted = true
	b := t.routine.Blocks[i]

	c := model.BlockCompletion{
		Date:        clock.DateKey(t.routine.Date),
		BlockID:     b.ID,
		BlockType:   b.Type,
		Subject:     b.Subject,
		Automatic:   automatic,
		CompletedAt: t.clock.Now(),
	}
	if err := t.completions.Record(c); err != nil {
		t.logger.Error("record completion", "block_id", b.ID, "error", err)
	}
	return b
}

// afterComplete runs outside the lock so the XP engine never nests inside it.
func (t *Tracker) afterComplete(b model.TimeBlock, automatic bool, a *award) {
	t.logger.Debug("block completed", "block_id", b.ID, "type", b.Type, "automatic", automatic)
	t.notifier.Notify("block", "completed", b.ID, map[string]any{
		"type":      b.Type,
		"name":      b.DisplayName(),
		"automatic": automatic,
	})
	if a != nil && t.awarder != nil {
		t.awarder.AwardXP(a.amount, a.source, a.icon)
	}
}

func (t *Tracker) persistLocked() {
	if err := t.kv.SaveJSON(store.KeyRoutine, t.routine); err != nil {
		t.logger.Error("save routine snapshot", "error", err)
	}
}

func (t *Tracker) copyRoutineLocked() model.DailyRoutine {
	r := model.DailyRoutine{Date: t.routine.Date}
	if t.routine.Blocks != nil {
		r.Blocks = make([]model.TimeBlock, len(t.routine.Blocks))
		copy(r.Blocks, t.routine.Blocks)
	}
	return r
}

func (t *Tracker) stampIs(key, date string) bool {
	v, ok, err := t.kv.Get(key)
	if err != nil {
		t.logger.Error("read stamp", "key", key, "error", err)
		return false
	}
	return ok && v == date
}

func (t *Tracker) setStamp(key, date string) {
	if err := t.kv.Set(key, date); err != nil {
		t.logger.Error("write stamp", "key", key, "error", err)
	}
}

func studyXP(b model.TimeBlock) int {
	cycles, minutes := 0, 0
	if b.Cycles != nil {
		cycles = *b.Cycles
	}
	if b.StudyDuration != nil {
		minutes = *b.StudyDuration
	}
	return xp.StudySessionXP(cycles, minutes)
}
