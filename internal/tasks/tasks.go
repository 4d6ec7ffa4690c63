// Package tasks maintains the per-day set of health-goal tasks: auto tasks
// fed from health data and manual tasks added by the user.
//
// The set belongs to one calendar date. The first access on a new date
// resets it: manual tasks are dropped and auto tasks start from zero.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/health"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/xp"
)

const (
	DistanceGoalXP = 20
	retentionDays  = 30
)

var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidGoal     = errors.New("goal must be positive")
	ErrInvalidReward   = errors.New("reward must not be negative")
)

type Store interface {
	ReplaceDay(date string, tasks []model.DailyTask) error
	ListByDate(date string) ([]model.DailyTask, error)
	DeleteBefore(date string) error
}

type Awarder interface {
	AwardXP(amount int, source, icon string) xp.AwardResult
}

type Notifier interface {
	Notify(entity, action, id string, extra map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string, map[string]any) {}

type autoGoal struct {
	title    string
	category model.TaskCategory
	goal     float64
	unit     string
	reward   int
}

var autoGoals = []autoGoal{
	{"Walk 10,000 steps", model.CategorySteps, 10000, "steps", xp.StepGoalXP},
	{"Drink 8 glasses of water", model.CategoryWater, 8, "glasses", xp.WaterGoalXP},
	{"Cover 5 km", model.CategoryDistance, 5, "km", DistanceGoalXP},
}

func categoryIcon(c model.TaskCategory) string {
	switch c {
	case model.CategorySteps:
		return "figure.walk"
	case model.CategoryWater:
		return "drop"
	case model.CategoryDistance:
		return "map"
	case model.CategoryStudy:
		return "book"
	case model.CategoryFitness:
		return "dumbbell"
	case model.CategoryMindfulness:
		return "brain.head.profile"
	default:
		return "checkmark"
	}
}

// Set is the daily task set.
type Set struct {
	store    Store
	provider health.Provider
	awarder  Awarder
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger

	mu    sync.Mutex
	date  string
	tasks []model.DailyTask
}

// New loads today's tasks, building a fresh set if none are stored.
func New(store Store, provider health.Provider, awarder Awarder, notifier Notifier, clk clock.Clock, logger *slog.Logger) *Set {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &Set{
		store:    store,
		provider: provider,
		awarder:  awarder,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}

	today := clock.DateKey(clk.Now())
	stored, err := store.ListByDate(today)
	if err != nil {
		logger.Error("load daily tasks", "date", today, "error", err)
	}
	if len(stored) > 0 {
		s.date = today
		s.tasks = stored
	} else {
		s.mu.Lock()
		s.resetLocked(clk.Now())
		s.mu.Unlock()
	}
	return s
}

// Refresh resets the set if the date changed, then pulls current health
// totals into the auto tasks. Each auto task that reaches its goal awards
// its reward once.
func (s *Set) Refresh(ctx context.Context) {
	now := s.clock.Now()

	var snap model.HealthSnapshot
	var snapErr error
	if s.provider != nil {
		snap, snapErr = s.provider.Today(ctx, now)
		if snapErr != nil {
			s.logger.Warn("fetch health data", "error", snapErr)
		}
	}

	s.mu.Lock()
	s.ensureTodayLocked(now)
	if s.provider == nil || snapErr != nil {
		s.mu.Unlock()
		return
	}

	var completed []model.DailyTask
	changed := false
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Type != model.TaskAuto {
			continue
		}
		v := snap.Value(metricFor(t.Category))
		if v != t.CurrentValue {
			t.CurrentValue = v
			changed = true
		}
		if !t.IsCompleted && t.CurrentValue >= t.GoalValue {
			t.IsCompleted = true
			changed = true
			completed = append(completed, *t)
		}
	}
	if changed {
		s.persistLocked()
	}
	s.mu.Unlock()

	for _, t := range completed {
		s.afterComplete(t)
	}
}

// AddManual appends a user task to today's set.
func (s *Set) AddManual(title string, category model.TaskCategory, goal float64, rewardXP int) (model.DailyTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.DailyTask{}, ErrEmptyTitle
	}
	if category == "" {
		category = model.CategoryCustom
	}
	if !category.IsValid() {
		return model.DailyTask{}, ErrInvalidCategory
	}
	if goal == 0 {
		goal = 1
	}
	if goal < 0 {
		return model.DailyTask{}, ErrInvalidGoal
	}
	if rewardXP < 0 {
		return model.DailyTask{}, ErrInvalidReward
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked(s.clock.Now())

	t := model.DailyTask{
		ID:        uuid.NewString(),
		Title:     title,
		Category:  category,
		Type:      model.TaskManual,
		GoalValue: goal,
		RewardXP:  rewardXP,
		SortOrder: len(s.tasks),
	}
	s.tasks = append(s.tasks, t)
	s.persistLocked()
	return t, nil
}

// CompleteManual completes a pending manual task and awards its reward.
func (s *Set) CompleteManual(id string) bool {
	s.mu.Lock()
	s.ensureTodayLocked(s.clock.Now())
	idx := s.indexLocked(id)
	if idx < 0 || s.tasks[idx].Type != model.TaskManual || s.tasks[idx].IsCompleted {
		s.mu.Unlock()
		return false
	}
	s.tasks[idx].IsCompleted = true
	s.tasks[idx].CurrentValue = s.tasks[idx].GoalValue
	t := s.tasks[idx]
	s.persistLocked()
	s.mu.Unlock()

	s.afterComplete(t)
	return true
}

// Remove deletes a manual task. Auto tasks cannot be removed.
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked(s.clock.Now())

	idx := s.indexLocked(id)
	if idx < 0 || s.tasks[idx].Type != model.TaskManual {
		return false
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	for i := range s.tasks {
		s.tasks[i].SortOrder = i
	}
	s.persistLocked()
	return true
}

// Tasks returns today's tasks in display order.
func (s *Set) Tasks() []model.DailyTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked(s.clock.Now())
	out := make([]model.DailyTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// CompletionRate is completed/total, or 0 for an empty set.
func (s *Set) CompletionRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked(s.clock.Now())
	if len(s.tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range s.tasks {
		if t.IsCompleted {
			done++
		}
	}
	return float64(done) / float64(len(s.tasks))
}

// TotalXPEarned sums the reward of completed tasks.
func (s *Set) TotalXPEarned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked(s.clock.Now())
	sum := 0
	for _, t := range s.tasks {
		if t.IsCompleted {
			sum += t.RewardXP
		}
	}
	return sum
}

func (s *Set) ensureTodayLocked(now time.Time) {
	if s.date != clock.DateKey(now) {
		s.resetLocked(now)
	}
}

func (s *Set) resetLocked(now time.Time) {
	prev := s.date
	s.date = clock.DateKey(now)
	s.tasks = make([]model.DailyTask, 0, len(autoGoals))
	for i, g := range autoGoals {
		s.tasks = append(s.tasks, model.DailyTask{
			ID:        uuid.NewString(),
			Title:     g.title,
			Category:  g.category,
			Type:      model.TaskAuto,
			GoalValue: g.goal,
			Unit:      g.unit,
			RewardXP:  g.reward,
			SortOrder: i,
		})
	}
	s.persistLocked()

	cutoff := clock.DateKey(now.AddDate(0, 0, -retentionDays))
	if err := s.store.DeleteBefore(cutoff); err != nil {
		s.logger.Error("prune daily tasks", "before", cutoff, "error", err)
	}
	if prev != "" {
		s.logger.Info("daily tasks reset", "from", prev, "to", s.date)
	}
}

func (s *Set) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Set) persistLocked() {
	if err := s.store.ReplaceDay(s.date, s.tasks); err != nil {
		s.logger.Error("save daily tasks", "date", s.date, "error", err)
	}
}

func (s *Set) afterComplete(t model.DailyTask) {
	s.notifier.Notify("task", "completed", t.ID, map[string]any{
		"title":     t.Title,
		"reward_xp": t.RewardXP,
	})
	if t.RewardXP != 0 && s.awarder != nil {
		s.awarder.AwardXP(t.RewardXP, xp.SourceTask, categoryIcon(t.Category))
	}
}

func metricFor(c model.TaskCategory) model.HealthMetric {
	switch c {
	case model.CategorySteps:
		return model.MetricSteps
	case model.CategoryWater:
		return model.MetricWater
	case model.CategoryDistance:
		return model.MetricDistance
	default:
		return ""
	}
}
