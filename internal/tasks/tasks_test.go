package tasks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/xp"
)

type fakeProvider struct {
	mu   sync.Mutex
	snap model.HealthSnapshot
}

func (p *fakeProvider) set(s model.HealthSnapshot) {
	p.mu.Lock()
	p.snap = s
	p.mu.Unlock()
}

func (p *fakeProvider) Today(context.Context, time.Time) (model.HealthSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap, nil
}

type fakeAwarder struct {
	awards []int
}

func (a *fakeAwarder) AwardXP(amount int, source, icon string) xp.AwardResult {
	a.awards = append(a.awards, amount)
	return xp.AwardResult{}
}

type fixture struct {
	set      *Set
	store    *store.TaskStore
	provider *fakeProvider
	awarder  *fakeAwarder
	clock    *clock.Fixed
}

var start = time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		store:    store.NewTaskStore(db),
		provider: &fakeProvider{},
		awarder:  &fakeAwarder{},
		clock:    clock.NewFixed(start),
	}
	f.set = New(f.store, f.provider, f.awarder, nil, f.clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func taskByCategory(t *testing.T, list []model.DailyTask, c model.TaskCategory) model.DailyTask {
	t.Helper()
	for _, task := range list {
		if task.Category == c {
			return task
		}
	}
	t.Fatalf("no %s task", c)
	return model.DailyTask{}
}

func TestNewBuildsAutoTasks(t *testing.T) {
	f := setup(t)

	list := f.set.Tasks()
	if len(list) != 3 {
		t.Fatalf("tasks = %d, want 3", len(list))
	}
	steps := taskByCategory(t, list, model.CategorySteps)
	if steps.GoalValue != 10000 || steps.RewardXP != xp.StepGoalXP {
		t.Errorf("steps task = %+v", steps)
	}
	water := taskByCategory(t, list, model.CategoryWater)
	if water.GoalValue != 8 || water.RewardXP != xp.WaterGoalXP {
		t.Errorf("water task = %+v", water)
	}

	stored, err := f.store.ListByDate("2026-02-05")
	if err != nil {
		t.Fatalf("list stored: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("stored = %d, want 3", len(stored))
	}
}

func TestRefreshCompletesAndAwardsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.provider.set(model.HealthSnapshot{Steps: 6000, WaterGlasses: 8})
	f.set.Refresh(ctx)

	list := f.set.Tasks()
	if steps := taskByCategory(t, list, model.CategorySteps); steps.IsCompleted || steps.CurrentValue != 6000 {
		t.Errorf("steps = %+v, want 6000 pending", steps)
	}
	if water := taskByCategory(t, list, model.CategoryWater); !water.IsCompleted {
		t.Error("water goal met but task not completed")
	}
	if len(f.awarder.awards) != 1 || f.awarder.awards[0] != xp.WaterGoalXP {
		t.Errorf("awards = %v, want [%d]", f.awarder.awards, xp.WaterGoalXP)
	}

	f.provider.set(model.HealthSnapshot{Steps: 10500, WaterGlasses: 9})
	f.set.Refresh(ctx)
	f.set.Refresh(ctx)

	if len(f.awarder.awards) != 2 || f.awarder.awards[1] != xp.StepGoalXP {
		t.Errorf("awards = %v, want [%d %d]", f.awarder.awards, xp.WaterGoalXP, xp.StepGoalXP)
	}
	if got := f.set.TotalXPEarned(); got != xp.WaterGoalXP+xp.StepGoalXP {
		t.Errorf("TotalXPEarned = %d, want %d", got, xp.WaterGoalXP+xp.StepGoalXP)
	}
}

func TestManualTaskLifecycle(t *testing.T) {
	f := setup(t)

	task, err := f.set.AddManual("  Read a chapter ", model.CategoryStudy, 0, 15)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if task.Title != "Read a chapter" || task.GoalValue != 1 || task.Type != model.TaskManual {
		t.Errorf("task = %+v", task)
	}

	if !f.set.CompleteManual(task.ID) {
		t.Fatal("expected completion")
	}
	if f.set.CompleteManual(task.ID) {
		t.Error("second completion should be a no-op")
	}
	if len(f.awarder.awards) != 1 || f.awarder.awards[0] != 15 {
		t.Errorf("awards = %v, want [15]", f.awarder.awards)
	}
	if got := f.set.CompletionRate(); got != 0.25 {
		t.Errorf("CompletionRate = %v, want 0.25", got)
	}
}

func TestCompleteManualRejectsAuto(t *testing.T) {
	f := setup(t)
	steps := taskByCategory(t, f.set.Tasks(), model.CategorySteps)

	if f.set.CompleteManual(steps.ID) {
		t.Error("auto task completed manually")
	}
	if f.set.Remove(steps.ID) {
		t.Error("auto task removed")
	}
	if f.set.CompleteManual("missing") || f.set.Remove("missing") {
		t.Error("unknown id should be a no-op")
	}
}

func TestRemoveManual(t *testing.T) {
	f := setup(t)
	a, _ := f.set.AddManual("Stretch", model.CategoryFitness, 1, 5)
	b, _ := f.set.AddManual("Journal", model.CategoryMindfulness, 1, 5)

	if !f.set.Remove(a.ID) {
		t.Fatal("expected removal")
	}
	list := f.set.Tasks()
	if len(list) != 4 {
		t.Fatalf("tasks = %d, want 4", len(list))
	}
	for i, task := range list {
		if task.SortOrder != i {
			t.Errorf("task %d sort order = %d", i, task.SortOrder)
		}
	}
	if list[3].ID != b.ID {
		t.Errorf("last task = %q, want %q", list[3].ID, b.ID)
	}
}

func TestAddManualValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		title    string
		category model.TaskCategory
		goal     float64
		reward   int
		want     error
	}{
		{"empty title", "  ", model.CategoryCustom, 1, 0, ErrEmptyTitle},
		{"bad category", "x", "nap", 1, 0, ErrInvalidCategory},
		{"negative goal", "x", model.CategoryCustom, -1, 0, ErrInvalidGoal},
		{"negative reward", "x", model.CategoryCustom, 1, -5, ErrInvalidReward},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.set.AddManual(tt.title, tt.category, tt.goal, tt.reward); err != tt.want {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDayRolloverResets(t *testing.T) {
	f := setup(t)
	f.set.AddManual("Unfinished", model.CategoryCustom, 1, 10)
	f.provider.set(model.HealthSnapshot{WaterGlasses: 8})
	f.set.Refresh(context.Background())

	f.clock.Set(start.AddDate(0, 0, 1))
	f.provider.set(model.HealthSnapshot{WaterGlasses: 2})
	f.set.Refresh(context.Background())

	list := f.set.Tasks()
	if len(list) != 3 {
		t.Fatalf("tasks = %d after rollover, want 3", len(list))
	}
	for _, task := range list {
		if task.Type == model.TaskManual {
			t.Error("manual task survived rollover")
		}
	}
	if water := taskByCategory(t, list, model.CategoryWater); water.IsCompleted || water.CurrentValue != 2 {
		t.Errorf("water = %+v, want fresh pending task at 2", water)
	}
	if got := f.set.TotalXPEarned(); got != 0 {
		t.Errorf("TotalXPEarned = %d, want 0", got)
	}
}

func TestReloadFromStore(t *testing.T) {
	f := setup(t)
	task, _ := f.set.AddManual("Practice piano", model.CategoryCustom, 1, 20)

	reloaded := New(f.store, f.provider, f.awarder, nil, f.clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	list := reloaded.Tasks()
	if len(list) != 4 {
		t.Fatalf("tasks = %d, want 4", len(list))
	}
	found := false
	for _, task2 := range list {
		if task2.ID == task.ID {
			found = true
		}
	}
	if !found {
		t.Error("manual task not restored")
	}
}

func TestStatsResetAfterMidnightWithoutRefresh(t *testing.T) {
	f := setup(t)
	task, _ := f.set.AddManual("Stretch", model.CategoryCustom, 1, 25)
	f.set.CompleteManual(task.ID)
	if got := f.set.TotalXPEarned(); got != 25 {
		t.Fatalf("TotalXPEarned = %d, want 25", got)
	}

	f.clock.Set(time.Date(2026, 2, 6, 0, 5, 0, 0, time.UTC))
	if got := f.set.CompletionRate(); got != 0 {
		t.Errorf("CompletionRate = %v after midnight, want 0", got)
	}
	if got := f.set.TotalXPEarned(); got != 0 {
		t.Errorf("TotalXPEarned = %d after midnight, want 0", got)
	}
}
