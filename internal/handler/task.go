package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/tasks"
)

// SampleRecorder stores manually logged health values.
type SampleRecorder interface {
	Add(metric model.HealthMetric, value float64, at time.Time) (*model.HealthSample, error)
}

type TaskHandler struct {
	set     *tasks.Set
	samples SampleRecorder
	clock   clock.Clock
	logger  *slog.Logger
}

func NewTaskHandler(set *tasks.Set, samples SampleRecorder, clk clock.Clock, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{set: set, samples: samples, clock: clk, logger: logger}
}

type taskListResponse struct {
	Tasks          []model.DailyTask `json:"tasks"`
	CompletionRate float64           `json:"completion_rate"`
	TotalXPEarned  int               `json:"total_xp_earned"`
}

// List handles GET /api/tasks. Health totals are pulled before answering.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	h.set.Refresh(r.Context())
	h.writeList(w, http.StatusOK)
}

func (h *TaskHandler) writeList(w http.ResponseWriter, status int) {
	list := h.set.Tasks()
	if list == nil {
		list = []model.DailyTask{}
	}
	writeJSON(w, status, taskListResponse{
		Tasks:          list,
		CompletionRate: h.set.CompletionRate(),
		TotalXPEarned:  h.set.TotalXPEarned(),
	})
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string             `json:"title"`
		Category model.TaskCategory `json:"category"`
		Goal     float64            `json:"goal"`
		RewardXP int                `json:"reward_xp"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.set.AddManual(req.Title, req.Category, req.Goal, req.RewardXP)
	switch {
	case errors.Is(err, tasks.ErrEmptyTitle),
		errors.Is(err, tasks.ErrInvalidCategory),
		errors.Is(err, tasks.ErrInvalidGoal),
		errors.Is(err, tasks.ErrInvalidReward):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("add task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Complete handles POST /api/tasks/{id}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.exists(id) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	changed := h.set.CompleteManual(id)
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// Delete handles DELETE /api/tasks/{id}. Only manual tasks can be removed.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.exists(id) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if !h.set.Remove(id) {
		writeError(w, http.StatusConflict, "automatic tasks cannot be removed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) exists(id string) bool {
	for _, t := range h.set.Tasks() {
		if t.ID == id {
			return true
		}
	}
	return false
}

// AddSample handles POST /api/health/samples. The task set is refreshed so a
// sample that reaches a goal completes its task immediately.
func (h *TaskHandler) AddSample(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metric model.HealthMetric `json:"metric"`
		Value  float64            `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Metric.IsValid() {
		writeError(w, http.StatusBadRequest, "metric must be steps, water or distance")
		return
	}
	if req.Value <= 0 {
		writeError(w, http.StatusBadRequest, "value must be positive")
		return
	}

	sample, err := h.samples.Add(req.Metric, req.Value, h.clock.Now())
	if err != nil {
		h.logger.Error("add health sample", "metric", req.Metric, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record sample")
		return
	}

	h.set.Refresh(r.Context())
	writeJSON(w, http.StatusCreated, sample)
}
