package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/routine"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/tracker"
)

// ProfileStore persists the user profile.
type ProfileStore interface {
	SaveJSON(key string, v any) error
}

type RoutineHandler struct {
	tracker  *tracker.Tracker
	profiles ProfileStore
	logger   *slog.Logger
}

func NewRoutineHandler(t *tracker.Tracker, profiles ProfileStore, logger *slog.Logger) *RoutineHandler {
	return &RoutineHandler{tracker: t, profiles: profiles, logger: logger}
}

type routineResponse struct {
	Routine         model.DailyRoutine `json:"routine"`
	Completed       int                `json:"completed"`
	Total           int                `json:"total"`
	GreetingVisible bool               `json:"greeting_visible"`
}

func (h *RoutineHandler) view(r model.DailyRoutine) routineResponse {
	if r.Blocks == nil {
		r.Blocks = []model.TimeBlock{}
	}
	return routineResponse{
		Routine:         r,
		Completed:       r.CompletedCount(),
		Total:           len(r.Blocks),
		GreetingVisible: h.tracker.GreetingVisible(),
	}
}

// GetProfile handles GET /api/profile
func (h *RoutineHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Profile())
}

// UpdateProfile handles PUT /api/profile. A saved profile replaces today's
// routine.
func (h *RoutineHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p model.UserProfile
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Subjects == nil {
		p.Subjects = []string{}
	}
	if err := routine.ValidateProfile(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.profiles.SaveJSON(store.KeyUserProfile, p); err != nil {
		h.logger.Error("save profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	h.logger.Info("profile updated", "subjects", len(p.Subjects), "tuition", p.HasTuition)
	writeJSON(w, http.StatusOK, h.view(h.tracker.Replace(p)))
}

// GetRoutine handles GET /api/routine. Today's routine is generated from the
// stored profile on first access.
func (h *RoutineHandler) GetRoutine(w http.ResponseWriter, r *http.Request) {
	rt := h.tracker.Regenerate(h.tracker.Profile())
	writeJSON(w, http.StatusOK, h.view(rt))
}

// Regenerate handles POST /api/routine/regenerate
func (h *RoutineHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	rt := h.tracker.Replace(h.tracker.Profile())
	writeJSON(w, http.StatusOK, h.view(rt))
}

// Pending handles GET /api/routine/pending
func (h *RoutineHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending := h.tracker.Pending()
	if pending == nil {
		pending = []model.TimeBlock{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// Conflicts handles GET /api/routine/conflicts
func (h *RoutineHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	conflicts := routine.Conflicts(h.tracker.Routine())
	if conflicts == nil {
		conflicts = []routine.Conflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

// CompleteBlock handles POST /api/blocks/{id}/complete
func (h *RoutineHandler) CompleteBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	block, ok := findBlock(h.tracker.Routine(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "block not found")
		return
	}
	if block.Type == model.BlockStudy {
		writeError(w, http.StatusConflict, "study blocks are completed by passing their quiz")
		return
	}

	changed := h.tracker.CompleteBlock(id)
	block, _ = findBlock(h.tracker.Routine(), id)
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "block": block})
}

// CompleteExercise handles POST /api/exercise/complete
func (h *RoutineHandler) CompleteExercise(w http.ResponseWriter, r *http.Request) {
	changed := h.tracker.CompleteExercise()
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

func findBlock(rt model.DailyRoutine, id string) (model.TimeBlock, bool) {
	for _, b := range rt.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return model.TimeBlock{}, false
}
