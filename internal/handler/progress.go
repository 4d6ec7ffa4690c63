package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/quiz"
	"github.com/dukerupert/daybreak/internal/xp"
)

// StatsSource counts the history achievements are measured against.
type StatsSource interface {
	CountByType(t model.BlockType) (int, error)
}

// EventCounter counts persisted XP events by source.
type EventCounter interface {
	CountEventsBySource(source string) (int, error)
}

type ProgressHandler struct {
	engine      *xp.Engine
	verifier    *quiz.Verifier
	completions StatsSource
	events      EventCounter
	logger      *slog.Logger
}

func NewProgressHandler(engine *xp.Engine, verifier *quiz.Verifier, completions StatsSource, events EventCounter, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{
		engine:      engine,
		verifier:    verifier,
		completions: completions,
		events:      events,
		logger:      logger,
	}
}

type playerResponse struct {
	model.PlayerProfile
	Progress     float64 `json:"progress"`
	NextLevelXP  int     `json:"next_level_xp"`
	PopupVisible bool    `json:"popup_visible"`
}

// GetPlayer handles GET /api/player
func (h *ProgressHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p := h.engine.Player()
	writeJSON(w, http.StatusOK, playerResponse{
		PlayerProfile: p,
		Progress:      h.engine.Progress(),
		NextLevelXP:   xp.XPRequired(p.Level + 1),
		PopupVisible:  h.engine.PopupVisible(),
	})
}

// ListEvents handles GET /api/player/events
func (h *ProgressHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events := h.engine.Events()
	if events == nil {
		events = []model.XPEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListAchievements handles GET /api/achievements
func (h *ProgressHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	p := h.engine.Player()
	stats := xp.Stats{Level: p.Level, TotalXP: p.TotalXP}

	var err error
	if stats.StudySessions, err = h.completions.CountByType(model.BlockStudy); err != nil {
		h.logger.Error("count study sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load achievements")
		return
	}
	if stats.PerfectQuizzes, err = h.events.CountEventsBySource(xp.SourcePerfectQuiz); err != nil {
		h.logger.Error("count perfect quizzes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load achievements")
		return
	}

	list := xp.Achievements(stats)
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": list,
		"earned":       xp.CountEarned(list),
		"total":        len(list),
	})
}

// LogActivity handles POST /api/activities. Activities are standalone and do
// not touch the routine.
func (h *ProgressHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	activity, err := xp.ParseActivity(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, source, icon := xp.ActivityXP(activity)
	res := h.engine.AwardXP(amount, source, icon)
	writeJSON(w, http.StatusCreated, res)
}

// SubmitQuiz handles POST /api/blocks/{id}/quiz
func (h *ProgressHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Correct int `json:"correct"`
		Total   int `json:"total"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.verifier.Submit(r.PathValue("id"), req.Correct, req.Total)
	switch {
	case errors.Is(err, quiz.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, quiz.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, quiz.ErrNotStudyBlock), errors.Is(err, quiz.ErrBlockCompleted):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("submit quiz", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit quiz")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
