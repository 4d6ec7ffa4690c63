// Package server wires stores, the core components and the HTTP surface.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/daybreak/internal/backup"
	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/handler"
	"github.com/dukerupert/daybreak/internal/health"
	"github.com/dukerupert/daybreak/internal/middleware"
	"github.com/dukerupert/daybreak/internal/push"
	"github.com/dukerupert/daybreak/internal/quiz"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/tasks"
	"github.com/dukerupert/daybreak/internal/tracker"
	ws "github.com/dukerupert/daybreak/internal/websocket"
	"github.com/dukerupert/daybreak/internal/xp"
)

const (
	// XP-earning endpoints share a per-client budget.
	awardLimit  = 30
	awardWindow = time.Minute
)

type Config struct {
	SweepInterval   time.Duration
	ReminderLead    time.Duration
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	HealthURL       string
	AdminToken      string
	OriginPatterns  []string
	Backup          backup.Config
}

type Server struct {
	db     *sql.DB
	cfg    Config
	hub    *ws.Hub
	logger *slog.Logger

	engine  *xp.Engine
	tracker *tracker.Tracker
	tasks   *tasks.Set
	sweeper *tracker.Sweeper

	pushScheduler *push.Scheduler
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter

	routineH  *handler.RoutineHandler
	progressH *handler.ProgressHandler
	taskH     *handler.TaskHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler
}

func New(db *sql.DB, cfg Config, clk clock.Clock, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	kv := store.NewKVStore(db)
	players := store.NewPlayerStore(db)
	completions := store.NewCompletionStore(db)
	samples := store.NewHealthStore(db)
	taskStore := store.NewTaskStore(db)
	backupStore := store.NewBackupStore(db)
	pushStore := store.NewPushStore(db)

	engine := xp.NewEngine(players, hub, clk, logger.With("component", "xp"))
	tr := tracker.New(kv, completions, engine, hub, clk, logger.With("component", "tracker"))

	providers := health.Combined{health.NewStoreProvider(samples)}
	if cfg.HealthURL != "" {
		providers = append(providers, health.NewRemoteProvider(cfg.HealthURL))
	}
	set := tasks.New(taskStore, providers, engine, hub, clk, logger.With("component", "tasks"))

	sweeper := tracker.NewSweeper(tr, cfg.SweepInterval, logger.With("component", "sweeper"))
	sweeper.OnTick(set.Refresh)

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, clk, logger.With("component", "backup"))

	s := &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		logger:        logger,
		engine:        engine,
		tracker:       tr,
		tasks:         set,
		sweeper:       sweeper,
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(clk),
		routineH:      handler.NewRoutineHandler(tr, kv, logger.With("component", "routine")),
		progressH: handler.NewProgressHandler(engine, quiz.NewVerifier(tr, engine, logger.With("component", "quiz")),
			completions, players, logger.With("component", "progress")),
		taskH:   handler.NewTaskHandler(set, samples, clk, logger.With("component", "task")),
		backupH: handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
	}

	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		svc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		s.pushScheduler = push.NewScheduler(svc, pushStore, tr, clk, cfg.ReminderLead, logger.With("component", "push"))
		s.pushH = handler.NewPushHandler(pushStore, svc, logger.With("component", "push_handler"))
	}

	return s
}

// Start launches the background loops. They stop when ctx is cancelled or
// Stop is called.
func (s *Server) Start(ctx context.Context) {
	s.sweeper.Start(ctx)
	if s.pushScheduler != nil {
		s.pushScheduler.Start(ctx)
	} else {
		s.logger.Info("push reminders disabled (no VAPID keys)")
	}
	s.backupManager.Start(ctx)
}

// Stop halts the background loops and pending timers.
func (s *Server) Stop() {
	s.sweeper.Stop()
	if s.pushScheduler != nil {
		s.pushScheduler.Stop()
	}
	s.backupManager.Stop()
	s.tracker.Close()
	s.engine.Close()
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.OriginPatterns, s.logger))

	mux.HandleFunc("GET /api/profile", s.routineH.GetProfile)
	mux.HandleFunc("PUT /api/profile", s.routineH.UpdateProfile)

	mux.HandleFunc("GET /api/routine", s.routineH.GetRoutine)
	mux.HandleFunc("POST /api/routine/regenerate", s.routineH.Regenerate)
	mux.HandleFunc("GET /api/routine/pending", s.routineH.Pending)
	mux.HandleFunc("GET /api/routine/conflicts", s.routineH.Conflicts)
	mux.HandleFunc("POST /api/blocks/{id}/complete", s.routineH.CompleteBlock)
	mux.HandleFunc("POST /api/exercise/complete", s.routineH.CompleteExercise)

	mux.Handle("POST /api/blocks/{id}/quiz", s.limited(s.progressH.SubmitQuiz))
	mux.Handle("POST /api/activities", s.limited(s.progressH.LogActivity))
	mux.HandleFunc("GET /api/player", s.progressH.GetPlayer)
	mux.HandleFunc("GET /api/player/events", s.progressH.ListEvents)
	mux.HandleFunc("GET /api/achievements", s.progressH.ListAchievements)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.Handle("POST /api/health/samples", s.limited(s.taskH.AddSample))

	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	}

	admin := middleware.RequireToken(s.cfg.AdminToken)
	mux.Handle("GET /api/backups", admin(http.HandlerFunc(s.backupH.List)))
	mux.Handle("GET /api/backups/status", admin(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("POST /api/backups", admin(http.HandlerFunc(s.backupH.Run)))
	mux.Handle("GET /api/backups/{id}/download", admin(http.HandlerFunc(s.backupH.Download)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, awardLimit, awardWindow)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	dbState := "ok"
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check ping", "error", err)
		status = http.StatusServiceUnavailable
		dbState = "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     http.StatusText(status),
		"database":   dbState,
		"ws_clients": s.hub.ClientCount(),
		"backup":     s.backupManager.Status().State,
		"push":       s.pushScheduler != nil,
	})
}
