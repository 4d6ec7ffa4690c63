package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/daybreak/internal/backup"
	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/logging"
	"github.com/dukerupert/daybreak/internal/push"
	"github.com/dukerupert/daybreak/internal/server"
	"github.com/dukerupert/daybreak/internal/tracker"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate vapid keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("DAYBREAK_VAPID_PUBLIC_KEY=%s\nDAYBREAK_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("DAYBREAK_LOG_LEVEL"), os.Getenv("DAYBREAK_LOG_FORMAT"))
	if err := run(logger); err != nil {
		logger.Error("daybreak exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	port := envOr("DAYBREAK_PORT", "8080")
	dbPath := envOr("DAYBREAK_DB_PATH", "daybreak.db")

	db, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cfg := server.Config{
		SweepInterval:   envDuration(logger, "DAYBREAK_SWEEP_INTERVAL", tracker.DefaultSweepInterval),
		ReminderLead:    envDuration(logger, "DAYBREAK_REMINDER_LEAD", push.DefaultLead),
		VAPIDPublicKey:  os.Getenv("DAYBREAK_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("DAYBREAK_VAPID_PRIVATE_KEY"),
		HealthURL:       os.Getenv("DAYBREAK_HEALTH_URL"),
		AdminToken:      os.Getenv("DAYBREAK_ADMIN_TOKEN"),
		OriginPatterns:  splitList(os.Getenv("DAYBREAK_WS_ORIGINS")),
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("DAYBREAK_BACKUP_S3_ENDPOINT"),
				Bucket:    os.Getenv("DAYBREAK_BACKUP_S3_BUCKET"),
				Region:    envOr("DAYBREAK_BACKUP_S3_REGION", "auto"),
				AccessKey: os.Getenv("DAYBREAK_BACKUP_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("DAYBREAK_BACKUP_S3_SECRET_KEY"),
			},
			Passphrase:    os.Getenv("DAYBREAK_BACKUP_PASSPHRASE"),
			Hour:          envInt(logger, "DAYBREAK_BACKUP_HOUR", 3),
			RetentionDays: envInt(logger, "DAYBREAK_BACKUP_RETENTION_DAYS", 30),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, cfg, clock.System{}, logger)
	srv.Start(ctx)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("daybreak listening", "addr", httpServer.Addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(logger *slog.Logger, key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func envInt(logger *slog.Logger, key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
