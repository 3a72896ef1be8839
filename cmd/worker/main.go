// Command worker runs Scout's maintenance jobs on a cron schedule. Today that
// is purging expired login sessions.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Saul-Punybz/scout/internal/config"
	"github.com/Saul-Punybz/scout/internal/db"
	"github.com/Saul-Punybz/scout/internal/models"
)

const sessionCleanupSchedule = "@hourly"

func main() {
	// Load configuration.
	cfg := config.Load()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("worker: starting scout worker")

	// Create a root context that is cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(ctx, cfg.DB)
	if err != nil {
		slog.Error("worker: database connection failed", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	sessionStore := models.NewSessionStore(database)

	cleanup := func() {
		jobCtx, jobCancel := context.WithTimeout(ctx, time.Minute)
		defer jobCancel()

		n, err := sessionStore.DeleteExpired(jobCtx, time.Now())
		if err != nil {
			slog.Error("worker: session cleanup", "err", err)
			return
		}
		slog.Info("worker: session cleanup complete", "deleted", n)
	}

	c := cron.New()
	_, err = c.AddFunc(sessionCleanupSchedule, func() {
		slog.Info("cron: session cleanup job triggered")
		cleanup()
	})
	if err != nil {
		slog.Error("worker: add session cleanup cron", "err", err)
		os.Exit(1)
	}

	// Run once at startup.
	cleanup()

	c.Start()
	slog.Info("worker: cron scheduler started", "session_cleanup", sessionCleanupSchedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("worker: received shutdown signal", "signal", sig.String())

	// Stop accepting new cron jobs.
	cronCtx := c.Stop()

	// Cancel the root context to signal in-flight jobs to stop.
	cancel()

	select {
	case <-cronCtx.Done():
		slog.Info("worker: cron scheduler stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("worker: cron scheduler stop timed out")
	}

	slog.Info("worker: shutdown complete")
}
