// Package main is the entry point for the Academy LMS background worker.
//
// The worker owns the periodic maintenance jobs, chiefly the full
// attendance-percentage reconciliation sweep. The API keeps percentages
// correct transactionally on every write; the sweep is the safety net that
// repairs derived state after crashes or manual data fixes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/academy-hub/academy-lms/config"
	"github.com/academy-hub/academy-lms/internal/infrastructure/persistence/postgres"
	"github.com/academy-hub/academy-lms/internal/infrastructure/scheduler"
	"github.com/academy-hub/academy-lms/internal/infrastructure/scheduler/jobs"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	// The scheduler stack logs through slog; the repositories keep the
	// application logger.
	slogger := setupSlog(cfg)
	log := setupLogger(cfg)

	slogger.Info("starting Academy LMS worker",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
		"reconcile_interval", cfg.Scheduler.ReconcileInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	// The worker also migrates so either binary can boot a fresh database.
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slogger.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		slogger.Warn("scheduler disabled by configuration, worker has nothing to do")
		return nil
	}

	sched := scheduler.New(scheduler.Config{
		Logger:     slogger,
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})

	metricsRepo := postgres.NewMetricsRepository(dbConn, log)
	reconcileJob := jobs.NewReconcilePercentagesJob(metricsRepo, slogger)

	if err := sched.Register(reconcileJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcileInterval)); err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// One sweep on boot catches anything that drifted while the worker was
	// down, instead of waiting a full interval.
	if _, err := sched.RunNow(ctx, reconcileJob.Name()); err != nil {
		slogger.Warn("initial reconcile failed", "error", err)
	}

	slogger.Info("Academy LMS worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	slogger.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("scheduler stop: %w", err)
	}

	slogger.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupSlog configures the slog logger used by the scheduler stack.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// setupLogger configures the application logger used by the repositories.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
