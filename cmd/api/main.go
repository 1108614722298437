// Package main is the entry point for the Academy LMS API server.
//
// The API serves the full write side (user administration, course
// scheduling, enrollment, lesson calendar, attendance marking) and the read
// side (attendance summaries, rosters, dashboards) over REST.
//
// Architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, cache, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/academy-hub/academy-lms/config"

	// Application layer
	"github.com/academy-hub/academy-lms/internal/application/command"
	"github.com/academy-hub/academy-lms/internal/application/eventhandler"
	"github.com/academy-hub/academy-lms/internal/application/query"

	// Infrastructure layer
	"github.com/academy-hub/academy-lms/internal/infrastructure/messaging"
	"github.com/academy-hub/academy-lms/internal/infrastructure/persistence/postgres"
	"github.com/academy-hub/academy-lms/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/academy-hub/academy-lms/internal/interface/http"
	"github.com/academy-hub/academy-lms/internal/interface/http/handlers"

	// Packages
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
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Academy LMS API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS CACHE
	// ─────────────────────────────────────────────────────────────────────────
	cache, err := redis.Connect(ctx, cfg.Redis, log)
	if err != nil {
		// The read side works without Redis; it just loses its cache layer.
		log.Warn("redis unavailable, caching disabled", logger.Err(err))
		cache = redis.NewWithClient(nil, log)
	}
	defer cache.Close()

	summaryCache := redis.NewSummaryCache(cache, cfg.Redis.SummaryTTL, cfg.Redis.DashboardTTL)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS & SUBSCRIBERS
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewInMemoryEventBus(messaging.Options{}, log)
	defer func() {
		log.Info("closing event bus...")
		eventBus.Close()
	}()

	invalidator := eventhandler.NewOnAttendanceMarked(summaryCache, log)
	eventBus.SubscribeAll(invalidator)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn, log)
	courseRepo := postgres.NewCourseRepository(dbConn, log)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn, log)
	lessonRepo := postgres.NewLessonRepository(dbConn, log)
	attendanceRepo := postgres.NewAttendanceRepository(dbConn, log)
	metricsRepo := postgres.NewMetricsRepository(dbConn, log)
	referenceRepo := postgres.NewReferenceRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	markAttendance := command.NewMarkAttendanceHandler(attendanceRepo, lessonRepo, courseRepo, userRepo, eventBus, log)

	deps := httpserver.Dependencies{
		CreateUserHandler:          command.NewCreateUserHandler(userRepo, eventBus, log),
		CreateCourseHandler:        command.NewCreateCourseHandler(courseRepo, userRepo, referenceRepo, eventBus, log),
		UpdateCourseHandler:        command.NewUpdateCourseHandler(courseRepo, userRepo, referenceRepo, eventBus, log),
		DeactivateCourseHandler:    command.NewDeactivateCourseHandler(courseRepo, userRepo, eventBus, log),
		EnrollStudentHandler:       command.NewEnrollStudentHandler(enrollmentRepo, courseRepo, userRepo, eventBus, log),
		EnrollStudentBatchHandler:  command.NewEnrollStudentBatchHandler(enrollmentRepo, courseRepo, userRepo, eventBus, log),
		ScheduleLessonHandler:      command.NewScheduleLessonHandler(lessonRepo, courseRepo, userRepo, eventBus, log),
		MarkAttendanceHandler:      markAttendance,
		MarkAttendanceBatchHandler: command.NewMarkAttendanceBatchHandler(markAttendance, log),
		RecomputeHandler:           command.NewRecomputePercentageHandler(metricsRepo, eventBus, log),

		GetAttendanceSummaryHandler: query.NewGetAttendanceSummaryHandler(enrollmentRepo, courseRepo, lessonRepo, attendanceRepo, summaryCache, log),
		GetCourseRosterHandler:      query.NewGetCourseRosterHandler(courseRepo, enrollmentRepo, lessonRepo, userRepo, log),
		GetDashboardHandler:         query.NewGetDashboardHandler(userRepo, courseRepo, enrollmentRepo, summaryCache, log),
		GetTeacherCoursesHandler:    query.NewGetTeacherCoursesHandler(courseRepo, enrollmentRepo, lessonRepo, log),
		GetSlotHandler:              query.NewGetSlotHandler(courseRepo),

		Logger:        log,
		HealthChecker: buildHealthChecker(cfg, dbConn, cache),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(serverCfg, deps)
	serverErr := server.StartAsync()

	log.Info("Academy LMS API is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging from the observability settings.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

// buildHealthChecker wires database and cache probes for /health and /ready.
func buildHealthChecker(cfg *config.Config, db *postgres.Connection, cache *redis.Cache) handlers.HealthChecker {
	checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
	if cache.Enabled() {
		checker.AddCheck("cache", handlers.NewCacheCheck(cache))
	}
	return checker
}
