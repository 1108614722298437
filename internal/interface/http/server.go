// Package http implements the REST API for the academy LMS: user and course
// administration, enrollment, lesson scheduling, attendance marking, and the
// read-side summary and dashboard endpoints.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-lms/internal/application/command"
	"github.com/academy-hub/academy-lms/internal/application/query"
	"github.com/academy-hub/academy-lms/internal/interface/http/handlers"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds the listener and middleware settings.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	EnableCORS     bool
	AllowedOrigins []string

	// Requests per minute per client IP. Zero disables limiting.
	RateLimitPerMinute int
}

// DefaultConfig returns the settings used when no config section overrides
// them.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 100,
	}
}

// Address formats the host:port pair the server binds to.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies carries the command and query handlers routes dispatch to.
// A nil handler leaves its route responding 501, which keeps partial
// wirings (tests, worker-only deployments) honest instead of panicking.
type Dependencies struct {
	CreateUserHandler          *command.CreateUserHandler
	CreateCourseHandler        *command.CreateCourseHandler
	UpdateCourseHandler        *command.UpdateCourseHandler
	DeactivateCourseHandler    *command.DeactivateCourseHandler
	EnrollStudentHandler       *command.EnrollStudentHandler
	EnrollStudentBatchHandler  *command.EnrollStudentBatchHandler
	ScheduleLessonHandler      *command.ScheduleLessonHandler
	MarkAttendanceHandler      *command.MarkAttendanceHandler
	MarkAttendanceBatchHandler *command.MarkAttendanceBatchHandler
	RecomputeHandler           *command.RecomputePercentageHandler

	GetAttendanceSummaryHandler *query.GetAttendanceSummaryHandler
	GetCourseRosterHandler      *query.GetCourseRosterHandler
	GetDashboardHandler         *query.GetDashboardHandler
	GetTeacherCoursesHandler    *query.GetTeacherCoursesHandler
	GetSlotHandler              *query.GetSlotHandler

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server owns the mux, the middleware chain, and the lifecycle.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *logger.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

type middleware func(http.Handler) http.Handler

// NewServer wires routes and middleware. The returned server is ready for
// Start or, in tests, for serving through its handler directly.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.registerRoutes()

	// Outermost first: limiting and CORS see the request before anything
	// is logged, recovery catches panics from everything inside it.
	chain := []middleware{}
	if s.rateLimiter != nil {
		chain = append(chain, s.withRateLimit)
	}
	if config.EnableCORS {
		chain = append(chain, s.withCORS)
	}
	chain = append(chain, s.withRecovery, s.withLogging, s.withRequestID)

	var h http.Handler = s.router
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        h,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

func (s *Server) registerRoutes() {
	// Health and status
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /", s.handleRoot)

	// Users and dashboards
	s.router.HandleFunc("POST /api/v1/users", s.handleCreateUser)
	s.router.HandleFunc("GET /api/v1/dashboard", s.handleGetDashboard)

	// Courses and scheduling
	s.router.HandleFunc("POST /api/v1/courses", s.handleCreateCourse)
	s.router.HandleFunc("PUT /api/v1/courses/{id}", s.handleUpdateCourse)
	s.router.HandleFunc("DELETE /api/v1/courses/{id}", s.handleDeactivateCourse)
	s.router.HandleFunc("GET /api/v1/courses/{id}/roster", s.handleGetCourseRoster)
	s.router.HandleFunc("GET /api/v1/slots", s.handleGetSlot)
	s.router.HandleFunc("GET /api/v1/teachers/{id}/courses", s.handleGetTeacherCourses)

	// Enrollments
	s.router.HandleFunc("POST /api/v1/enrollments", s.handleEnrollStudent)
	s.router.HandleFunc("POST /api/v1/enrollments/batch", s.handleEnrollStudentBatch)
	s.router.HandleFunc("POST /api/v1/enrollments/recompute", s.handleRecompute)

	// Lessons and attendance
	s.router.HandleFunc("POST /api/v1/lessons", s.handleScheduleLesson)
	s.router.HandleFunc("POST /api/v1/attendance", s.handleMarkAttendance)
	s.router.HandleFunc("POST /api/v1/attendance/batch", s.handleMarkAttendanceBatch)
	s.router.HandleFunc("GET /api/v1/students/{id}/attendance", s.handleGetAttendanceSummary)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// withRequestID honors an inbound X-Request-ID or mints one, echoes it on
// the response, and stores it in the context for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.status),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", rec),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync serves in a goroutine; the channel closes on clean shutdown.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether Start has been called and not yet shut down.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been serving, zero when stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the configured bind address.
func (s *Server) Address() string {
	return s.config.Address()
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope every endpoint returns.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError carries a stable machine code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta stamps the response.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, resp JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	resp.Meta = &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message},
	})
}

func writeJSONErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeEnvelope(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// getClientIP resolves the client address, preferring proxy headers over
// the socket peer.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndexByte(addr, ':'); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func getQueryParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter is a fixed-window counter per key. Windows reset lazily on
// the next request; stale keys are pruned during Allow so no background
// goroutine is needed.
type rateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	limit     int
	window    time.Duration
	lastPrune time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		windows:   make(map[string]*rateWindow),
		limit:     limit,
		window:    window,
		lastPrune: time.Now(),
	}
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.pruneLocked(now)

	w := rl.windows[key]
	if w == nil || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}

	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *rateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.window {
		return
	}
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
		}
	}
	rl.lastPrune = now
}
