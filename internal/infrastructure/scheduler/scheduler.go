// Package scheduler runs periodic maintenance jobs, the attendance
// percentage reconciliation sweep foremost.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name identifies the job; registration rejects duplicates.
	Name() string

	// Run does the work. The context carries the per-run timeout and is
	// cancelled when the scheduler stops.
	Run(ctx context.Context) error

	// Description is shown in status listings.
	Description() string
}

// Schedule decides when a job runs.
type Schedule interface {
	// Next returns the first run time after t.
	Next(t time.Time) time.Time

	// String renders the cadence for status listings.
	String() string
}

// JobResult records one execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

// JobInfo describes a registered job for status listings.
type JobInfo struct {
	Name        string
	Description string
	Enabled     bool
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

var (
	ErrNilJob                  = fmt.Errorf("job cannot be nil")
	ErrNilSchedule             = fmt.Errorf("schedule cannot be nil")
	ErrJobAlreadyExists        = fmt.Errorf("job already exists")
	ErrJobNotFound             = fmt.Errorf("job not found")
	ErrSchedulerAlreadyRunning = fmt.Errorf("scheduler is already running")
	ErrSchedulerNotRunning     = fmt.Errorf("scheduler is not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler owns a set of jobs and a single loop that sleeps until the
// earliest due job instead of polling. Jobs run in their own goroutines;
// a schedule is advanced before its job starts, so a slow run never
// overlaps with itself.
type Scheduler struct {
	mu sync.RWMutex

	logger     *slog.Logger
	timezone   *time.Location
	jobTimeout time.Duration

	entries map[string]*entry
	results map[string]*JobResult

	running bool
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type entry struct {
	job       Job
	schedule  Schedule
	enabled   bool
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
}

// Config contains scheduler configuration.
type Config struct {
	Logger *slog.Logger

	// Timezone for schedule calculations, UTC when nil.
	Timezone *time.Location

	// JobTimeout bounds a single run, 5m when unset.
	JobTimeout time.Duration
}

// New creates a scheduler. Register jobs before or after Start; the loop
// wakes up on registration.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	return &Scheduler{
		logger:     cfg.Logger,
		timezone:   cfg.Timezone,
		jobTimeout: cfg.JobTimeout,
		entries:    make(map[string]*entry),
		results:    make(map[string]*JobResult),
		wake:       make(chan struct{}, 1),
	}
}

// Register adds a job with its schedule.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	name := job.Name()
	if _, exists := s.entries[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		enabled:  true,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}
	s.entries[name] = e
	s.mu.Unlock()

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"next_run", e.nextRun.Format(time.RFC3339),
	)

	s.notify()
	return nil
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	jobCount := len(s.entries)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs_count", jobCount)

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop cancels the loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOP
// ══════════════════════════════════════════════════════════════════════════════

// idleWait bounds the sleep when no job is due, so clock adjustments and
// missed wakeups self-heal.
const idleWait = time.Minute

func (s *Scheduler) loop() {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		wait := s.dispatchDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// dispatchDue starts every due job and returns how long the loop may
// sleep until the next one.
func (s *Scheduler) dispatchDue() time.Duration {
	now := time.Now().In(s.timezone)
	wait := idleWait

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.enabled || e.nextRun.IsZero() {
			continue
		}
		if now.After(e.nextRun) {
			due = append(due, e)
			// Advance before the run so the job cannot overlap itself.
			e.lastRun = now
			e.nextRun = e.schedule.Next(now)
			e.runCount++
		}
		if d := e.nextRun.Sub(now); d > 0 && d < wait {
			wait = d
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go s.execute(e)
	}
	return wait
}

func (s *Scheduler) execute(e *entry) {
	defer s.wg.Done()

	name := e.job.Name()
	s.logger.Info("job started", "job", name)

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	result := s.runAndRecord(ctx, name, e)
	cancel()

	if result.Error != nil {
		s.mu.Lock()
		e.failCount++
		s.mu.Unlock()
		s.logger.Error("job failed", "job", name, "duration", result.Duration.String(), "error", result.Error)
		return
	}
	s.logger.Info("job completed", "job", name, "duration", result.Duration.String())
}

func (s *Scheduler) runAndRecord(ctx context.Context, name string, e *entry) *JobResult {
	startedAt := time.Now()
	err := e.job.Run(ctx)
	completedAt := time.Now()

	result := &JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Success:     err == nil,
		Error:       err,
	}

	s.mu.Lock()
	s.results[name] = result
	s.mu.Unlock()
	return result
}

// RunNow executes a job immediately, ignoring its schedule. The result is
// recorded the same way a scheduled run would be.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	e, exists := s.entries[jobName]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	result := s.runAndRecord(ctx, jobName, e)
	return result, result.Error
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// ListJobs returns information about all registered jobs.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: e.job.Description(),
			Enabled:     e.enabled,
			Schedule:    e.schedule.String(),
			LastRun:     e.lastRun,
			NextRun:     e.nextRun,
			RunCount:    e.runCount,
			FailCount:   e.failCount,
			LastResult:  s.results[name],
		})
	}
	return infos
}
