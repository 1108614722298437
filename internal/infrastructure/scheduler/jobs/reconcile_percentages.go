// Package jobs contains the scheduled maintenance jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/academy-hub/academy-lms/pkg/retry"
)

// Reconciler performs the full attendance-percentage sweep. Implemented by
// the postgres metrics repository.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int64, error)
}

// ReconcilePercentagesJob recomputes every stored attendance percentage
// from the lesson and attendance tables.
//
// The write path keeps percentages correct transactionally; this sweep is
// the self-healing layer for derived state, catching anything a crash
// between migrations or a manual data fix may have left behind.
type ReconcilePercentagesJob struct {
	reconciler Reconciler
	retrier    *retry.Retrier
	logger     *slog.Logger

	mu       sync.Mutex
	lastRun  time.Time
	lastRows int64
	runs     int64
	failures int64
}

// NewReconcilePercentagesJob creates the job.
func NewReconcilePercentagesJob(reconciler Reconciler, logger *slog.Logger) *ReconcilePercentagesJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcilePercentagesJob{
		reconciler: reconciler,
		retrier:    retry.DatabaseRetrier(),
		logger:     logger,
	}
}

// Name implements scheduler.Job.
func (j *ReconcilePercentagesJob) Name() string {
	return "reconcile_percentages"
}

// Description implements scheduler.Job.
func (j *ReconcilePercentagesJob) Description() string {
	return "Recompute all attendance percentages from lessons and attendance records"
}

// Run implements scheduler.Job. Transient SQL failures surfaced by the
// storage layer as retryable are attempted again with backoff; a sweep
// that keeps failing counts as one failed run.
func (j *ReconcilePercentagesJob) Run(ctx context.Context) error {
	started := time.Now()

	var rows int64
	err := j.retrier.Do(ctx, func(ctx context.Context) error {
		n, err := j.reconciler.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		rows = n
		return nil
	})

	j.mu.Lock()
	j.runs++
	j.lastRun = started
	if err != nil {
		j.failures++
	} else {
		j.lastRows = rows
	}
	j.mu.Unlock()

	if err != nil {
		return fmt.Errorf("reconcile percentages: %w", err)
	}

	j.logger.Info("percentages reconciled",
		"enrollments", rows,
		"duration", time.Since(started).String(),
	)

	return nil
}

// Stats reports the job's counters.
type Stats struct {
	Runs     int64
	Failures int64
	LastRun  time.Time
	LastRows int64
}

// Stats returns a snapshot of the job counters.
func (j *ReconcilePercentagesJob) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()

	return Stats{
		Runs:     j.runs,
		Failures: j.failures,
		LastRun:  j.lastRun,
		LastRows: j.lastRows,
	}
}
