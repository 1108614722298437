package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/academy-lms/pkg/retry"
)

type fakeReconciler struct {
	rows    int64
	err     error
	errOnce error // returned by the first call only, then cleared
	calls   int
}

func (f *fakeReconciler) ReconcileAll(_ context.Context) (int64, error) {
	f.calls++
	if f.errOnce != nil {
		err := f.errOnce
		f.errOnce = nil
		return 0, err
	}
	return f.rows, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcilePercentagesJob(t *testing.T) {
	job := NewReconcilePercentagesJob(&fakeReconciler{rows: 42}, quietLogger())

	assert.Equal(t, "reconcile_percentages", job.Name())
	assert.NotEmpty(t, job.Description())

	assert.NoError(t, job.Run(context.Background()))

	stats := job.Stats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(0), stats.Failures)
	assert.Equal(t, int64(42), stats.LastRows)
	assert.False(t, stats.LastRun.IsZero())
}

func TestReconcilePercentagesJob_TransientFailureRetried(t *testing.T) {
	rec := &fakeReconciler{
		rows:    7,
		errOnce: retry.Retryable(errors.New("could not serialize access due to concurrent update")),
	}
	job := NewReconcilePercentagesJob(rec, quietLogger())

	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, rec.calls)

	// A sweep that recovers on the second attempt is one clean run.
	stats := job.Stats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(0), stats.Failures)
	assert.Equal(t, int64(7), stats.LastRows)
}

func TestReconcilePercentagesJob_Failure(t *testing.T) {
	sweepErr := errors.New("db down")
	job := NewReconcilePercentagesJob(&fakeReconciler{err: sweepErr}, quietLogger())

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, sweepErr)

	stats := job.Stats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(1), stats.Failures)

	// A failed sweep keeps the previous row count.
	assert.Equal(t, int64(0), stats.LastRows)
}
