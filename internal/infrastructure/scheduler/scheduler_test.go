package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testJob struct {
	name string
	err  error
	runs atomic.Int64
}

func (j *testJob) Name() string        { return j.name }
func (j *testJob) Description() string { return "test job " + j.name }

func (j *testJob) Run(_ context.Context) error {
	j.runs.Add(1)
	return j.err
}

func quietScheduler() *Scheduler {
	return New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRegister(t *testing.T) {
	s := quietScheduler()
	job := &testJob{name: "sweep"}

	assert.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	jobs := s.ListJobs()
	assert.Len(t, jobs, 1)
	assert.Equal(t, "sweep", jobs[0].Name)
	assert.True(t, jobs[0].Enabled)
	assert.Equal(t, "@every 1h0m0s", jobs[0].Schedule)
	assert.False(t, jobs[0].NextRun.IsZero())
}

func TestRegister_Invalid(t *testing.T) {
	s := quietScheduler()
	job := &testJob{name: "sweep"}

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)

	assert.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Hour)), ErrJobAlreadyExists)
}

func TestRunNow(t *testing.T) {
	s := quietScheduler()
	job := &testJob{name: "sweep"}
	assert.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "sweep")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	info := s.ListJobs()[0]
	assert.NotNil(t, info.LastResult)
	assert.Equal(t, "sweep", info.LastResult.JobName)
}

func TestRunNow_Failure(t *testing.T) {
	s := quietScheduler()
	jobErr := errors.New("db down")
	job := &testJob{name: "sweep", err: jobErr}
	assert.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "sweep")
	assert.ErrorIs(t, err, jobErr)
	assert.False(t, result.Success)
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := quietScheduler()

	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStartStop(t *testing.T) {
	s := quietScheduler()
	assert.False(t, s.IsRunning())

	assert.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}
