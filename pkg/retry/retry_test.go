package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetrier(attempts int) *Retrier {
	return New(
		WithMaxAttempts(attempts),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithJitter(0),
	)
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableError(t *testing.T) {
	transient := errors.New("serialization failure")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(transient)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("still failing")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(transient)
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	fatal := errors.New("not enrolled")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(fatal)
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	plain := errors.New("boom")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return plain
	})

	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfOverridesDefault(t *testing.T) {
	plain := errors.New("deadlock detected")
	calls := 0

	r := New(
		WithMaxAttempts(2),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithRetryIf(func(err error) bool { return true }),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return plain
	})

	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastRetrier(3).Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, Retryable(errors.New("transient"))
		}
		return 42, nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0))

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestIsRetryableAndIsPermanent(t *testing.T) {
	base := errors.New("base")

	assert.True(t, IsRetryable(Retryable(base)))
	assert.False(t, IsRetryable(base))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.False(t, IsPermanent(Retryable(base)))

	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))
}
