// Package retry runs an operation again after transient failures, with
// exponential backoff and jitter. It exists for the persistence layer:
// serialization failures, deadlocks, and dropped connections resolve on a
// second attempt once the winning transaction commits.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps an error so the retrier will attempt it again. Only
// wrapped errors are retried under the default policy; a plain domain
// error fails fast.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError anywhere in its
// chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// PermanentError marks an error as final regardless of remaining attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps an error so the retrier stops immediately. The retrier
// hands the inner error back unwrapped, so callers match their sentinels
// with errors.Is as usual.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

type policy struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       float64
	retryIf      func(error) bool
	onRetry      func(attempt int, err error, delay time.Duration)
}

func defaultPolicy() policy {
	return policy{
		maxAttempts:  3,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		jitter:       0.1,
	}
}

// Option adjusts the retry policy.
type Option func(*policy)

// WithMaxAttempts sets the total attempt count, first try included.
func WithMaxAttempts(n int) Option {
	return func(p *policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(p *policy) {
		if d > 0 {
			p.initialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff.
func WithMaxDelay(d time.Duration) Option {
	return func(p *policy) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithMultiplier sets the backoff growth factor. Values below 1 are
// ignored.
func WithMultiplier(m float64) Option {
	return func(p *policy) {
		if m >= 1.0 {
			p.multiplier = m
		}
	}
}

// WithJitter sets the jitter fraction in [0, 1]. Zero disables jitter.
func WithJitter(j float64) Option {
	return func(p *policy) {
		if j >= 0 && j <= 1.0 {
			p.jitter = j
		}
	}
}

// WithRetryIf replaces the default retry decision. When set, the
// Retryable/Permanent wrappers are not consulted for the decision,
// though Permanent still short-circuits.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *policy) { p.retryIf = fn }
}

// WithOnRetry installs a callback invoked before each sleep, for logging
// or metrics.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *policy) { p.onRetry = fn }
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier executes operations under one retry policy. Safe for concurrent
// use; the policy is immutable after New.
type Retrier struct {
	p policy
}

// New builds a Retrier from the default policy plus options.
func New(opts ...Option) *Retrier {
	p := defaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{p: p}
}

// DatabaseRetrier is tuned for transaction races: tight delays, because a
// lost serialization race resolves as soon as the winner commits.
func DatabaseRetrier() *Retrier {
	return New(
		WithMaxAttempts(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(time.Second),
		WithMultiplier(2.0),
		WithJitter(0.05),
	)
}

// Do runs the operation until it succeeds, exhausts attempts, or fails
// with an error the policy will not retry. Retryable and Permanent
// wrappers are stripped from the returned error so sentinel matching
// keeps working at the call site.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return errors.Unwrap(err)
		}

		if !r.shouldRetry(err) {
			return err
		}

		if attempt == r.p.maxAttempts {
			break
		}

		delay := r.backoff(attempt)
		if r.p.onRetry != nil {
			r.p.onRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}

	if IsRetryable(lastErr) {
		return errors.Unwrap(lastErr)
	}
	return lastErr
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.p.retryIf != nil {
		return r.p.retryIf(err)
	}
	return IsRetryable(err)
}

// backoff doubles the delay per attempt via the multiplier, capped at
// maxDelay, then spreads it by the jitter fraction in both directions.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := float64(r.p.initialDelay)
	for i := 1; i < attempt; i++ {
		d *= r.p.multiplier
		if d >= float64(r.p.maxDelay) {
			d = float64(r.p.maxDelay)
			break
		}
	}

	if r.p.jitter > 0 {
		d += d * r.p.jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Do runs the operation with a one-off Retrier.
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, operation)
}

// DoWithData retries an operation that produces a value.
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var result T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = operation(ctx)
		return opErr
	})
	return result, err
}
