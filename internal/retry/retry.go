// Package retry runs an operation under a bounded attempt policy. The same
// policy drives generation retries and mockup status polling.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is matched by the error returned when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds an operation to MaxAttempts calls separated by Delay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// IsRetryable decides whether a failed attempt may be followed by another.
	// A nil func retries every error.
	IsRetryable func(error) bool
	// Sleep waits between attempts; tests replace it to avoid wall-clock waits.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes every failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// ExhaustedError carries the number of attempts made and the last failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("retry: gave up after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrExhausted}
	}
	return []error{ErrExhausted, e.Last}
}

// Do calls fn until it succeeds, returns a non-retryable error, or MaxAttempts
// is reached. The delay is only observed between attempts, never after the last.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.IsRetryable != nil && !p.IsRetryable(err) {
			return err
		}
		last = err
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if p.Delay > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				return err
			}
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}

// Attempts extracts the attempt count from an exhausted error.
func Attempts(err error) (int, bool) {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts, true
	}
	return 0, false
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
