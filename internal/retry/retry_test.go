package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func TestDoStopsOnSuccess(t *testing.T) {
	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 5, Delay: 2 * time.Second, Sleep: rec.sleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.calls)
}

func TestDoExhaustsAfterExactlyMaxAttempts(t *testing.T) {
	rec := &sleepRecorder{}
	boom := errors.New("boom")
	p := Policy{MaxAttempts: 10, Delay: time.Second, Sleep: rec.sleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 10, calls)
	assert.Len(t, rec.calls, 9, "no delay after the final attempt")
	n, ok := Attempts(err)
	assert.True(t, ok)
	assert.Equal(t, 10, n)
}

func TestDoReturnsNonRetryableImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 5,
		IsRetryable: func(err error) bool { return !errors.Is(err, fatal) },
		Sleep:       (&sleepRecorder{}).sleep,
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt == 2 {
			return fatal
		}
		return errors.New("transient")
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 2, calls)
	_, exhausted := Attempts(err)
	assert.False(t, exhausted)
}

func TestDoHonoursContextDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, Delay: time.Hour, OnRetry: func(int, error) { cancel() }}

	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoTreatsNonPositiveAttemptsAsOne(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("nope")
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}
