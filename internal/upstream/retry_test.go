package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:  retries,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(attempt int) error {
		assert.Equal(t, calls, attempt)
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), fastPolicy(2), func(int) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func(int) error {
		calls++
		return Permanent(ErrNotFound)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsPermanent(err), "permanent marker is stripped")
	assert.Nil(t, Permanent(nil))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 10, BaseBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	err := Retry(ctx, policy, func(int) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultConfig_JitterFn(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg.Retry.JitterFn)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.JitterFn(100*time.Millisecond),
		"default jitter should be 50% of backoff")
	assert.Contains(t, cfg.JobPath, "{id}")
}
