package upstream

import (
	"context"
	"errors"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry executes fn with retries, backoff, and cancellation support.
//
// fn must return nil on success. Errors wrapped with Permanent stop the
// loop at once and are returned unwrapped.
func Retry(
	ctx context.Context,
	policy RetryPolicy,
	fn func(attempt int) error,
) error {

	var attempt int
	var backoff = policy.BaseBackoff

	for {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}

		attempt++
		if attempt > policy.MaxRetries {
			return err
		}

		delay := backoff
		if policy.JitterFn != nil {
			delay += policy.JitterFn(backoff)
		}
		if policy.MaxBackoff > 0 && delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			backoff *= 2
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
