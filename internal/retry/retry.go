// Package retry implements bounded retries with exponential backoff, used
// for calls to the external model scorer.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// maxDelay caps the backoff so a long retry chain cannot stall a scoring
// request indefinitely.
const maxDelay = 10 * time.Second

// PermanentError marks an error that retrying cannot fix, such as the model
// rejecting a malformed feature vector.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do returns it without further attempts.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Do calls fn up to maxAttempts times, sleeping between attempts with
// exponential backoff and jitter. It returns nil on the first success, the
// unwrapped error for a *PermanentError, ctx.Err() if the context ends while
// waiting, and otherwise the last error fn returned. maxAttempts below 1 is
// treated as 1.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if attempt == maxAttempts-1 {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(baseDelay, attempt)):
		}
	}
	return err
}

// backoff returns the sleep before retry number attempt+1: baseDelay doubled
// per attempt, capped at maxDelay, with 25% jitter either way.
func backoff(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay << uint(attempt)
	if delay <= 0 || delay > maxDelay {
		delay = maxDelay
	}
	jitter := delay / 4
	if jitter <= 0 {
		return delay
	}
	return delay - jitter + rand.N(2*jitter+1)
}
