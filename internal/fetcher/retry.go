package fetcher

import (
	"context"
	"time"
)

// Retrier re-runs an operation on transient failures with exponential
// backoff. Delays double from BaseDelay up to MaxDelay.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetrier builds a retrier, substituting defaults for unset fields.
func NewRetrier(maxAttempts int, baseDelay, maxDelay time.Duration) Retrier {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	return Retrier{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
}

// Do invokes op until it succeeds, fails permanently, exhausts attempts, or
// the context ends. The last error is returned unmodified so callers can
// still inspect its kind.
func (r Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	delay := r.BaseDelay
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == r.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		delay *= 2
		if delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}

	return lastErr
}
