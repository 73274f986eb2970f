package storagepath

import (
	"context"
	"errors"
	"time"
)

// WithRetry runs op using the Util's configured retry budget. See WithRetryN.
func WithRetry[T any](ctx context.Context, u *Util, op func(context.Context) (T, error)) (T, error) {
	return withRetry(ctx, u, op, u.cfg.MaxRetries, u.cfg.RetryDelay)
}

// WithRetryN calls op up to maxRetries+1 times. After the n-th failed attempt it waits
// delay*n before trying again (linear, not exponential). Every error is retried; the last
// one is returned unchanged. Cancelling ctx aborts the wait and returns the last error
// joined with ctx.Err().
func WithRetryN[T any](ctx context.Context, op func(context.Context) (T, error), maxRetries int, delay time.Duration) (T, error) {
	return withRetry(ctx, nil, op, maxRetries, delay)
}

func withRetry[T any](ctx context.Context, u *Util, op func(context.Context) (T, error), maxRetries int, delay time.Duration) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var (
		result  T
		lastErr error
	)
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		result, lastErr = op(ctx)
		if lastErr == nil {
			return result, nil
		}
		if attempt > maxRetries {
			break
		}

		wait := delay * time.Duration(attempt)
		if u != nil {
			u.logger.Warn("storage operation failed, retrying",
				"attempt", attempt, "max_attempts", maxRetries+1, "wait", wait, "error", lastErr)
		}

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}

	if u != nil {
		u.logger.Error("storage operation failed after retries", "attempts", maxRetries+1, "error", lastErr)
	}
	var zero T
	return zero, lastErr
}
