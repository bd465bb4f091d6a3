package provider

import (
	"context"
	"time"
)

const retryBaseDelay = 500 * time.Millisecond

// Do runs op with a per-call timeout and a bounded retry for retryable
// provider failures. Non-retryable failures (4xx auth/validation) return
// immediately. Backoff doubles per attempt.
func Do[T any](ctx context.Context, timeout time.Duration, maxRetries int, op func(context.Context) (T, error)) (T, error) {
	var result T
	var err error

	delay := retryBaseDelay
	for attempt := 0; ; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		result, err = op(callCtx)
		if cancel != nil {
			cancel()
		}

		if err == nil || attempt >= maxRetries || !IsRetryable(err) {
			return result, err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
		delay *= 2
	}
}
