package fetch

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// backoffDelay computes the in-tier retry delay for attempt n (0-based),
// exponential with ±25% jitter.
func backoffDelay(attempt int) time.Duration {
	d := float64(RetryBase) * math.Pow(RetryFactor, float64(attempt))
	jitter := 1 + RetryJitter*(2*rand.Float64()-1)
	return time.Duration(d * jitter)
}

// withRetry runs fn up to 1+MaxRetries times, sleeping between attempts.
// Terminal errors and context cancellation stop retrying immediately.
func withRetry(ctx context.Context, fn func() (*Response, error)) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDelay(attempt - 1)):
			}
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}
