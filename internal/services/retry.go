package services

import (
	"context"
	"math/rand"
	"time"
)

// sleepWithContext waits for d or until the context is cancelled. It returns
// false when the context won.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// expBackoff returns initial << attempt, capped at max.
func expBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return initial
	}
	d := initial << attempt
	if d <= 0 {
		return max
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// withJitter spreads a delay by +/-20% so concurrent retries do not align.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	j := 0.8 + r.Float64()*0.4
	return time.Duration(float64(d) * j)
}

const (
	retryAttempts     = 3
	retryInitialDelay = 500 * time.Millisecond
	retryMaxDelay     = 8 * time.Second
)

// withRetry runs fn up to retryAttempts times with jittered exponential
// backoff between failures. Context cancellation stops the loop immediately.
func withRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			delay := withJitter(expBackoff(attempt-1, retryInitialDelay, retryMaxDelay))
			if !sleepWithContext(ctx, delay) {
				return "", ctx.Err()
			}
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", lastErr
}
