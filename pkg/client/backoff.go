package client

import (
	"context"
	"math/rand"
	"time"
)

// BackoffStrategy defines how to calculate the next wait time.
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64 // 0.0 to 1.0
}

// DefaultBackoff returns a sensible default strategy.
// Base: 100ms, Max: 5s, Factor: 2.0, Jitter: 0.2
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next calculates the wait duration for the given attempt (0-based).
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		return b.Base
	}

	// Base * Factor^attempt, capped at Max
	delay := float64(b.Base)
	for i := 0; i < attempt; i++ {
		delay *= b.Factor
	}
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	// delay * (1 +/- Jitter)
	if b.Jitter > 0 {
		jitterFactor := (rand.Float64()*2 - 1) * b.Jitter
		delay += delay * jitterFactor
	}

	if delay < 0 {
		return 0
	}

	return time.Duration(delay)
}

// retry calls fn up to attempts times, sleeping between calls according to
// strategy. fn reports whether its error is worth retrying. The last error
// is returned; a cancelled context stops early with ctx.Err().
func retry(ctx context.Context, attempts int, strategy BackoffStrategy, fn func() (bool, error)) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		var retryable bool
		retryable, err = fn()
		if err == nil || !retryable || attempt == attempts-1 {
			return err
		}

		timer := time.NewTimer(strategy.Next(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
