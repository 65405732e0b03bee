package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig mirrors resilience.RetryConfig's shape: 2 retries (3 attempts
// total), base 100ms, factor 2, jitter ±25%.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	JitterPct     float64 // ±JitterPct, e.g. 0.25 for ±25%
}

// DefaultRemoteEngineRetryConfig returns the retry policy for the Remote
// Engine Proxy.
func DefaultRemoteEngineRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3, // initial attempt + 2 retries
		InitialDelay:  100 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterPct:     0.25,
	}
}

// shouldRetry classifies an error as retryable; only remote_5xx and
// connection faults are retried, never deserialization errors.
type shouldRetry func(err error) bool

// Retry runs fn up to cfg.MaxAttempts times, retrying only while
// retryable(err) is true, using github.com/cenkalti/backoff/v5 for the
// exponential-backoff scheduling in place of gomind's hand-rolled
// sin-jitter loop (see DESIGN.md for this substitution's rationale).
func Retry(ctx context.Context, cfg RetryConfig, retryable shouldRetry, fn func() error) error {
	attempt := 0

	op := func() (struct{}, error) {
		attempt++
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if attempt >= cfg.MaxAttempts || !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.Multiplier = cfg.BackoffFactor
	b.RandomizationFactor = cfg.JitterPct

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	)
	return err
}
