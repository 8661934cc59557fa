package utils

import (
	"context"
	"math"
	"time"
)

// Backoff names a delay progression between retries.
type Backoff string

const (
	// BackoffLinear waits InitialDelay*k before retry k.
	BackoffLinear Backoff = "linear"
	// BackoffExponential waits InitialDelay*Factor^(k-1) before retry k.
	BackoffExponential Backoff = "exponential"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryConfig holds retry configuration.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration // zero means uncapped
	BackoffFactor float64
	Strategy      Backoff

	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
	// OnRetry is called before each sleep with the 1-indexed retry number.
	OnRetry func(retry int, delay time.Duration, err error)
	// Sleep defaults to SleepContext.
	Sleep SleepFunc
}

// DefaultRetryConfig returns the default retry configuration: three retries,
// one second apart, growing linearly.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		BackoffFactor: 2.0,
		Strategy:      BackoffLinear,
	}
}

// Retry executes fn until it succeeds, fails with a non-retryable error, or retries run out.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes fn with retry and returns its result.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxRetries || (cfg.Retryable != nil && !cfg.Retryable(err)) {
			return zero, err
		}

		retry := attempt + 1
		delay := cfg.Delay(retry)
		if cfg.OnRetry != nil {
			cfg.OnRetry(retry, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, err
		}
	}
}

// Delay returns the wait before the given 1-indexed retry.
func (c RetryConfig) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	if c.Strategy == BackoffExponential {
		return CalculateBackoff(retry-1, c.InitialDelay, c.MaxDelay, c.BackoffFactor)
	}
	delay := c.InitialDelay * time.Duration(retry)
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// CalculateBackoff calculates the exponential backoff duration for a given attempt.
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration, factor float64) time.Duration {
	delay := float64(initialDelay) * math.Pow(factor, float64(attempt))
	if maxDelay > 0 && delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	return time.Duration(delay)
}

// SleepContext sleeps for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
