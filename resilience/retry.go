package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/byteness/toolgateway/gatewayerr"
)

// RetryConfig configures bounded exponential backoff with full jitter.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter is the randomization factor (0-1) applied to each computed delay, matching
	// backoff.ExponentialBackOff's RandomizationFactor.
	Jitter float64
}

// DefaultRetryConfig returns the gateway's default retry budget for upstream calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       1.0,
	}
}

// Retry executes fn with exponential backoff, retrying only while fn's error maps to a
// retryable gatewayerr.Kind (UPSTREAM_5XX, UPSTREAM_TIMEOUT, NETWORK). Any other error,
// or a nil return, stops the loop immediately. ctx cancellation aborts a pending backoff
// sleep.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if cfg.InitialDelay > 0 {
		bo.InitialInterval = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		bo.MaxInterval = cfg.MaxDelay
	}
	if cfg.Multiplier > 0 {
		bo.Multiplier = cfg.Multiplier
	}
	bo.RandomizationFactor = cfg.Jitter
	bo.MaxElapsedTime = 0

	maxRetries := uint64(cfg.MaxAttempts - 1)
	withMax := backoff.WithMaxRetries(bo, maxRetries)
	withCtx := backoff.WithContext(withMax, ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !gatewayerr.KindOf(err).Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}, withCtx)
}
