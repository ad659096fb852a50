package resilience

import (
	"context"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

// DefaultTimeout is the caller-visible deadline for an adapter invocation absent a
// per-tool override.
const DefaultTimeout = 6 * time.Second

// WithTimeout runs fn under a deadline of timeout (or DefaultTimeout if zero), mapping a
// context deadline exceeded into gatewayerr.UpstreamTimeout. fn must itself respect ctx
// cancellation for the deadline to take effect on in-flight work.
func WithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return gatewayerr.New(gatewayerr.UpstreamTimeout, "adapter invocation exceeded deadline").
			WithReason(ctx.Err().Error())
	}
}
