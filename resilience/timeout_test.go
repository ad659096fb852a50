package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

func TestWithTimeoutReturnsFnResultWhenFast(t *testing.T) {
	err := WithTimeout(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWithTimeoutReturnsUpstreamTimeoutWhenSlow(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if gatewayerr.KindOf(err) != gatewayerr.UpstreamTimeout {
		t.Fatalf("expected UpstreamTimeout, got %v", err)
	}
}

func TestWithTimeoutUsesDefaultWhenZero(t *testing.T) {
	start := time.Now()
	err := WithTimeout(context.Background(), 0, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if time.Since(start) > DefaultTimeout {
		t.Fatal("expected immediate return well within default timeout")
	}
}
