package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

func TestServiceConsumeAllowsUnderLimit(t *testing.T) {
	ctx := context.Background()
	limiter, err := NewTokenBucketLimiter(Config{RequestsPerWindow: 2, Window: time.Minute})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	defer limiter.Close()

	svc := NewService(limiter)
	if err := svc.Consume(ctx, "agent-1"); err != nil {
		t.Fatalf("expected first consume to succeed, got %v", err)
	}
	if err := svc.Consume(ctx, "agent-1"); err != nil {
		t.Fatalf("expected second consume to succeed, got %v", err)
	}
}

func TestServiceConsumeDeniesOverLimitWithRetryAfter(t *testing.T) {
	ctx := context.Background()
	limiter, err := NewTokenBucketLimiter(Config{RequestsPerWindow: 1, Window: time.Minute})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	defer limiter.Close()

	svc := NewService(limiter)
	if err := svc.Consume(ctx, "agent-1"); err != nil {
		t.Fatalf("expected first consume to succeed, got %v", err)
	}

	err = svc.Consume(ctx, "agent-1")
	if err == nil {
		t.Fatal("expected second consume to be rate limited")
	}
	gwErr, ok := gatewayerr.As(err)
	if !ok || gwErr.Kind() != gatewayerr.RateLimited {
		t.Fatalf("expected RateLimited error, got %v", err)
	}
	if gwErr.RetryAfter() < 1 {
		t.Fatalf("expected positive retry-after, got %d", gwErr.RetryAfter())
	}
}

func TestServiceConsumeIsolatesAgents(t *testing.T) {
	ctx := context.Background()
	limiter, err := NewTokenBucketLimiter(Config{RequestsPerWindow: 1, Window: time.Minute})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	defer limiter.Close()

	svc := NewService(limiter)
	if err := svc.Consume(ctx, "agent-1"); err != nil {
		t.Fatalf("agent-1 first consume: %v", err)
	}
	if err := svc.Consume(ctx, "agent-2"); err != nil {
		t.Fatalf("agent-2 should have its own bucket, got %v", err)
	}
}
