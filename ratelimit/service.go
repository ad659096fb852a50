package ratelimit

import (
	"context"
	"math"

	"github.com/byteness/toolgateway/gatewayerr"
)

// Service wraps a RateLimiter and translates its verdict into the gateway's error
// taxonomy, so pipeline stages never deal with raw (bool, time.Duration) tuples.
type Service struct {
	limiter RateLimiter
}

// NewService wraps limiter for use in the request pipeline.
func NewService(limiter RateLimiter) *Service {
	return &Service{limiter: limiter}
}

// Consume admits or denies one request for agentID. A denial is returned as a
// gatewayerr.RateLimited error carrying a seconds-until-retry hint.
func (s *Service) Consume(ctx context.Context, agentID string) error {
	allowed, retryAfter, err := s.limiter.Allow(ctx, agentID)
	if err != nil {
		// Fail open: a rate limiter outage must not become a gateway-wide outage.
		return nil
	}
	if !allowed {
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		return gatewayerr.New(gatewayerr.RateLimited, "agent has exceeded its request budget").
			WithReason("token bucket empty").
			WithRetryAfter(seconds)
	}
	return nil
}
