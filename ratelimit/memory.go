package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements RateLimiter using a per-key golang.org/x/time/rate.Limiter.
// Safe for concurrent use. Each process holds its own buckets; for multi-replica
// deployments use DynamoDBRateLimiter instead.
type TokenBucketLimiter struct {
	config Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// cleanupInterval controls how often idle buckets are evicted.
	cleanupInterval time.Duration

	done chan struct{}
	wg   sync.WaitGroup

	now func() time.Time
}

// NewTokenBucketLimiter creates a new in-memory token bucket rate limiter.
// Starts a background goroutine to evict idle buckets. Call Close() to stop it.
func NewTokenBucketLimiter(cfg Config) (*TokenBucketLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &TokenBucketLimiter{
		config:          cfg,
		limiters:        make(map[string]*rate.Limiter),
		cleanupInterval: 10 * time.Minute,
		done:            make(chan struct{}),
		now:             time.Now,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m, nil
}

// NewTokenBucketLimiterWithCleanup creates a limiter with a custom cleanup interval.
// Useful for testing with shorter cleanup intervals.
func NewTokenBucketLimiterWithCleanup(cfg Config, cleanupInterval time.Duration) (*TokenBucketLimiter, error) {
	m, err := NewTokenBucketLimiter(cfg)
	if err != nil {
		return nil, err
	}
	m.cleanupInterval = cleanupInterval
	return m, nil
}

// limiterFor returns the bucket for key, creating one sized per Config on first use.
func (m *TokenBucketLimiter) limiterFor(key string) *rate.Limiter {
	lim, ok := m.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(m.config.ratePerSecond()), m.config.EffectiveBurstSize())
		m.limiters[key] = lim
	}
	return lim
}

// Allow checks if a request should be allowed for the given key. Reserves a token from
// the key's bucket; if the bucket is empty the reservation is cancelled and the caller is
// told how long to wait before retrying.
func (m *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	lim := m.limiterFor(key)

	reservation := lim.ReserveN(now, 1)
	if !reservation.OK() {
		// Burst of 1 requested against a limiter that can never satisfy it; treat as
		// an indefinite deny rather than panic the caller.
		return false, m.config.Window, nil
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay, nil
	}

	return true, 0, nil
}

// Close stops the background cleanup goroutine.
// Safe to call multiple times.
func (m *TokenBucketLimiter) Close() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}
	m.wg.Wait()
	return nil
}

// cleanupLoop periodically evicts buckets that are back at full burst (i.e. idle).
func (m *TokenBucketLimiter) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes buckets sitting at full burst capacity, reclaiming memory for agents
// that have gone quiet.
func (m *TokenBucketLimiter) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	burst := m.config.EffectiveBurstSize()
	for key, lim := range m.limiters {
		if int(lim.TokensAt(now)) >= burst {
			delete(m.limiters, key)
		}
	}
}

// Stats returns current statistics for monitoring.
type Stats struct {
	// TotalKeys is the number of unique keys being tracked.
	TotalKeys int
}

// Stats returns current rate limiter statistics.
func (m *TokenBucketLimiter) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{TotalKeys: len(m.limiters)}
}

// Ensure TokenBucketLimiter implements RateLimiter interface.
var _ RateLimiter = (*TokenBucketLimiter)(nil)
