// Package resilience wraps the adapter invocation step of the request pipeline in the
// gateway's fault-tolerance fabric: a per-tool circuit breaker backed by
// github.com/sony/gobreaker/v2, bounded retry with full-jitter exponential backoff backed
// by github.com/cenkalti/backoff/v4, and a response cache backed by
// github.com/hashicorp/golang-lru/v2/expirable.
package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/byteness/toolgateway/gatewayerr"
	"github.com/byteness/toolgateway/logging"
)

// BreakerState mirrors gobreaker's three states under gateway-native names.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half_open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a single tool's circuit breaker.
type BreakerConfig struct {
	// MaxConsecutiveFailures trips the breaker open.
	MaxConsecutiveFailures uint32
	// CooldownMs is the time spent open before a half-open probe is allowed.
	CooldownMs int
	// HalfOpenMax is the number of probe requests allowed while half-open.
	HalfOpenMax uint32
}

// DefaultBreakerConfig returns the gateway's default per-tool breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxConsecutiveFailures: 5, CooldownMs: 30_000, HalfOpenMax: 1}
}

// toolBreaker pairs a gobreaker instance with the tool name it guards, for logging.
type toolBreaker struct {
	tool string
	gb   *gobreaker.CircuitBreaker[any]
}

// BreakerRegistry holds one circuit breaker per tool, created lazily on first use.
// Breaker state transitions are serialized per tool by gobreaker's own locking; the
// registry's mutex only protects map access on creation.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*toolBreaker
	config   BreakerConfig
	logger   logging.Logger
}

// NewBreakerRegistry creates a registry that lazily builds one breaker per tool using cfg.
func NewBreakerRegistry(cfg BreakerConfig, logger logging.Logger) *BreakerRegistry {
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.CooldownMs <= 0 {
		cfg.CooldownMs = 30_000
	}
	if cfg.HalfOpenMax == 0 {
		cfg.HalfOpenMax = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BreakerRegistry{breakers: make(map[string]*toolBreaker), config: cfg, logger: logger}
}

// breakerFor returns (creating if necessary) the breaker guarding tool.
func (r *BreakerRegistry) breakerFor(tool string) *toolBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tb, ok := r.breakers[tool]; ok {
		return tb
	}

	settings := gobreaker.Settings{
		Name:        tool,
		MaxRequests: r.config.HalfOpenMax,
		Timeout:     time.Duration(r.config.CooldownMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.config.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.LogLine("warn", "circuit breaker state changed", map[string]any{
				"tool":       name,
				"from_state": BreakerState(from).String(),
				"to_state":   BreakerState(to).String(),
			})
		},
	}

	tb := &toolBreaker{tool: tool, gb: gobreaker.NewCircuitBreaker[any](settings)}
	r.breakers[tool] = tb
	return tb
}

// State returns the current breaker state for tool, without tripping its creation side
// effects beyond what a state read requires.
func (r *BreakerRegistry) State(tool string) BreakerState {
	return BreakerState(r.breakerFor(tool).gb.State())
}

// Execute runs fn guarded by tool's circuit breaker. A request rejected because the
// breaker is open or the half-open probe quota is exhausted returns gatewayerr.BreakerOpen;
// any other error from fn propagates unchanged and counts as a failure.
func (r *BreakerRegistry) Execute(tool string, fn func() error) error {
	tb := r.breakerFor(tool)
	_, err := tb.gb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return gatewayerr.New(gatewayerr.BreakerOpen, "circuit breaker is open for "+tool).
			WithReason(err.Error())
	}
	return err
}
