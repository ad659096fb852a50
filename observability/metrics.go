// Package observability wires the gateway's counters, histograms, and gauges
// into a Prometheus registry and renders them in text exposition format.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// durationBuckets are the request-latency histogram buckets, in milliseconds,
// per the gateway's own SLO bands rather than Prometheus's default seconds
// scale.
var durationBuckets = []float64{25, 50, 100, 200, 400, 800, 1600, 3200, 6400}

// Metrics holds every collector the gateway exports.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	RetriesTotal         *prometheus.CounterVec
	BreakerFastfailTotal *prometheus.CounterVec
	BreakerState         *prometheus.GaugeVec
	PolicyDenialsTotal   *prometheus.CounterVec
	RateLimitedTotal     *prometheus.CounterVec
	TokenGenerationsTotal *prometheus.CounterVec
	TokenValidationsTotal *prometheus.CounterVec
	TokenExpirationsTotal prometheus.Counter
	ChaosInjectionsTotal  *prometheus.CounterVec
	ChaosClearingsTotal   *prometheus.CounterVec
	ActiveConnections     prometheus.Gauge
}

// New creates a Metrics instance and registers it with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer.
// A nil registerer skips registration entirely, useful in tests that build
// multiple independent Metrics instances in the same process.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requests_total",
				Help: "Total number of gateway requests by tool, action, and response code.",
			},
			[]string{"tool", "action", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_duration_ms",
				Help:    "End-to-end request duration in milliseconds by tool and action.",
				Buckets: durationBuckets,
			},
			[]string{"tool", "action"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of response cache hits.",
			},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retries_total",
				Help: "Total number of adapter invocation retries by tool, action, and reason.",
			},
			[]string{"tool", "action", "reason"},
		),
		BreakerFastfailTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breaker_fastfail_total",
				Help: "Total number of requests fast-failed by an open circuit breaker, by tool.",
			},
			[]string{"tool"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "breaker_state",
				Help: "Circuit breaker state by tool: 0=closed, 1=half_open, 2=open.",
			},
			[]string{"tool"},
		),
		PolicyDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policy_denials_total",
				Help: "Total number of policy denials by denial kind.",
			},
			[]string{"kind"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limited_total",
				Help: "Total number of rate-limit rejections by agent.",
			},
			[]string{"agent_id"},
		),
		TokenGenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_generations_total",
				Help: "Total number of tokens generated, by agent.",
			},
			[]string{"agent_id"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_validations_total",
				Help: "Total number of token validations by result.",
			},
			[]string{"result"},
		),
		TokenExpirationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "token_expirations_total",
				Help: "Total number of requests rejected for an expired token.",
			},
		),
		ChaosInjectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaos_injections_total",
				Help: "Total number of chaos faults injected by tool and mode.",
			},
			[]string{"tool", "mode"},
		),
		ChaosClearingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaos_clearings_total",
				Help: "Total number of chaos fault configurations cleared by tool.",
			},
			[]string{"tool"},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_connections",
				Help: "Current number of in-flight gateway requests.",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.CacheHitsTotal,
			m.RetriesTotal,
			m.BreakerFastfailTotal,
			m.BreakerState,
			m.PolicyDenialsTotal,
			m.RateLimitedTotal,
			m.TokenGenerationsTotal,
			m.TokenValidationsTotal,
			m.TokenExpirationsTotal,
			m.ChaosInjectionsTotal,
			m.ChaosClearingsTotal,
			m.ActiveConnections,
		)
	}

	return m
}

// RecordRequest records one completed request's terminal code and duration.
func (m *Metrics) RecordRequest(tool, action, code string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(tool, action, code).Inc()
	m.RequestDuration.WithLabelValues(tool, action).Observe(float64(duration.Milliseconds()))
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordRetry increments the retry counter for one attempt.
func (m *Metrics) RecordRetry(tool, action, reason string) {
	m.RetriesTotal.WithLabelValues(tool, action, reason).Inc()
}

// RecordBreakerFastfail increments the fast-fail counter for tool.
func (m *Metrics) RecordBreakerFastfail(tool string) {
	m.BreakerFastfailTotal.WithLabelValues(tool).Inc()
}

// breakerStateValue maps a breaker state name to its gauge encoding.
func breakerStateValue(state string) float64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// SetBreakerState sets the breaker_state gauge for tool.
func (m *Metrics) SetBreakerState(tool, state string) {
	m.BreakerState.WithLabelValues(tool).Set(breakerStateValue(state))
}

// RecordPolicyDenial increments the policy denial counter for kind.
func (m *Metrics) RecordPolicyDenial(kind string) {
	m.PolicyDenialsTotal.WithLabelValues(kind).Inc()
}

// RecordRateLimited increments the rate-limit rejection counter for agentID.
func (m *Metrics) RecordRateLimited(agentID string) {
	m.RateLimitedTotal.WithLabelValues(agentID).Inc()
}

// RecordTokenGeneration increments the token generation counter for agentID.
func (m *Metrics) RecordTokenGeneration(agentID string) {
	m.TokenGenerationsTotal.WithLabelValues(agentID).Inc()
}

// RecordTokenValidation increments the token validation counter for result
// ("ok", "format", "signature", "expired", "provenance", "agent_inactive").
func (m *Metrics) RecordTokenValidation(result string) {
	m.TokenValidationsTotal.WithLabelValues(result).Inc()
}

// RecordTokenExpiration increments the expired-token rejection counter.
func (m *Metrics) RecordTokenExpiration() {
	m.TokenExpirationsTotal.Inc()
}

// RecordChaosInjection increments the chaos injection counter for tool/mode.
func (m *Metrics) RecordChaosInjection(tool, mode string) {
	m.ChaosInjectionsTotal.WithLabelValues(tool, mode).Inc()
}

// RecordChaosClearing increments the chaos clearing counter for tool.
func (m *Metrics) RecordChaosClearing(tool string) {
	m.ChaosClearingsTotal.WithLabelValues(tool).Inc()
}

// IncrementActiveConnections increments the in-flight request gauge.
func (m *Metrics) IncrementActiveConnections() {
	m.ActiveConnections.Inc()
}

// DecrementActiveConnections decrements the in-flight request gauge.
func (m *Metrics) DecrementActiveConnections() {
	m.ActiveConnections.Dec()
}
