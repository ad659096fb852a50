package observability

import (
	"testing"
	"time"

	"github.com/byteness/toolgateway/chaos"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequestIncrementsCounterAndHistogram(t *testing.T) {
	_, m := NewRegistry()
	m.RecordRequest("serpapi", "search", "200", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("serpapi", "search", "200")); got != 1 {
		t.Fatalf("expected requests_total=1, got %v", got)
	}
}

func TestRecordCacheHitIncrementsCounter(t *testing.T) {
	_, m := NewRegistry()
	m.RecordCacheHit()
	m.RecordCacheHit()
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 2 {
		t.Fatalf("expected cache_hits_total=2, got %v", got)
	}
}

func TestSetBreakerStateEncodesStateAsGaugeValue(t *testing.T) {
	_, m := NewRegistry()
	m.SetBreakerState("openai", "open")
	if got := testutil.ToFloat64(m.BreakerState.WithLabelValues("openai")); got != 2 {
		t.Fatalf("expected breaker_state=2 for open, got %v", got)
	}
	m.SetBreakerState("openai", "half_open")
	if got := testutil.ToFloat64(m.BreakerState.WithLabelValues("openai")); got != 1 {
		t.Fatalf("expected breaker_state=1 for half_open, got %v", got)
	}
	m.SetBreakerState("openai", "closed")
	if got := testutil.ToFloat64(m.BreakerState.WithLabelValues("openai")); got != 0 {
		t.Fatalf("expected breaker_state=0 for closed, got %v", got)
	}
}

func TestRecordPolicyDenialIncrementsByKind(t *testing.T) {
	_, m := NewRegistry()
	m.RecordPolicyDenial("SCOPE_MISMATCH")
	m.RecordPolicyDenial("SCOPE_MISMATCH")
	m.RecordPolicyDenial("QUOTA_EXCEEDED")

	if got := testutil.ToFloat64(m.PolicyDenialsTotal.WithLabelValues("SCOPE_MISMATCH")); got != 2 {
		t.Fatalf("expected 2 SCOPE_MISMATCH denials, got %v", got)
	}
	if got := testutil.ToFloat64(m.PolicyDenialsTotal.WithLabelValues("QUOTA_EXCEEDED")); got != 1 {
		t.Fatalf("expected 1 QUOTA_EXCEEDED denial, got %v", got)
	}
}

func TestChaosSinkForwardsToChaosCounters(t *testing.T) {
	_, m := NewRegistry()
	sink := NewChaosSink(m)

	injector := chaos.New(false, sink)
	_ = injector.Set("serpapi", chaos.Fault{Mode: chaos.ModeServerError, Percent: 100})
	_ = injector.Inject("serpapi")
	_ = injector.Clear("serpapi")

	if got := testutil.ToFloat64(m.ChaosInjectionsTotal.WithLabelValues("serpapi", "500")); got != 1 {
		t.Fatalf("expected 1 chaos injection recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChaosClearingsTotal.WithLabelValues("serpapi")); got != 1 {
		t.Fatalf("expected 1 chaos clearing recorded, got %v", got)
	}
}

func TestActiveConnectionsGaugeTracksIncrementAndDecrement(t *testing.T) {
	_, m := NewRegistry()
	m.IncrementActiveConnections()
	m.IncrementActiveConnections()
	m.DecrementActiveConnections()

	if got := testutil.ToFloat64(m.ActiveConnections); got != 1 {
		t.Fatalf("expected active_connections=1, got %v", got)
	}
}
