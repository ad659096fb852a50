package chaos

import (
	"testing"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

type countingCounters struct {
	injections map[string]int
	clearings  map[string]int
}

func newCountingCounters() *countingCounters {
	return &countingCounters{injections: make(map[string]int), clearings: make(map[string]int)}
}

func (c *countingCounters) IncInjection(tool string, mode Mode) { c.injections[tool]++ }
func (c *countingCounters) IncClearing(tool string)             { c.clearings[tool]++ }

func TestInjectorNoFaultConfiguredIsNoop(t *testing.T) {
	inj := New(false, nil)
	if err := inj.Inject("serpapi"); err != nil {
		t.Fatalf("expected nil for unconfigured tool, got %v", err)
	}
}

func TestInjectorSetAndInjectAtFullPercent(t *testing.T) {
	inj := New(false, nil)
	if err := inj.Set("gmail_send", Fault{Mode: ModeServerError, Percent: 100}); err != nil {
		t.Fatalf("set: %v", err)
	}
	err := inj.Inject("gmail_send")
	if gatewayerr.KindOf(err) != gatewayerr.Upstream5xx {
		t.Fatalf("expected Upstream5xx, got %v", err)
	}
}

func TestInjectorTimeoutMode(t *testing.T) {
	inj := New(false, nil)
	if err := inj.Set("openai", Fault{Mode: ModeTimeout, Percent: 100}); err != nil {
		t.Fatalf("set: %v", err)
	}
	err := inj.Inject("openai")
	if gatewayerr.KindOf(err) != gatewayerr.UpstreamTimeout {
		t.Fatalf("expected UpstreamTimeout, got %v", err)
	}
}

func TestInjectorZeroPercentNeverFires(t *testing.T) {
	inj := New(false, nil)
	if err := inj.Set("http_fetch", Fault{Mode: ModeServerError, Percent: 0}); err != nil {
		t.Fatalf("set: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := inj.Inject("http_fetch"); err != nil {
			t.Fatalf("expected no injection at 0%%, got %v", err)
		}
	}
}

func TestInjectorJitterSleepsThenSucceeds(t *testing.T) {
	inj := New(false, nil)
	if err := inj.Set("serpapi", Fault{Mode: ModeJitter, Percent: 100, JitterMax: 20 * time.Millisecond}); err != nil {
		t.Fatalf("set: %v", err)
	}
	start := time.Now()
	if err := inj.Inject("serpapi"); err != nil {
		t.Fatalf("expected nil after jitter, got %v", err)
	}
	if time.Since(start) > 25*time.Millisecond {
		t.Fatalf("jitter sleep exceeded configured max")
	}
}

func TestInjectorRejectsInvalidFault(t *testing.T) {
	inj := New(false, nil)
	if err := inj.Set("serpapi", Fault{Mode: "bogus", Percent: 50}); err == nil {
		t.Fatal("expected validation error for unknown mode")
	}
	if err := inj.Set("serpapi", Fault{Mode: ModeServerError, Percent: 101}); err == nil {
		t.Fatal("expected validation error for out-of-range percent")
	}
}

func TestInjectorProductionModeRefusesMutation(t *testing.T) {
	inj := New(true, nil)
	if err := inj.Set("serpapi", Fault{Mode: ModeServerError, Percent: 100}); err == nil {
		t.Fatal("expected production mode to refuse Set")
	}
	if err := inj.Clear("serpapi"); err == nil {
		t.Fatal("expected production mode to refuse Clear")
	}
	if err := inj.ClearAll(); err == nil {
		t.Fatal("expected production mode to refuse ClearAll")
	}
}

func TestInjectorClearRemovesFault(t *testing.T) {
	inj := New(false, nil)
	_ = inj.Set("openai", Fault{Mode: ModeServerError, Percent: 100})
	if _, ok := inj.Get("openai"); !ok {
		t.Fatal("expected fault present after Set")
	}
	if err := inj.Clear("openai"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := inj.Get("openai"); ok {
		t.Fatal("expected fault absent after Clear")
	}
}

func TestInjectorCountersNotifiedOnInjectionAndClearing(t *testing.T) {
	counters := newCountingCounters()
	inj := New(false, counters)
	_ = inj.Set("gmail_send", Fault{Mode: ModeServerError, Percent: 100})

	_ = inj.Inject("gmail_send")
	_ = inj.Inject("gmail_send")

	if counters.injections["gmail_send"] != 2 {
		t.Fatalf("expected 2 injections recorded, got %d", counters.injections["gmail_send"])
	}

	_ = inj.Clear("gmail_send")
	if counters.clearings["gmail_send"] != 1 {
		t.Fatalf("expected 1 clearing recorded, got %d", counters.clearings["gmail_send"])
	}
}

func TestInjectorActiveSnapshotIsIndependentCopy(t *testing.T) {
	inj := New(false, nil)
	_ = inj.Set("serpapi", Fault{Mode: ModeServerError, Percent: 100})

	snapshot := inj.Active()
	snapshot["serpapi"] = Fault{Mode: ModeTimeout, Percent: 1}

	f, _ := inj.Get("serpapi")
	if f.Mode != ModeServerError {
		t.Fatal("expected internal state unaffected by mutation of returned snapshot")
	}
}

func TestInjectorIsolatesPerTool(t *testing.T) {
	inj := New(false, nil)
	_ = inj.Set("serpapi", Fault{Mode: ModeServerError, Percent: 100})

	if err := inj.Inject("http_fetch"); err != nil {
		t.Fatalf("expected unconfigured tool unaffected, got %v", err)
	}
}
