// Package chaos implements the gateway's process-local fault injector: an
// operator-controlled table of per-tool failure modes used to exercise the
// retry, breaker, and timeout paths without a live upstream outage. It is a
// development/staging aid and is refused outright in production mode.
package chaos

import (
	"math/rand"
	"sync"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

// Mode names a single injected failure behavior.
type Mode string

const (
	// ModeTimeout fails the call immediately with UpstreamTimeout; it does not
	// sleep or wait for any deadline to pass.
	ModeTimeout Mode = "timeout"
	// ModeServerError fails the call immediately with Upstream5xx.
	ModeServerError Mode = "500"
	// ModeJitter sleeps a random duration below Fault.JitterMax (no sleep when
	// JitterMax is unset), then lets the call proceed normally. Used to
	// exercise latency-sensitive metrics and timeouts without tripping them on
	// every call.
	ModeJitter Mode = "jitter"
)

func (m Mode) valid() bool {
	switch m {
	case ModeTimeout, ModeServerError, ModeJitter:
		return true
	}
	return false
}

// Fault is a single tool's injected failure configuration.
type Fault struct {
	Mode Mode
	// Percent is the chance, 0-100 inclusive, that an invocation for this
	// tool is affected. 100 means every call.
	Percent int
	// JitterMax bounds the sleep injected by ModeJitter. Ignored otherwise.
	JitterMax time.Duration
}

func (f Fault) validate() error {
	if !f.Mode.valid() {
		return gatewayerr.New(gatewayerr.Validation, "unknown chaos mode").WithDetail("mode", string(f.Mode))
	}
	if f.Percent < 0 || f.Percent > 100 {
		return gatewayerr.New(gatewayerr.Validation, "chaos percent must be 0-100").WithDetail("percent", f.Percent)
	}
	return nil
}

// Counters receives injection/clearing notifications so callers can feed a
// metrics registry without this package importing one directly.
type Counters interface {
	IncInjection(tool string, mode Mode)
	IncClearing(tool string)
}

type nopCounters struct{}

func (nopCounters) IncInjection(string, Mode) {}
func (nopCounters) IncClearing(string)         {}

// Injector holds the process-local tool -> Fault table and samples it on
// every upstream call. Safe for concurrent use.
type Injector struct {
	mu         sync.RWMutex
	faults     map[string]Fault
	production bool
	counters   Counters
	rng        *rand.Rand
	rngMu      sync.Mutex
}

// New returns an Injector. When production is true, Set and Clear are
// refused: the fault table can only be populated in development/staging.
func New(production bool, counters Counters) *Injector {
	if counters == nil {
		counters = nopCounters{}
	}
	return &Injector{
		faults:     make(map[string]Fault),
		production: production,
		counters:   counters,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// Set installs or replaces the fault configuration for tool. Refused in
// production mode.
func (inj *Injector) Set(tool string, f Fault) error {
	if inj.production {
		return gatewayerr.New(gatewayerr.Validation, "chaos injection is disabled in production")
	}
	if err := f.validate(); err != nil {
		return err
	}
	inj.mu.Lock()
	defer inj.mu.Unlock()
	inj.faults[tool] = f
	return nil
}

// Clear removes any fault configured for tool. Refused in production mode.
func (inj *Injector) Clear(tool string) error {
	if inj.production {
		return gatewayerr.New(gatewayerr.Validation, "chaos injection is disabled in production")
	}
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if _, ok := inj.faults[tool]; ok {
		delete(inj.faults, tool)
		inj.counters.IncClearing(tool)
	}
	return nil
}

// ClearAll removes every configured fault. Refused in production mode.
func (inj *Injector) ClearAll() error {
	if inj.production {
		return gatewayerr.New(gatewayerr.Validation, "chaos injection is disabled in production")
	}
	inj.mu.Lock()
	defer inj.mu.Unlock()
	for tool := range inj.faults {
		delete(inj.faults, tool)
		inj.counters.IncClearing(tool)
	}
	return nil
}

// Get returns the fault currently configured for tool, if any.
func (inj *Injector) Get(tool string) (Fault, bool) {
	inj.mu.RLock()
	defer inj.mu.RUnlock()
	f, ok := inj.faults[tool]
	return f, ok
}

// Active returns a snapshot of every configured tool -> Fault entry.
func (inj *Injector) Active() map[string]Fault {
	inj.mu.RLock()
	defer inj.mu.RUnlock()
	out := make(map[string]Fault, len(inj.faults))
	for k, v := range inj.faults {
		out[k] = v
	}
	return out
}

func (inj *Injector) roll() int {
	inj.rngMu.Lock()
	defer inj.rngMu.Unlock()
	return inj.rng.Intn(100)
}

// Inject samples the fault table for tool and, if the configured percentage
// fires, blocks or fails the call per its mode. It returns nil when no fault
// is configured, or when sampling misses. For ModeJitter it sleeps in place
// and then returns nil so the caller proceeds normally; Inject takes no
// context, so that sleep is not cut short by cancellation.
func (inj *Injector) Inject(tool string) error {
	f, ok := inj.Get(tool)
	if !ok {
		return nil
	}
	if inj.roll() >= f.Percent {
		return nil
	}

	inj.counters.IncInjection(tool, f.Mode)

	switch f.Mode {
	case ModeServerError:
		return gatewayerr.New(gatewayerr.Upstream5xx, "chaos: injected upstream failure").
			WithReason("fault injected for " + tool)
	case ModeTimeout:
		return gatewayerr.New(gatewayerr.UpstreamTimeout, "chaos: injected timeout").
			WithReason("fault injected for " + tool)
	case ModeJitter:
		d := f.JitterMax
		if d <= 0 {
			return nil
		}
		time.Sleep(time.Duration(inj.roll()) * d / 100)
		return nil
	default:
		return nil
	}
}
