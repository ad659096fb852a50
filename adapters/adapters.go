// Package adapters implements the gateway's uniform upstream-tool contract:
// invoke(action, params, creds) -> Result | Error. Each adapter declares its
// supported actions, per-action parameter validation, cacheability, and
// credential requirement up front in a static registry rather than dispatching
// on raw strings at call time.
package adapters

import (
	"context"

	"github.com/byteness/toolgateway/chaos"
	"github.com/byteness/toolgateway/gatewayerr"
)

// Result is an adapter's successful response payload. Body carries the
// upstream's JSON-decoded result; the orchestrator's response filters operate
// on Body before it reaches the caller.
type Result struct {
	Body map[string]any
}

// Adapter is the uniform contract every tool implements.
type Adapter interface {
	// Tool returns the adapter's tool name, e.g. "serpapi".
	Tool() string
	// Actions returns the set of actions this adapter supports.
	Actions() []string
	// Cacheable reports whether action's responses may be cached.
	Cacheable(action string) bool
	// NeedsCredential reports whether action requires a ToolCredential.
	NeedsCredential(action string) bool
	// Validate checks params against action's schema before invocation.
	Validate(action string, params map[string]any) error
	// Invoke performs the call. creds is the decrypted credential secret,
	// empty when NeedsCredential is false.
	Invoke(ctx context.Context, action string, params map[string]any, creds string) (Result, error)
}

// Mode selects whether an adapter talks to a real upstream or returns
// deterministic synthetic responses.
type Mode string

const (
	ModeLive Mode = "live"
	ModeMock Mode = "mock"
)

// Registry is the static table of known adapters, keyed by tool name.
type Registry struct {
	adapters map[string]Adapter
	injector *chaos.Injector
}

// NewRegistry builds a Registry from a fixed adapter set. injector may be nil,
// in which case chaos injection is skipped entirely.
func NewRegistry(injector *chaos.Injector, adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters)), injector: injector}
	for _, a := range adapters {
		r.adapters[a.Tool()] = a
	}
	return r
}

// Lookup returns the adapter for tool and whether action is one it supports.
// Unknown tool or action both report ok=false; the caller maps that to
// BAD_REQUEST per the static-routing contract.
func (r *Registry) Lookup(tool, action string) (Adapter, bool) {
	a, ok := r.adapters[tool]
	if !ok {
		return nil, false
	}
	for _, supported := range a.Actions() {
		if supported == action {
			return a, true
		}
	}
	return nil, false
}

// Invoke validates params, runs the chaos hook, and dispatches to the
// adapter. It does not apply timeout/retry/breaker/cache wrapping — that is
// the orchestrator's job, applied around this call.
func (r *Registry) Invoke(ctx context.Context, tool, action string, params map[string]any, creds string) (Result, error) {
	a, ok := r.Lookup(tool, action)
	if !ok {
		return Result{}, gatewayerr.New(gatewayerr.BadRequest, "unknown tool or action").
			WithDetail("tool", tool).WithDetail("action", action)
	}
	if err := a.Validate(action, params); err != nil {
		return Result{}, err
	}
	if r.injector != nil {
		if err := r.injector.Inject(tool); err != nil {
			return Result{}, err
		}
	}
	return a.Invoke(ctx, action, params, creds)
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requireString(params map[string]any, action, key string) (string, error) {
	s, ok := stringParam(params, key)
	if !ok || s == "" {
		return "", gatewayerr.New(gatewayerr.Validation, "missing or invalid required parameter").
			WithDetail("action", action).WithDetail("param", key)
	}
	return s, nil
}
