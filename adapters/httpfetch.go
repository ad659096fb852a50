package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

// maxFetchBody bounds how much of an upstream response body http_fetch reads,
// preventing an unbounded response from exhausting gateway memory.
const maxFetchBody = 1 << 20 // 1 MiB

// HTTPFetch adapts a generic outbound GET. It needs no credential: the
// caller-supplied URL is the only input, and scope enforcement (which hosts
// are reachable) happens in policy, not here.
type HTTPFetch struct {
	mode   Mode
	client *http.Client
}

// NewHTTPFetch returns an adapter for the "http_fetch" tool in the given mode.
func NewHTTPFetch(mode Mode) *HTTPFetch {
	return &HTTPFetch{mode: mode, client: &http.Client{Timeout: 15 * time.Second}}
}

func (h *HTTPFetch) Tool() string              { return "http_fetch" }
func (h *HTTPFetch) Actions() []string         { return []string{"get"} }
func (h *HTTPFetch) Cacheable(string) bool     { return true }
func (h *HTTPFetch) NeedsCredential(string) bool { return false }

func (h *HTTPFetch) Validate(action string, params map[string]any) error {
	if action != "get" {
		return gatewayerr.New(gatewayerr.BadRequest, "http_fetch: unsupported action").WithDetail("action", action)
	}
	target, err := requireString(params, action, "url")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(target, "https://") && !strings.HasPrefix(target, "http://") {
		return gatewayerr.New(gatewayerr.Validation, "http_fetch: url must be http(s)").WithDetail("url", target)
	}
	return nil
}

func (h *HTTPFetch) Invoke(ctx context.Context, action string, params map[string]any, creds string) (Result, error) {
	target, _ := stringParam(params, "url")

	if h.mode == ModeMock {
		return Result{Body: map[string]any{
			"status": 200,
			"body":   "mock body for " + target,
		}}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Internal, "http_fetch: build request", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Network, "http_fetch: request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Network, "http_fetch: read body", err)
	}

	if resp.StatusCode >= 500 {
		return Result{}, gatewayerr.New(gatewayerr.Upstream5xx, fmt.Sprintf("http_fetch: upstream status %d", resp.StatusCode))
	}

	return Result{Body: map[string]any{
		"status": resp.StatusCode,
		"body":   string(body),
	}}, nil
}

var _ Adapter = (*HTTPFetch)(nil)
