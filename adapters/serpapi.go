package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

// SerpAPI adapts the SerpApi search endpoint. Search results are safe to
// cache: identical (q, engine, num) params return the same page for the
// cache's TTL window.
type SerpAPI struct {
	mode   Mode
	client *http.Client
}

// NewSerpAPI returns an adapter for the "serpapi" tool in the given mode.
func NewSerpAPI(mode Mode) *SerpAPI {
	return &SerpAPI{mode: mode, client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *SerpAPI) Tool() string              { return "serpapi" }
func (s *SerpAPI) Actions() []string         { return []string{"search"} }
func (s *SerpAPI) Cacheable(string) bool     { return true }
func (s *SerpAPI) NeedsCredential(string) bool { return true }

func (s *SerpAPI) Validate(action string, params map[string]any) error {
	if action != "search" {
		return gatewayerr.New(gatewayerr.BadRequest, "serpapi: unsupported action").WithDetail("action", action)
	}
	if _, err := requireString(params, action, "q"); err != nil {
		return err
	}
	if engine, ok := params["engine"]; ok {
		if _, ok := engine.(string); !ok {
			return gatewayerr.New(gatewayerr.Validation, "serpapi: engine must be a string")
		}
	}
	return nil
}

type serpAPIResponse struct {
	OrganicResults []map[string]any `json:"organic_results"`
}

func (s *SerpAPI) Invoke(ctx context.Context, action string, params map[string]any, creds string) (Result, error) {
	q, _ := stringParam(params, "q")
	engine, ok := stringParam(params, "engine")
	if !ok || engine == "" {
		engine = "google"
	}

	if s.mode == ModeMock {
		return Result{Body: map[string]any{
			"organic_results": []map[string]any{
				{"title": "mock result for " + q, "link": "https://example.invalid/" + url.QueryEscape(q)},
			},
		}}, nil
	}

	if creds == "" {
		return Result{}, gatewayerr.New(gatewayerr.CredNotFound, "serpapi: no active credential")
	}

	query := url.Values{}
	query.Set("q", q)
	query.Set("engine", engine)
	query.Set("api_key", creds)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://serpapi.com/search?"+query.Encode(), nil)
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Internal, "serpapi: build request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Network, "serpapi: request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return Result{}, gatewayerr.New(gatewayerr.Upstream5xx, fmt.Sprintf("serpapi: upstream status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, gatewayerr.New(gatewayerr.Validation, fmt.Sprintf("serpapi: upstream status %d", resp.StatusCode))
	}

	var decoded serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Internal, "serpapi: decode response", err)
	}

	results := decoded.OrganicResults
	if results == nil {
		results = []map[string]any{}
	}
	return Result{Body: map[string]any{"organic_results": results}}, nil
}

var _ Adapter = (*SerpAPI)(nil)
