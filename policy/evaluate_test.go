package policy

import (
	"context"
	"testing"
	"time"

	"github.com/byteness/toolgateway/store"
)

func TestEvaluateDeniesOutOfScope(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{Scopes: []string{"serpapi:search"}}
	req := Request{Tool: "openai", Action: "chat", Params: map[string]any{}, Now: time.Now()}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonScope {
		t.Fatalf("expected SCOPE denial, got %+v", decision)
	}
}

func TestEvaluateAllowsInScope(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{Scopes: []string{"serpapi:search"}}
	req := Request{Tool: "serpapi", Action: "search", Params: map[string]any{}, Now: time.Now()}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allow, got %+v", decision)
	}
}

func TestEvaluateDeniesIntentMismatch(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{Scopes: []string{"gmail_send:send"}, Intent: "customer_support"}
	req := Request{Tool: "gmail_send", Action: "send", Params: map[string]any{}, CallerIntent: "marketing", Now: time.Now()}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonIntent {
		t.Fatalf("expected INTENT denial, got %+v", decision)
	}
}

func TestEvaluateAllowsMissingCallerIntent(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{Scopes: []string{"gmail_send:send"}, Intent: "customer_support"}
	req := Request{Tool: "gmail_send", Action: "send", Params: map[string]any{}, Now: time.Now()}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allow when caller presents no intent, got %+v", decision)
	}
}

func TestEvaluateDeniesOversizedParams(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{Scopes: []string{"serpapi:search"}, Guards: &Guards{MaxRequestSize: 5}}
	req := Request{Tool: "serpapi", Action: "search", Params: map[string]any{"q": "a very long query string"}, Now: time.Now()}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonSize {
		t.Fatalf("expected SIZE denial, got %+v", decision)
	}
}

func TestEvaluateDomainBlockedAndAllowed(t *testing.T) {
	memStore := store.NewMemoryStore()

	blocked := Spec{Scopes: []string{"http_fetch:get"}, Guards: &Guards{BlockedDomains: []string{"evil.example.com"}}}
	req := Request{Tool: "http_fetch", Action: "get", Params: map[string]any{"url": "https://evil.example.com/x"}, Now: time.Now()}
	decision, err := Evaluate(context.Background(), blocked, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate blocked: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonDomainBlocked {
		t.Fatalf("expected DOMAIN_BLOCKED, got %+v", decision)
	}

	allowlisted := Spec{Scopes: []string{"http_fetch:get"}, Guards: &Guards{AllowedDomains: []string{"*.good.example.com"}}}
	okReq := Request{Tool: "http_fetch", Action: "get", Params: map[string]any{"url": "https://api.good.example.com/x"}, Now: time.Now()}
	decision, err = Evaluate(context.Background(), allowlisted, "p1", okReq, memStore)
	if err != nil {
		t.Fatalf("evaluate allowed: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allow for glob-matched domain, got %+v", decision)
	}

	badReq := Request{Tool: "http_fetch", Action: "get", Params: map[string]any{"url": "https://other.example.com/x"}, Now: time.Now()}
	decision, err = Evaluate(context.Background(), allowlisted, "p1", badReq, memStore)
	if err != nil {
		t.Fatalf("evaluate not-allowed: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonDomainNotAllowed {
		t.Fatalf("expected DOMAIN_NOT_ALLOWED, got %+v", decision)
	}
}

func TestEvaluateTimeWindowLexicographicNoWrap(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{Scopes: []string{"serpapi:search"}, Guards: &Guards{TimeWindow: &TimeWindow{Start: "22:00", End: "02:00", Timezone: "UTC"}}}

	// 23:00 UTC is lexicographically between "02:00" and "22:00"? "23:00" > "22:00" but also
	// "23:00" > "02:00", so with start > end the window can never match (spec-preserved quirk).
	req := Request{Tool: "serpapi", Action: "search", Params: map[string]any{}, Now: time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)}
	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected midnight-crossing window to never match, per preserved limitation")
	}
}

func TestEvaluateQuotaExceeded(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{
		Scopes: []string{"openai:chat"},
		Quotas: []Quota{{Action: "openai:chat", Window: QuotaWindow1h, Limit: 1}},
	}
	req := Request{Tool: "openai", Action: "chat", Params: map[string]any{}, Now: time.Now()}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected first call admitted, got %+v", decision)
	}

	decision, err = Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonQuota {
		t.Fatalf("expected QUOTA denial on second call, got %+v", decision)
	}
}

func TestEvaluateScheduleDeniesWrongDay(t *testing.T) {
	memStore := store.NewMemoryStore()
	spec := Spec{
		Scopes:   []string{"serpapi:search"},
		Schedule: &Schedule{Enabled: true, AllowedDays: []int{1, 2, 3, 4, 5}},
	}
	sunday := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	req := Request{Tool: "serpapi", Action: "search", Params: map[string]any{}, Now: sunday}

	decision, err := Evaluate(context.Background(), spec, "p1", req, memStore)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonSchedule {
		t.Fatalf("expected SCHEDULE denial on Sunday, got %+v", decision)
	}
}
