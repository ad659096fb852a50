package testutil

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/byteness/toolgateway/policy"
	"github.com/byteness/toolgateway/store"
)

// ============================================================================
// Time helpers
// ============================================================================

// MustParseTime parses a time string using the given layout and panics on error.
// Useful for test data initialization where parse errors indicate a test bug.
//
// Example:
//
//	t := MustParseTime(time.RFC3339, "2024-01-15T10:00:00Z")
func MustParseTime(layout, value string) time.Time {
	t, err := time.Parse(layout, value)
	if err != nil {
		panic("testutil.MustParseTime: " + err.Error())
	}
	return t
}

// FixedClock returns a function that always returns the given time.
// Useful for testing time-dependent logic with deterministic values.
//
// Example:
//
//	now := time.Now()
//	clock := FixedClock(now)
//	// clock() always returns now
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// ============================================================================
// Policy helpers
// ============================================================================

// MakeAllowSpec creates a policy Spec that grants scope to every action under prefix.
//
// Example:
//
//	spec := MakeAllowSpec("fetch-url:*")
func MakeAllowSpec(scope string) policy.Spec {
	return policy.Spec{
		Scopes: []string{scope},
		Intent: "default_allow",
	}
}

// MakeDenySpec creates a default-deny policy Spec with no scopes.
//
// Example:
//
//	spec := MakeDenySpec()
func MakeDenySpec() policy.Spec {
	return policy.DefaultDenySpec()
}

// MakeQuotaSpec creates a policy Spec granting scope, bounded by a single quota on action.
//
// Example:
//
//	spec := MakeQuotaSpec("fetch-url:get", "get", policy.QuotaWindow1h, 100)
func MakeQuotaSpec(scope, action string, window policy.QuotaWindow, limit int) policy.Spec {
	return policy.Spec{
		Scopes: []string{scope},
		Intent: "default_allow",
		Quotas: []policy.Quota{{Action: action, Window: window, Limit: limit}},
	}
}

// ============================================================================
// Agent / credential helpers
// ============================================================================

// MakeAgent creates a test Agent with sensible defaults: active, no device fingerprint.
//
// Example:
//
//	a := MakeAgent("agent-1", "support-agent")
func MakeAgent(id, role string) store.Agent {
	return store.Agent{
		ID:        id,
		Name:      id,
		Role:      role,
		Status:    store.AgentActive,
		CreatedAt: time.Now().UTC(),
	}
}

// MakeSuspendedAgent creates a test Agent whose status is suspended.
//
// Example:
//
//	a := MakeSuspendedAgent("agent-1", "support-agent")
func MakeSuspendedAgent(id, role string) store.Agent {
	a := MakeAgent(id, role)
	a.Status = store.AgentSuspended
	return a
}

// MakeToolCredential creates a test ToolCredential in its active state.
//
// Example:
//
//	c := MakeToolCredential("cred-1", "fetch-url", 1)
func MakeToolCredential(id, tool string, version int) store.ToolCredential {
	now := time.Now().UTC()
	return store.ToolCredential{
		ID:          id,
		Tool:        tool,
		Version:     version,
		IsActive:    true,
		ActivatedAt: now,
		CreatedAt:   now,
	}
}

// ============================================================================
// Assertion helpers
// ============================================================================

// AssertErrorIs checks if got error matches want error using errors.Is.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertErrorIs(t, err, store.ErrNotFound)
func AssertErrorIs(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("error mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertNoError(t, err)
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertError(t, err)
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertContains checks if got string contains substr.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertContains(t, err.Error(), "not found")
func AssertContains(t *testing.T, got, substr string) {
	t.Helper()
	if !strings.Contains(got, substr) {
		t.Errorf("string does not contain expected substring:\n  got:    %q\n  substr: %q", got, substr)
	}
}

// AssertNotContains checks if got string does not contain substr.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertNotContains(t, output, "error")
func AssertNotContains(t *testing.T, got, substr string) {
	t.Helper()
	if strings.Contains(got, substr) {
		t.Errorf("string contains unexpected substring:\n  got:    %q\n  substr: %q", got, substr)
	}
}

// AssertEqual checks if got equals want.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertEqual(t, result.Status, 200)
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("value mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

// AssertNotEqual checks if got does not equal want.
// Uses t.Helper() for correct line number reporting.
//
// Example:
//
//	AssertNotEqual(t, result.ID, "")
func AssertNotEqual[T comparable](t *testing.T, got, notWant T) {
	t.Helper()
	if got == notWant {
		t.Errorf("value should not be: %v", got)
	}
}

// AssertTrue fails if condition is false.
// Uses t.Helper() for correct line number reporting.
func AssertTrue(t *testing.T, condition bool, msg ...string) {
	t.Helper()
	if !condition {
		if len(msg) > 0 {
			t.Errorf("expected true: %s", msg[0])
		} else {
			t.Error("expected true, got false")
		}
	}
}

// AssertFalse fails if condition is true.
// Uses t.Helper() for correct line number reporting.
func AssertFalse(t *testing.T, condition bool, msg ...string) {
	t.Helper()
	if condition {
		if len(msg) > 0 {
			t.Errorf("expected false: %s", msg[0])
		} else {
			t.Error("expected false, got true")
		}
	}
}

// AssertNil fails if value is not nil.
// Uses t.Helper() for correct line number reporting.
func AssertNil(t *testing.T, value interface{}) {
	t.Helper()
	if value != nil {
		t.Errorf("expected nil, got: %v", value)
	}
}

// AssertNotNil fails if value is nil.
// Uses t.Helper() for correct line number reporting.
func AssertNotNil(t *testing.T, value interface{}) {
	t.Helper()
	if value == nil {
		t.Error("expected non-nil value, got nil")
	}
}

// ============================================================================
// Generic helpers
// ============================================================================

// Ptr returns a pointer to the given value.
// Useful for constructing test data with pointer fields.
//
// Example:
//
//	input := &dynamodb.GetItemInput{TableName: testutil.Ptr("gateway-agents")}
func Ptr[T any](v T) *T {
	return &v
}
