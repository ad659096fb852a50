package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/byteness/toolgateway/logging"
	"github.com/byteness/toolgateway/policy"
	"github.com/byteness/toolgateway/store"
)

// Compile-time interface verification for store and logging mocks
var (
	_ store.Store    = (*MockStore)(nil)
	_ logging.Logger = (*MockLogger)(nil)
)

func TestMockStore_ImplementsInterface(t *testing.T) {
	s := NewMockStore()
	var _ store.Store = s
	if s == nil {
		t.Fatal("NewMockStore returned nil")
	}
}

func TestMockLogger_ImplementsInterface(t *testing.T) {
	logger := NewMockLogger()
	var _ logging.Logger = logger
	if logger == nil {
		t.Fatal("NewMockLogger returned nil")
	}
}

func TestMockStore_AgentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	agent := MakeAgent("agent-1", "support-agent")
	AssertNoError(t, s.CreateAgent(ctx, agent))

	got, err := s.GetAgent(ctx, "agent-1")
	AssertNoError(t, err)
	AssertEqual(t, got.Role, "support-agent")
	AssertTrue(t, got.IsActive())

	AssertNoError(t, s.UpdateAgentStatus(ctx, "agent-1", store.AgentSuspended))
	got, err = s.GetAgent(ctx, "agent-1")
	AssertNoError(t, err)
	AssertFalse(t, got.IsActive())

	_, err = s.GetAgent(ctx, "missing")
	AssertErrorIs(t, err, store.ErrNotFound)
}

func TestMockStore_QuotaIncrementBounds(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	now := MustParseTime(time.RFC3339, "2024-01-15T10:00:00Z")

	before, admitted, err := s.IncrementQuota(ctx, "policy-1", "fetch-url:get|1h", 1, time.Hour, now)
	AssertNoError(t, err)
	AssertTrue(t, admitted)
	AssertEqual(t, before.Current, 0)

	_, admitted, err = s.IncrementQuota(ctx, "policy-1", "fetch-url:get|1h", 1, time.Hour, now)
	AssertNoError(t, err)
	AssertFalse(t, admitted)
}

func TestMockStore_CredentialActivationDeactivatesOthers(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	c1 := MakeToolCredential("cred-1", "fetch-url", 1)
	c2 := MakeToolCredential("cred-2", "fetch-url", 2)
	AssertNoError(t, s.CreateCredential(ctx, c1))
	AssertNoError(t, s.CreateCredential(ctx, c2))

	now := time.Now().UTC()
	AssertNoError(t, s.ActivateCredential(ctx, "cred-2", "fetch-url", now))

	active, err := s.GetActiveCredential(ctx, "fetch-url")
	AssertNoError(t, err)
	AssertEqual(t, active.ID, "cred-2")

	got1, err := s.GetCredential(ctx, "cred-1")
	AssertNoError(t, err)
	AssertFalse(t, got1.IsActive)
}

func TestMockLogger_RecordsAudit(t *testing.T) {
	logger := NewMockLogger()
	logger.LogAudit(logging.AuditLogEntry{CorrelationID: "corr-1", Tool: "fetch-url", Success: true})
	AssertEqual(t, logger.AuditCount(), 1)
	AssertEqual(t, logger.LastAudit().CorrelationID, "corr-1")
}

func TestHelperFunctions(t *testing.T) {
	allow := MakeAllowSpec("fetch-url:*")
	AssertEqual(t, allow.Intent, "default_allow")
	AssertContains(t, allow.Scopes[0], "fetch-url")

	deny := MakeDenySpec()
	AssertEqual(t, len(deny.Scopes), 0)

	quota := MakeQuotaSpec("fetch-url:get", "get", policy.QuotaWindow1h, 100)
	AssertEqual(t, len(quota.Quotas), 1)
	AssertEqual(t, quota.Quotas[0].Limit, 100)

	agent := MakeAgent("agent-1", "support-agent")
	AssertTrue(t, agent.IsActive())

	suspended := MakeSuspendedAgent("agent-2", "support-agent")
	AssertFalse(t, suspended.IsActive())

	cred := MakeToolCredential("cred-1", "fetch-url", 1)
	AssertTrue(t, cred.IsActive)

	strPtr := Ptr("hello")
	AssertEqual(t, *strPtr, "hello")
}
