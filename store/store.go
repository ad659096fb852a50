package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by any lookup method when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the single persistence seam the gateway core depends on. A
// conforming implementation may be eventually consistent everywhere except credential
// activation and quota increment-with-bound, which must be transactional.
type Store interface {
	AgentStore
	TokenStore
	PolicyStore
	QuotaStore
	CredentialStore
	AuditStore
}

// AgentStore covers Agent CRUD (admin lifecycle; mutable status only).
type AgentStore interface {
	CreateAgent(ctx context.Context, agent Agent) error
	GetAgent(ctx context.Context, id string) (Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	UpdateAgentStatus(ctx context.Context, id string, status AgentStatus) error
}

// TokenStore covers TokenRecord and TokenRegistryEntry persistence.
type TokenStore interface {
	CreateToken(ctx context.Context, token TokenRecord, registry TokenRegistryEntry) error
	GetToken(ctx context.Context, id string) (TokenRecord, error)
	GetTokenRegistry(ctx context.Context, id string) (TokenRegistryEntry, error)
	ListTokensByAgent(ctx context.Context, agentID string) ([]TokenRecord, error)
	RevokeToken(ctx context.Context, id string, revokedAt time.Time) error
	MarkRotationWarned(ctx context.Context, id string, at time.Time) error
}

// PolicyStore covers PolicyRecord CRUD and lookup by binding.
type PolicyStore interface {
	CreatePolicy(ctx context.Context, policy PolicyRecord) error
	GetPolicy(ctx context.Context, id string) (PolicyRecord, error)
	ListPoliciesForAgent(ctx context.Context, agentID, role string) ([]PolicyRecord, error)
	UpdatePolicySpec(ctx context.Context, id string, specJSON []byte, specHash [32]byte) error
	SetPolicyActive(ctx context.Context, id string, active bool) error
}

// QuotaStore covers the one place the gateway requires an atomic read-modify-write bounded
// increment.
type QuotaStore interface {
	// IncrementQuota atomically increments the counter identified by (policyID, quotaKey),
	// resetting it first if now >= its reset_at. It returns the counter's value *before* the
	// increment was applied, together with whether the increment was admitted (current+1 <=
	// limit). If not admitted, the counter is left unchanged.
	IncrementQuota(ctx context.Context, policyID, quotaKey string, limit int, window time.Duration, now time.Time) (before QuotaCounter, admitted bool, err error)
	GetQuota(ctx context.Context, policyID, quotaKey string) (QuotaCounter, error)
}

// CredentialStore covers ToolCredential CRUD; activation must be transactional.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred ToolCredential) error
	GetCredential(ctx context.Context, id string) (ToolCredential, error)
	// ActivateCredential atomically sets id's IsActive=true and deactivates every other
	// credential for the same tool.
	ActivateCredential(ctx context.Context, id, tool string, activatedAt time.Time) error
	GetActiveCredential(ctx context.Context, tool string) (ToolCredential, error)
	ListCredentials(ctx context.Context, tool string) ([]ToolCredential, error)
	DeleteCredential(ctx context.Context, id string) error
}

// AuditStore persists audit log entries. Entries are write-once and append-only.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditRecord) error
	ListAudit(ctx context.Context, limit int) ([]AuditRecord, error)
}

// AuditRecord is the persisted form of an audit entry. The wire/log shape lives in
// package logging; this is the storage-facing twin to avoid store depending on logging.
type AuditRecord struct {
	CorrelationID  string
	AgentID        string
	Tool           string
	Action         string
	StatusCode     int
	Success        bool
	DurationMS     int64
	ErrorKind      string
	PolicyDecision string
	InstanceID     string
	Timestamp      time.Time
}
