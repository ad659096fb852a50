// Package store defines the gateway's abstract persistence seam: Agents,
// Tokens, TokenRegistry entries, Policies, QuotaCounters, ToolCredentials, and the audit
// log. The reference implementation (MemoryStore) is in-process; store/dynamodbstore
// provides an external, strongly-consistent alternative for the "ShareableStore" seam used
// in multi-replica deployments.
package store

import "time"

// AgentStatus is the lifecycle state of an Agent.
type AgentStatus string

const (
	AgentActive    AgentStatus = "active"
	AgentSuspended AgentStatus = "suspended"
)

// Agent is the identity of a tool caller.
type Agent struct {
	ID        string
	Name      string
	CreatedBy string
	Role      string
	PublicKey string // PEM
	Status    AgentStatus
	CreatedAt time.Time

	// DeviceFingerprint is optional metadata surfaced in audit entries only; it is never an
	// authorization input.
	DeviceFingerprint string
}

// IsActive reports whether the agent can currently be issued or validated for tokens.
func (a Agent) IsActive() bool {
	return a.Status == AgentActive
}

// TokenRecord is a single issued token.
type TokenRecord struct {
	ID          string
	AgentID     string
	OpaqueToken string
	ExpiresAt   time.Time
	Revoked     bool
	RevokedAt   time.Time
	IssuedAt    time.Time

	// RotationWarnedAt tracks the last time the rotation-recommended header was emitted for
	// this token, so the orchestrator doesn't re-log every request.
	RotationWarnedAt time.Time
}

// IsValidAt reports whether the token record itself is live at t, ignoring agent status and
// signature (those are checked separately by the token service).
func (t TokenRecord) IsValidAt(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// TokenRegistryEntry provides provenance binding: a token_id bound to the exact
// payload hash that was signed at issuance.
type TokenRegistryEntry struct {
	TokenID     string
	AgentID     string
	PayloadHash [32]byte
	IssuedAt    time.Time
	ExpiresAt   time.Time
	IsRevoked   bool
	RevokedAt   time.Time
}

// PolicyBinding identifies what a PolicyRecord is bound to: exactly one of AgentID or Role.
type PolicyBinding struct {
	AgentID string
	Role    string
}

// PolicyRecord is a persisted, content-addressed policy document.
type PolicyRecord struct {
	ID        string
	Binding   PolicyBinding
	SpecJSON  []byte  // canonical JSON of the PolicySpec
	SpecHash  [32]byte
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuotaCounter tracks usage against a single policy quota window.
type QuotaCounter struct {
	ID       string
	PolicyID string
	QuotaKey string // "tool:action|window"
	Current  int
	ResetAt  time.Time
}

// ToolCredential is a versioned, envelope-encrypted credential for one tool.
type ToolCredential struct {
	ID                   string
	Tool                 string
	Version              int
	IsActive             bool
	EncryptedCredential  string // base64 hybrid envelope, see cryptoutil.HybridEncrypt
	EncryptedMetadata    string // optional, same envelope format
	CreatedAt            time.Time
	ActivatedAt          time.Time
	DeactivatedAt        time.Time
}
