package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/byteness/toolgateway/logging"
	"github.com/byteness/toolgateway/store"
)

// ============================================================================
// MockStore - store.Store (AgentStore, TokenStore, PolicyStore, QuotaStore,
// CredentialStore, AuditStore)
// ============================================================================

// MockStore implements store.Store with per-method override funcs and call tracking,
// following the same pattern as the MockDynamoDBClient/MockKMSClient AWS mocks: call the
// *Func field if set, otherwise fall back to an in-memory default so tests that don't care
// about a given method can still exercise the rest of the pipeline.
type MockStore struct {
	mu sync.Mutex

	agents      map[string]store.Agent
	tokens      map[string]store.TokenRecord
	tokenRegs   map[string]store.TokenRegistryEntry
	policies    map[string]store.PolicyRecord
	quotas      map[string]store.QuotaCounter
	credentials map[string]store.ToolCredential
	audit       []store.AuditRecord

	CreateAgentFunc          func(ctx context.Context, agent store.Agent) error
	GetAgentFunc             func(ctx context.Context, id string) (store.Agent, error)
	ListAgentsFunc           func(ctx context.Context) ([]store.Agent, error)
	UpdateAgentStatusFunc    func(ctx context.Context, id string, status store.AgentStatus) error
	CreateTokenFunc          func(ctx context.Context, token store.TokenRecord, registry store.TokenRegistryEntry) error
	GetTokenFunc             func(ctx context.Context, id string) (store.TokenRecord, error)
	GetTokenRegistryFunc     func(ctx context.Context, id string) (store.TokenRegistryEntry, error)
	ListTokensByAgentFunc    func(ctx context.Context, agentID string) ([]store.TokenRecord, error)
	RevokeTokenFunc          func(ctx context.Context, id string, revokedAt time.Time) error
	MarkRotationWarnedFunc   func(ctx context.Context, id string, at time.Time) error
	CreatePolicyFunc         func(ctx context.Context, policy store.PolicyRecord) error
	GetPolicyFunc            func(ctx context.Context, id string) (store.PolicyRecord, error)
	ListPoliciesForAgentFunc func(ctx context.Context, agentID, role string) ([]store.PolicyRecord, error)
	UpdatePolicySpecFunc     func(ctx context.Context, id string, specJSON []byte, specHash [32]byte) error
	SetPolicyActiveFunc      func(ctx context.Context, id string, active bool) error
	IncrementQuotaFunc       func(ctx context.Context, policyID, quotaKey string, limit int, window time.Duration, now time.Time) (store.QuotaCounter, bool, error)
	GetQuotaFunc             func(ctx context.Context, policyID, quotaKey string) (store.QuotaCounter, error)
	CreateCredentialFunc     func(ctx context.Context, cred store.ToolCredential) error
	GetCredentialFunc        func(ctx context.Context, id string) (store.ToolCredential, error)
	ActivateCredentialFunc   func(ctx context.Context, id, tool string, activatedAt time.Time) error
	GetActiveCredentialFunc  func(ctx context.Context, tool string) (store.ToolCredential, error)
	ListCredentialsFunc      func(ctx context.Context, tool string) ([]store.ToolCredential, error)
	DeleteCredentialFunc     func(ctx context.Context, id string) error
	AppendAuditFunc          func(ctx context.Context, entry store.AuditRecord) error
	ListAuditFunc            func(ctx context.Context, limit int) ([]store.AuditRecord, error)

	AppendAuditCalls []store.AuditRecord
}

var _ store.Store = (*MockStore)(nil)

// NewMockStore returns an empty MockStore backed by in-memory maps, ready to use without
// setting any override func.
func NewMockStore() *MockStore {
	return &MockStore{
		agents:      make(map[string]store.Agent),
		tokens:      make(map[string]store.TokenRecord),
		tokenRegs:   make(map[string]store.TokenRegistryEntry),
		policies:    make(map[string]store.PolicyRecord),
		quotas:      make(map[string]store.QuotaCounter),
		credentials: make(map[string]store.ToolCredential),
	}
}

// --- AgentStore ---

func (m *MockStore) CreateAgent(ctx context.Context, agent store.Agent) error {
	if m.CreateAgentFunc != nil {
		return m.CreateAgentFunc(ctx, agent)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent.ID] = agent
	return nil
}

func (m *MockStore) GetAgent(ctx context.Context, id string) (store.Agent, error) {
	if m.GetAgentFunc != nil {
		return m.GetAgentFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return store.Agent{}, store.ErrNotFound
	}
	return a, nil
}

func (m *MockStore) ListAgents(ctx context.Context) ([]store.Agent, error) {
	if m.ListAgentsFunc != nil {
		return m.ListAgentsFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	return out, nil
}

func (m *MockStore) UpdateAgentStatus(ctx context.Context, id string, status store.AgentStatus) error {
	if m.UpdateAgentStatusFunc != nil {
		return m.UpdateAgentStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	m.agents[id] = a
	return nil
}

// --- TokenStore ---

func (m *MockStore) CreateToken(ctx context.Context, token store.TokenRecord, registry store.TokenRegistryEntry) error {
	if m.CreateTokenFunc != nil {
		return m.CreateTokenFunc(ctx, token, registry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
	m.tokenRegs[registry.TokenID] = registry
	return nil
}

func (m *MockStore) GetToken(ctx context.Context, id string) (store.TokenRecord, error) {
	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return store.TokenRecord{}, store.ErrNotFound
	}
	return t, nil
}

func (m *MockStore) GetTokenRegistry(ctx context.Context, id string) (store.TokenRegistryEntry, error) {
	if m.GetTokenRegistryFunc != nil {
		return m.GetTokenRegistryFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tokenRegs[id]
	if !ok {
		return store.TokenRegistryEntry{}, store.ErrNotFound
	}
	return r, nil
}

func (m *MockStore) ListTokensByAgent(ctx context.Context, agentID string) ([]store.TokenRecord, error) {
	if m.ListTokensByAgentFunc != nil {
		return m.ListTokensByAgentFunc(ctx, agentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.TokenRecord
	for _, t := range m.tokens {
		if t.AgentID == agentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockStore) RevokeToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, id, revokedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Revoked = true
	t.RevokedAt = revokedAt
	m.tokens[id] = t
	return nil
}

func (m *MockStore) MarkRotationWarned(ctx context.Context, id string, at time.Time) error {
	if m.MarkRotationWarnedFunc != nil {
		return m.MarkRotationWarnedFunc(ctx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	t.RotationWarnedAt = at
	m.tokens[id] = t
	return nil
}

// --- PolicyStore ---

func (m *MockStore) CreatePolicy(ctx context.Context, policy store.PolicyRecord) error {
	if m.CreatePolicyFunc != nil {
		return m.CreatePolicyFunc(ctx, policy)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.ID] = policy
	return nil
}

func (m *MockStore) GetPolicy(ctx context.Context, id string) (store.PolicyRecord, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return store.PolicyRecord{}, store.ErrNotFound
	}
	return p, nil
}

func (m *MockStore) ListPoliciesForAgent(ctx context.Context, agentID, role string) ([]store.PolicyRecord, error) {
	if m.ListPoliciesForAgentFunc != nil {
		return m.ListPoliciesForAgentFunc(ctx, agentID, role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.PolicyRecord
	for _, p := range m.policies {
		if !p.Active {
			continue
		}
		if p.Binding.AgentID == agentID || (role != "" && p.Binding.Role == role) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockStore) UpdatePolicySpec(ctx context.Context, id string, specJSON []byte, specHash [32]byte) error {
	if m.UpdatePolicySpecFunc != nil {
		return m.UpdatePolicySpecFunc(ctx, id, specJSON, specHash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return store.ErrNotFound
	}
	p.SpecJSON = specJSON
	p.SpecHash = specHash
	m.policies[id] = p
	return nil
}

func (m *MockStore) SetPolicyActive(ctx context.Context, id string, active bool) error {
	if m.SetPolicyActiveFunc != nil {
		return m.SetPolicyActiveFunc(ctx, id, active)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Active = active
	m.policies[id] = p
	return nil
}

// --- QuotaStore ---

func (m *MockStore) IncrementQuota(ctx context.Context, policyID, quotaKey string, limit int, window time.Duration, now time.Time) (store.QuotaCounter, bool, error) {
	if m.IncrementQuotaFunc != nil {
		return m.IncrementQuotaFunc(ctx, policyID, quotaKey, limit, window, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := policyID + "|" + quotaKey
	counter, ok := m.quotas[key]
	if !ok {
		counter = store.QuotaCounter{ID: key, PolicyID: policyID, QuotaKey: quotaKey, ResetAt: now.Add(window)}
	}
	if !now.Before(counter.ResetAt) {
		counter.Current = 0
		counter.ResetAt = now.Add(window)
	}

	before := counter
	if counter.Current+1 > limit {
		m.quotas[key] = counter
		return before, false, nil
	}
	counter.Current++
	m.quotas[key] = counter
	return before, true, nil
}

func (m *MockStore) GetQuota(ctx context.Context, policyID, quotaKey string) (store.QuotaCounter, error) {
	if m.GetQuotaFunc != nil {
		return m.GetQuotaFunc(ctx, policyID, quotaKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := policyID + "|" + quotaKey
	c, ok := m.quotas[key]
	if !ok {
		return store.QuotaCounter{}, store.ErrNotFound
	}
	return c, nil
}

// --- CredentialStore ---

func (m *MockStore) CreateCredential(ctx context.Context, cred store.ToolCredential) error {
	if m.CreateCredentialFunc != nil {
		return m.CreateCredentialFunc(ctx, cred)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.ID] = cred
	return nil
}

func (m *MockStore) GetCredential(ctx context.Context, id string) (store.ToolCredential, error) {
	if m.GetCredentialFunc != nil {
		return m.GetCredentialFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[id]
	if !ok {
		return store.ToolCredential{}, store.ErrNotFound
	}
	return c, nil
}

func (m *MockStore) ActivateCredential(ctx context.Context, id, tool string, activatedAt time.Time) error {
	if m.ActivateCredentialFunc != nil {
		return m.ActivateCredentialFunc(ctx, id, tool, activatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.credentials[id]
	if !ok || target.Tool != tool {
		return store.ErrNotFound
	}
	for credID, c := range m.credentials {
		if c.Tool != tool || credID == id {
			continue
		}
		if c.IsActive {
			c.IsActive = false
			c.DeactivatedAt = activatedAt
			m.credentials[credID] = c
		}
	}
	target.IsActive = true
	target.ActivatedAt = activatedAt
	target.DeactivatedAt = time.Time{}
	m.credentials[id] = target
	return nil
}

func (m *MockStore) GetActiveCredential(ctx context.Context, tool string) (store.ToolCredential, error) {
	if m.GetActiveCredentialFunc != nil {
		return m.GetActiveCredentialFunc(ctx, tool)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.credentials {
		if c.Tool == tool && c.IsActive {
			return c, nil
		}
	}
	return store.ToolCredential{}, store.ErrNotFound
}

func (m *MockStore) ListCredentials(ctx context.Context, tool string) ([]store.ToolCredential, error) {
	if m.ListCredentialsFunc != nil {
		return m.ListCredentialsFunc(ctx, tool)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ToolCredential
	for _, c := range m.credentials {
		if c.Tool == tool {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockStore) DeleteCredential(ctx context.Context, id string) error {
	if m.DeleteCredentialFunc != nil {
		return m.DeleteCredentialFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.credentials, id)
	return nil
}

// --- AuditStore ---

func (m *MockStore) AppendAudit(ctx context.Context, entry store.AuditRecord) error {
	m.mu.Lock()
	m.AppendAuditCalls = append(m.AppendAuditCalls, entry)
	m.mu.Unlock()

	if m.AppendAuditFunc != nil {
		return m.AppendAuditFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *MockStore) ListAudit(ctx context.Context, limit int) ([]store.AuditRecord, error) {
	if m.ListAuditFunc != nil {
		return m.ListAuditFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.audit) {
		limit = len(m.audit)
	}
	start := len(m.audit) - limit
	out := make([]store.AuditRecord, limit)
	copy(out, m.audit[start:])
	return out, nil
}

// ============================================================================
// MockLogger - logging.Logger
// ============================================================================

// MockLogger implements logging.Logger, recording every entry for assertions instead of
// writing anywhere.
type MockLogger struct {
	mu sync.Mutex

	AuditEntries []logging.AuditLogEntry
	Lines        []MockLogLine
}

// MockLogLine is one recorded call to LogLine.
type MockLogLine struct {
	Level   string
	Message string
	Fields  map[string]any
}

var _ logging.Logger = (*MockLogger)(nil)

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// LogAudit records entry.
func (l *MockLogger) LogAudit(entry logging.AuditLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.AuditEntries = append(l.AuditEntries, entry)
}

// LogLine records level, message, and fields.
func (l *MockLogger) LogLine(level, message string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, MockLogLine{Level: level, Message: message, Fields: fields})
}

// LastAudit returns the most recently recorded audit entry, or the zero value if none.
func (l *MockLogger) LastAudit() logging.AuditLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.AuditEntries) == 0 {
		return logging.AuditLogEntry{}
	}
	return l.AuditEntries[len(l.AuditEntries)-1]
}

// AuditCount returns the number of audit entries recorded so far.
func (l *MockLogger) AuditCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.AuditEntries)
}
