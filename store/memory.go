package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process, concurrent-safe reference implementation of Store. It is the
// default for single-replica deployments; store/dynamodbstore provides the external,
// strongly-consistent alternative for multi-replica ones.
type MemoryStore struct {
	mu sync.Mutex

	agents      map[string]Agent
	tokens      map[string]TokenRecord
	tokenRegs   map[string]TokenRegistryEntry
	policies    map[string]PolicyRecord
	quotas      map[string]QuotaCounter
	credentials map[string]ToolCredential
	audit       []AuditRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:      make(map[string]Agent),
		tokens:      make(map[string]TokenRecord),
		tokenRegs:   make(map[string]TokenRegistryEntry),
		policies:    make(map[string]PolicyRecord),
		quotas:      make(map[string]QuotaCounter),
		credentials: make(map[string]ToolCredential),
	}
}

var _ Store = (*MemoryStore)(nil)

// --- AgentStore ---

func (s *MemoryStore) CreateAgent(_ context.Context, agent Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.ID] = agent
	return nil
}

func (s *MemoryStore) GetAgent(_ context.Context, id string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListAgents(_ context.Context) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out, nil
}

func (s *MemoryStore) UpdateAgentStatus(_ context.Context, id string, status AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	s.agents[id] = a
	return nil
}

// --- TokenStore ---

func (s *MemoryStore) CreateToken(_ context.Context, token TokenRecord, registry TokenRegistryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = token
	s.tokenRegs[registry.TokenID] = registry
	return nil
}

func (s *MemoryStore) GetToken(_ context.Context, id string) (TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return TokenRecord{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) GetTokenRegistry(_ context.Context, id string) (TokenRegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tokenRegs[id]
	if !ok {
		return TokenRegistryEntry{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) ListTokensByAgent(_ context.Context, agentID string) ([]TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TokenRecord
	for _, t := range s.tokens {
		if t.AgentID == agentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) RevokeToken(_ context.Context, id string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	t.Revoked = true
	t.RevokedAt = revokedAt
	s.tokens[id] = t

	if r, ok := s.tokenRegs[id]; ok {
		r.IsRevoked = true
		r.RevokedAt = revokedAt
		s.tokenRegs[id] = r
	}
	return nil
}

func (s *MemoryStore) MarkRotationWarned(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	t.RotationWarnedAt = at
	s.tokens[id] = t
	return nil
}

// --- PolicyStore ---

func (s *MemoryStore) CreatePolicy(_ context.Context, policy PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.ID] = policy
	return nil
}

func (s *MemoryStore) GetPolicy(_ context.Context, id string) (PolicyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return PolicyRecord{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListPoliciesForAgent(_ context.Context, agentID, role string) ([]PolicyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PolicyRecord
	for _, p := range s.policies {
		if !p.Active {
			continue
		}
		if p.Binding.AgentID == agentID || (role != "" && p.Binding.Role == role) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdatePolicySpec(_ context.Context, id string, specJSON []byte, specHash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return ErrNotFound
	}
	p.SpecJSON = specJSON
	p.SpecHash = specHash
	p.UpdatedAt = time.Now().UTC()
	s.policies[id] = p
	return nil
}

func (s *MemoryStore) SetPolicyActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = active
	s.policies[id] = p
	return nil
}

// --- QuotaStore ---

func (s *MemoryStore) IncrementQuota(_ context.Context, policyID, quotaKey string, limit int, window time.Duration, now time.Time) (QuotaCounter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := policyID + "|" + quotaKey
	counter, ok := s.quotas[key]
	if !ok {
		counter = QuotaCounter{ID: key, PolicyID: policyID, QuotaKey: quotaKey, ResetAt: now.Add(window)}
	}
	if !now.Before(counter.ResetAt) {
		counter.Current = 0
		counter.ResetAt = now.Add(window)
	}

	before := counter
	if counter.Current+1 > limit {
		s.quotas[key] = counter
		return before, false, nil
	}
	counter.Current++
	s.quotas[key] = counter
	return before, true, nil
}

func (s *MemoryStore) GetQuota(_ context.Context, policyID, quotaKey string) (QuotaCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := policyID + "|" + quotaKey
	c, ok := s.quotas[key]
	if !ok {
		return QuotaCounter{}, ErrNotFound
	}
	return c, nil
}

// --- CredentialStore ---

func (s *MemoryStore) CreateCredential(_ context.Context, cred ToolCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.ID] = cred
	return nil
}

func (s *MemoryStore) GetCredential(_ context.Context, id string) (ToolCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok {
		return ToolCredential{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ActivateCredential(_ context.Context, id, tool string, activatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.credentials[id]
	if !ok {
		return ErrNotFound
	}
	if target.Tool != tool {
		return ErrNotFound
	}

	for credID, c := range s.credentials {
		if c.Tool != tool || credID == id {
			continue
		}
		if c.IsActive {
			c.IsActive = false
			c.DeactivatedAt = activatedAt
			s.credentials[credID] = c
		}
	}

	target.IsActive = true
	target.ActivatedAt = activatedAt
	target.DeactivatedAt = time.Time{}
	s.credentials[id] = target
	return nil
}

func (s *MemoryStore) GetActiveCredential(_ context.Context, tool string) (ToolCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.Tool == tool && c.IsActive {
			return c, nil
		}
	}
	return ToolCredential{}, ErrNotFound
}

func (s *MemoryStore) ListCredentials(_ context.Context, tool string) ([]ToolCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ToolCredential
	for _, c := range s.credentials {
		if c.Tool == tool {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteCredential(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[id]; !ok {
		return ErrNotFound
	}
	delete(s.credentials, id)
	return nil
}

// --- AuditStore ---

func (s *MemoryStore) AppendAudit(_ context.Context, entry AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *MemoryStore) ListAudit(_ context.Context, limit int) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.audit) {
		limit = len(s.audit)
	}
	start := len(s.audit) - limit
	out := make([]AuditRecord, limit)
	copy(out, s.audit[start:])
	return out, nil
}
