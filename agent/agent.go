// Package agent implements the admin-path lifecycle of an Agent: created via
// the admin surface, mutable status only, never deleted while tokens reference it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/byteness/toolgateway/gatewayerr"
	"github.com/byteness/toolgateway/store"
)

// Service manages Agent records.
type Service struct {
	agents store.AgentStore
	tokens store.TokenStore
	now    func() time.Time
}

// New builds an agent Service.
func New(agents store.AgentStore, tokens store.TokenStore) *Service {
	return &Service{agents: agents, tokens: tokens, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers a new agent with its RSA public key (PEM) and role. Status starts active.
func (s *Service) Create(ctx context.Context, name, createdBy, role, publicKeyPEM, deviceFingerprint string) (store.Agent, error) {
	if name == "" || role == "" || publicKeyPEM == "" {
		return store.Agent{}, gatewayerr.New(gatewayerr.Validation, "name, role, and public_key are required")
	}
	a := store.Agent{
		ID:                uuid.NewString(),
		Name:              name,
		CreatedBy:         createdBy,
		Role:              role,
		PublicKey:         publicKeyPEM,
		Status:            store.AgentActive,
		CreatedAt:         s.now(),
		DeviceFingerprint: deviceFingerprint,
	}
	if err := s.agents.CreateAgent(ctx, a); err != nil {
		return store.Agent{}, fmt.Errorf("agent: create: %w", err)
	}
	return a, nil
}

// Get returns the agent record for id.
func (s *Service) Get(ctx context.Context, id string) (store.Agent, error) {
	a, err := s.agents.GetAgent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Agent{}, gatewayerr.New(gatewayerr.Validation, "unknown agent")
	}
	return a, err
}

// List returns every registered agent.
func (s *Service) List(ctx context.Context) ([]store.Agent, error) {
	return s.agents.ListAgents(ctx)
}

// Suspend flips an agent's status to suspended. Existing tokens remain on record but fail
// validation immediately, since Validate re-checks agent status on every call.
func (s *Service) Suspend(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, store.AgentSuspended)
}

// Reactivate flips an agent's status back to active.
func (s *Service) Reactivate(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, store.AgentActive)
}

func (s *Service) setStatus(ctx context.Context, id string, status store.AgentStatus) error {
	if err := s.agents.UpdateAgentStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return gatewayerr.New(gatewayerr.Validation, "unknown agent")
		}
		return fmt.Errorf("agent: update status: %w", err)
	}
	return nil
}

// ActiveTokenCount reports how many non-revoked, non-expired tokens an agent currently holds
// — used by the admin CLI to warn before a suspend that would orphan in-flight sessions.
func (s *Service) ActiveTokenCount(ctx context.Context, id string) (int, error) {
	tokens, err := s.tokens.ListTokensByAgent(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("agent: list tokens: %w", err)
	}
	now := s.now()
	count := 0
	for _, t := range tokens {
		if t.IsValidAt(now) {
			count++
		}
	}
	return count, nil
}
