// Package token implements agent token issuance, validation, and revocation: opaque tokens
// signed with HMAC-SHA256 over a canonical JSON payload, with optional provenance binding via
// a TokenRegistryEntry.
package token

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/byteness/toolgateway/cryptoutil"
	"github.com/byteness/toolgateway/gatewayerr"
	"github.com/byteness/toolgateway/store"
)

// Payload is the signed contents of an issued token.
type Payload struct {
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
	Tools      []string  `json:"tools"`
	Permissions []string `json:"permissions"`
	ExpiresAt  time.Time `json:"expires_at"`
	Nonce      string    `json:"nonce"`
	IssuedAt   time.Time `json:"issued_at"`
}

// Claims is what a successful Validate returns to the caller.
type Claims struct {
	TokenID     string
	Payload     Payload
	PayloadHash [32]byte
}

// Service issues, validates, and revokes agent tokens.
type Service struct {
	agents store.AgentStore
	tokens store.TokenStore
	signer *cryptoutil.Signer
	now    func() time.Time
}

// New builds a token Service.
func New(agents store.AgentStore, tokens store.TokenStore, signer *cryptoutil.Signer) *Service {
	return &Service{agents: agents, tokens: tokens, signer: signer, now: func() time.Time { return time.Now().UTC() }}
}

// Issue mints a new token for agentID.
func (s *Service) Issue(ctx context.Context, agentID string, tools, permissions []string, expiresAt time.Time) (opaqueToken string, record store.TokenRecord, err error) {
	now := s.now()
	if !expiresAt.After(now) {
		return "", store.TokenRecord{}, gatewayerr.New(gatewayerr.Validation, "expires_at must be in the future")
	}

	agent, getErr := s.agents.GetAgent(ctx, agentID)
	if getErr != nil {
		if errors.Is(getErr, store.ErrNotFound) {
			return "", store.TokenRecord{}, gatewayerr.New(gatewayerr.Validation, "unknown agent")
		}
		return "", store.TokenRecord{}, fmt.Errorf("token: get agent: %w", getErr)
	}
	if !agent.IsActive() {
		return "", store.TokenRecord{}, gatewayerr.New(gatewayerr.TokenAgentInactive, "agent is not active")
	}

	payload := Payload{
		AgentID:     agent.ID,
		AgentName:   agent.Name,
		Tools:       tools,
		Permissions: permissions,
		ExpiresAt:   expiresAt,
		Nonce:       uuid.NewString(),
		IssuedAt:    now,
	}

	canonical, err := cryptoutil.Canonical(payload)
	if err != nil {
		return "", store.TokenRecord{}, fmt.Errorf("token: canonicalize payload: %w", err)
	}
	payloadHash := sha256.Sum256(canonical)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", store.TokenRecord{}, fmt.Errorf("token: marshal payload: %w", err)
	}
	opaqueToken = s.signer.SignToken(payloadJSON)

	tokenID := uuid.NewString()
	record = store.TokenRecord{
		ID:          tokenID,
		AgentID:     agent.ID,
		OpaqueToken: opaqueToken,
		ExpiresAt:   expiresAt,
		IssuedAt:    now,
	}
	registry := store.TokenRegistryEntry{
		TokenID:     tokenID,
		AgentID:     agent.ID,
		PayloadHash: payloadHash,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}
	if err := s.tokens.CreateToken(ctx, record, registry); err != nil {
		return "", store.TokenRecord{}, fmt.Errorf("token: persist: %w", err)
	}
	return opaqueToken, record, nil
}

// Validate verifies opaqueToken's signature, expiry, and owning agent status. When tokenID
// and proofPayload are both non-empty, it additionally checks registry provenance:
// proofPayload's hash must match the registry's recorded payload_hash, and the registry
// entry must not be revoked.
func (s *Service) Validate(ctx context.Context, opaqueToken string, tokenID string, proofPayload []byte) (Claims, error) {
	encodedPayload, signature, ok := cryptoutil.SplitToken(opaqueToken)
	if !ok {
		return Claims{}, gatewayerr.New(gatewayerr.TokenFormat, "malformed token")
	}

	payloadJSON, valid, err := s.signer.VerifyToken(encodedPayload, signature)
	if err != nil {
		return Claims{}, fmt.Errorf("token: verify: %w", err)
	}
	if !valid {
		return Claims{}, gatewayerr.New(gatewayerr.TokenSignature, "signature mismatch")
	}

	var payload Payload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return Claims{}, gatewayerr.Wrap(gatewayerr.TokenFormat, "malformed token payload", err)
	}

	now := s.now()
	if !now.Before(payload.ExpiresAt) {
		return Claims{}, gatewayerr.New(gatewayerr.TokenExpired, "token has expired")
	}

	agent, err := s.agents.GetAgent(ctx, payload.AgentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Claims{}, gatewayerr.New(gatewayerr.TokenAgentInactive, "unknown agent")
		}
		return Claims{}, fmt.Errorf("token: get agent: %w", err)
	}
	if !agent.IsActive() {
		return Claims{}, gatewayerr.New(gatewayerr.TokenAgentInactive, "agent is not active")
	}

	canonical, err := cryptoutil.Canonical(payload)
	if err != nil {
		return Claims{}, fmt.Errorf("token: canonicalize payload: %w", err)
	}
	payloadHash := sha256.Sum256(canonical)

	if tokenID != "" && proofPayload != nil {
		registry, err := s.tokens.GetTokenRegistry(ctx, tokenID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Claims{}, gatewayerr.New(gatewayerr.TokenProvenance, "no registry entry for token_id")
			}
			return Claims{}, fmt.Errorf("token: get registry: %w", err)
		}
		if registry.IsRevoked {
			return Claims{}, gatewayerr.New(gatewayerr.TokenProvenance, "token registry entry revoked")
		}
		proofHash := sha256.Sum256(proofPayload)
		if proofHash != registry.PayloadHash {
			return Claims{}, gatewayerr.New(gatewayerr.TokenProvenance, "proof payload does not match registered payload hash")
		}
	}

	return Claims{TokenID: tokenID, Payload: payload, PayloadHash: payloadHash}, nil
}

// Revoke flips is_revoked on the token and its registry entry; subsequent validations fail.
func (s *Service) Revoke(ctx context.Context, tokenID string) error {
	if err := s.tokens.RevokeToken(ctx, tokenID, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return gatewayerr.New(gatewayerr.Validation, "unknown token")
		}
		return fmt.Errorf("token: revoke: %w", err)
	}
	return nil
}

// RotationRecommended reports whether expiresAt is close enough to now that the orchestrator
// should emit the X-Token-Rotation-Recommended header (less than 15s left).
func RotationRecommended(expiresAt, now time.Time) bool {
	return expiresAt.Sub(now) < 15*time.Second
}
