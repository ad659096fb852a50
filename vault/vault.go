package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/byteness/toolgateway/cryptoutil"
	"github.com/byteness/toolgateway/gatewayerr"
	"github.com/byteness/toolgateway/store"
)

// ErrForceRequired is returned by Delete when the caller tries to remove the only active
// credential for a tool without force=true.
var ErrForceRequired = errors.New("vault: deleting the only active credential requires force")

// Vault is the credential vault: create/activate/get_active/delete/list, backed
// by a Store and a KeyProvider-sourced KEK.
type Vault struct {
	store store.CredentialStore
	keys  KeyProvider
	now   func() time.Time
}

// New builds a Vault over the given credential store and key provider.
func New(credStore store.CredentialStore, keys KeyProvider) *Vault {
	return &Vault{store: credStore, keys: keys, now: func() time.Time { return time.Now().UTC() }}
}

type credentialPayload struct {
	Secret   string `json:"secret"`
	Metadata string `json:"metadata,omitempty"`
}

// Create stores a new, inactive credential version for tool. plaintext is the raw secret
// (e.g. an API key); metadata is optional non-secret context (e.g. key rotation hints) that
// is still encrypted alongside it.
func (v *Vault) Create(ctx context.Context, tool, plaintext, metadata string) (store.ToolCredential, error) {
	kek, err := v.keys.Unwrap(ctx)
	if err != nil {
		return store.ToolCredential{}, fmt.Errorf("vault: unwrap kek: %w", err)
	}

	payload, err := json.Marshal(credentialPayload{Secret: plaintext, Metadata: metadata})
	if err != nil {
		return store.ToolCredential{}, fmt.Errorf("vault: marshal credential payload: %w", err)
	}
	sealed, err := cryptoutil.SymmetricSeal(payload, kek)
	if err != nil {
		return store.ToolCredential{}, fmt.Errorf("vault: seal credential: %w", err)
	}

	existing, err := v.store.ListCredentials(ctx, tool)
	if err != nil {
		return store.ToolCredential{}, fmt.Errorf("vault: list existing credentials: %w", err)
	}
	nextVersion := 1
	for _, c := range existing {
		if c.Version >= nextVersion {
			nextVersion = c.Version + 1
		}
	}

	cred := store.ToolCredential{
		ID:                  uuid.NewString(),
		Tool:                tool,
		Version:             nextVersion,
		IsActive:            false,
		EncryptedCredential: sealed,
		CreatedAt:           v.now(),
	}
	if err := v.store.CreateCredential(ctx, cred); err != nil {
		return store.ToolCredential{}, fmt.Errorf("vault: persist credential: %w", err)
	}
	return cred, nil
}

// Activate atomically promotes id to active for its tool, deactivating every other version.
func (v *Vault) Activate(ctx context.Context, id string) error {
	cred, err := v.store.GetCredential(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return gatewayerr.New(gatewayerr.CredNotFound, "credential not found")
		}
		return fmt.Errorf("vault: get credential: %w", err)
	}
	return v.store.ActivateCredential(ctx, cred.ID, cred.Tool, v.now())
}

// GetActive decrypts and returns the plaintext secret for tool's active credential.
func (v *Vault) GetActive(ctx context.Context, tool string) (secret, metadata string, err error) {
	cred, err := v.store.GetActiveCredential(ctx, tool)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", "", gatewayerr.New(gatewayerr.CredNotFound, fmt.Sprintf("no active credential for tool %q", tool))
		}
		return "", "", fmt.Errorf("vault: get active credential: %w", err)
	}

	kek, err := v.keys.Unwrap(ctx)
	if err != nil {
		return "", "", fmt.Errorf("vault: unwrap kek: %w", err)
	}
	plaintext, err := cryptoutil.SymmetricOpen(cred.EncryptedCredential, kek)
	if err != nil {
		return "", "", err
	}
	var payload credentialPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return "", "", gatewayerr.Wrap(gatewayerr.CryptoDecrypt, "malformed decrypted credential", err)
	}
	return payload.Secret, payload.Metadata, nil
}

// Delete removes a credential. Deleting the only active credential for a tool requires
// force=true.
func (v *Vault) Delete(ctx context.Context, id string, force bool) error {
	cred, err := v.store.GetCredential(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return gatewayerr.New(gatewayerr.CredNotFound, "credential not found")
		}
		return fmt.Errorf("vault: get credential: %w", err)
	}

	if cred.IsActive && !force {
		siblings, err := v.store.ListCredentials(ctx, cred.Tool)
		if err != nil {
			return fmt.Errorf("vault: list sibling credentials: %w", err)
		}
		if len(siblings) <= 1 {
			return ErrForceRequired
		}
	}
	return v.store.DeleteCredential(ctx, id)
}

// List returns every credential version for tool, most recent first.
func (v *Vault) List(ctx context.Context, tool string) ([]store.ToolCredential, error) {
	creds, err := v.store.ListCredentials(ctx, tool)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(creds); i++ {
		for j := i; j > 0 && creds[j].Version > creds[j-1].Version; j-- {
			creds[j], creds[j-1] = creds[j-1], creds[j]
		}
	}
	return creds, nil
}
