// Package vault implements the credential vault: versioned, envelope-encrypted
// per-tool credentials with create/activate/get_active/delete/list semantics, backed by a
// process-level Key-Encryption-Key (KEK) obtained from a KeyProvider.
package vault

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KeyProvider unwraps the vault's KEK. Implementations may cache the unwrapped key or fetch
// it fresh on every call; Vault does not assume either.
type KeyProvider interface {
	Unwrap(ctx context.Context) (kek []byte, err error)
}

// StaticKeyProvider reads a 32-byte AES key directly from config (the `KEK_BASE64` env var).
// It is the default for single-instance and development deployments.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider decodes a base64-encoded 32-byte key.
func NewStaticKeyProvider(base64Key string) (*StaticKeyProvider, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("vault: decode KEK_BASE64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: KEK must decode to 32 bytes, got %d", len(key))
	}
	return &StaticKeyProvider{key: key}, nil
}

// Unwrap returns the static key. It never fails once constructed successfully.
func (p *StaticKeyProvider) Unwrap(_ context.Context) ([]byte, error) {
	return p.key, nil
}

// kmsAPI defines the KMS operations KMSKeyProvider needs, narrowed for testability (mirrors
// the narrow-interface style used elsewhere in this codebase for AWS clients).
type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSKeyProvider unwraps the KEK via AWS KMS Decrypt, for deployments where the KEK is
// stored as a KMS-encrypted ciphertext blob rather than a raw base64 secret.
type KMSKeyProvider struct {
	client          kmsAPI
	ciphertextBlob  []byte
	encryptionCtx   map[string]string
}

// NewKMSKeyProvider builds a provider from an AWS config and the base64-encoded ciphertext
// blob produced by `kms encrypt` against the desired KEK plaintext.
func NewKMSKeyProvider(cfg aws.Config, ciphertextBlobBase64 string, encryptionContext map[string]string) (*KMSKeyProvider, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertextBlobBase64)
	if err != nil {
		return nil, fmt.Errorf("vault: decode KMS ciphertext blob: %w", err)
	}
	return &KMSKeyProvider{
		client:         kms.NewFromConfig(cfg),
		ciphertextBlob: blob,
		encryptionCtx:  encryptionContext,
	}, nil
}

// NewKMSKeyProviderWithClient builds a provider from a pre-built client, for tests.
func NewKMSKeyProviderWithClient(client kmsAPI, ciphertextBlob []byte, encryptionContext map[string]string) *KMSKeyProvider {
	return &KMSKeyProvider{client: client, ciphertextBlob: ciphertextBlob, encryptionCtx: encryptionContext}
}

// Unwrap calls KMS Decrypt and returns the plaintext KEK. The result is not cached: callers
// that need the key repeatedly should wrap this in their own caching layer if KMS call volume
// becomes a concern.
func (p *KMSKeyProvider) Unwrap(ctx context.Context) ([]byte, error) {
	out, err := p.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    p.ciphertextBlob,
		EncryptionContext: p.encryptionCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("vault: kms decrypt: %w", err)
	}
	return out.Plaintext, nil
}
