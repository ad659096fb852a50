package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// MinSigningKeyLength is the minimum acceptable length for an HMAC-SHA256 signing secret.
// 32 bytes matches the SHA-256 output size.
const MinSigningKeyLength = 32

// Signer signs and verifies opaque token payloads with HMAC-SHA256. It is used
// both for the token wire signature and, optionally, for tamper-evident audit log entries.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer using secret as the HMAC key. An error is returned if secret is
// shorter than MinSigningKeyLength.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < MinSigningKeyLength {
		return nil, fmt.Errorf("cryptoutil: signing secret must be at least %d bytes", MinSigningKeyLength)
	}
	return &Signer{secret: secret}, nil
}

// sign returns the hex-encoded HMAC-SHA256 of data.
func (s *Signer) sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignToken produces the gateway's opaque token wire form: "<base64_payload>.<hex_hmac>"
// payload is the raw (not yet base64-encoded) JSON payload bytes.
func (s *Signer) SignToken(payload []byte) string {
	encodedPayload := base64.StdEncoding.EncodeToString(payload)
	signature := s.sign([]byte(encodedPayload))
	return encodedPayload + "." + signature
}

// SplitToken splits a token's wire form into its base64 payload and hex signature halves.
// Returns ok=false if the token does not contain exactly one "." separator or either half
// is empty.
func SplitToken(token string) (encodedPayload, signature string, ok bool) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], ".") {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// VerifyToken recomputes the signature over encodedPayload and compares it in constant time
// against signature. Returns the decoded payload bytes on success.
func (s *Signer) VerifyToken(encodedPayload, signature string) (payload []byte, ok bool, err error) {
	expected := s.sign([]byte(encodedPayload))

	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return nil, false, err
	}
	providedBytes, err := hex.DecodeString(signature)
	if err != nil {
		// Malformed hex is an invalid signature, not a processing error.
		return nil, false, nil
	}
	if subtle.ConstantTimeCompare(providedBytes, expectedBytes) != 1 {
		return nil, false, nil
	}

	payload, err = base64.StdEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}
