package logging

import (
	"encoding/json"
	"time"

	"github.com/byteness/toolgateway/cryptoutil"
)

// SignedEntry wraps a log entry with an HMAC-SHA256 signature over its JSON representation,
// key id, and timestamp. It is kept optional: most deployments use the plain JSONLogger, but
// an operator who needs tamper evidence on the audit trail can wrap any Logger with a
// SigningLogger.
type SignedEntry struct {
	Entry     json.RawMessage `json:"entry"`
	Signature string          `json:"signature"`
	KeyID     string          `json:"key_id"`
	Timestamp string          `json:"timestamp"`
}

func signEntry(signer *cryptoutil.Signer, keyID string, entry any) (SignedEntry, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return SignedEntry{}, err
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)

	wrapper := struct {
		Entry     json.RawMessage `json:"entry"`
		Timestamp string          `json:"timestamp"`
		KeyID     string          `json:"key_id"`
	}{Entry: entryJSON, Timestamp: timestamp, KeyID: keyID}

	wrapperJSON, err := json.Marshal(wrapper)
	if err != nil {
		return SignedEntry{}, err
	}
	// Reuse SignToken's HMAC primitive purely for the MAC half; we don't need the token
	// wire form here, just its hex signature, which is the HMAC over the base64 encoding
	// of the wrapper bytes.
	token := signer.SignToken(wrapperJSON)
	_, sig, _ := cryptoutil.SplitToken(token)

	return SignedEntry{Entry: entryJSON, Signature: sig, KeyID: keyID, Timestamp: timestamp}, nil
}

// SigningLogger wraps a Logger, additionally writing an HMAC-signed copy of every audit
// entry to a side channel for tamper-evidence verification.
type SigningLogger struct {
	inner  Logger
	signer *cryptoutil.Signer
	keyID  string
	onSign func(SignedEntry)
}

// NewSigningLogger wraps inner, signing every audit entry with signer and invoking onSign
// with the signed copy (e.g. to append it to a separate signature log).
func NewSigningLogger(inner Logger, signer *cryptoutil.Signer, keyID string, onSign func(SignedEntry)) *SigningLogger {
	return &SigningLogger{inner: inner, signer: signer, keyID: keyID, onSign: onSign}
}

// LogAudit signs and forwards entry.
func (l *SigningLogger) LogAudit(entry AuditLogEntry) {
	l.inner.LogAudit(entry)
	if l.onSign == nil {
		return
	}
	if signed, err := signEntry(l.signer, l.keyID, entry); err == nil {
		l.onSign(signed)
	}
}

// LogLine forwards the line unsigned.
func (l *SigningLogger) LogLine(level, message string, fields map[string]any) {
	l.inner.LogLine(level, message, fields)
}
