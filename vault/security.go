package vault

import "log"

// SecurityWarning is a single startup-time vault security finding.
type SecurityWarning struct {
	Code    string // e.g. "EPHEMERAL_KEK"
	Message string
}

// SecurityWarnings inspects the vault's key provider configuration and returns warnings for
// insecure setups: is the key-encryption-key source weak or ephemeral.
//
// A StaticKeyProvider built successfully from KEK_BASE64 carries no warning: the operator
// explicitly supplied a persistent key. The only warning this function currently emits is
// for the fallback path where no KEK was configured at all and config.Load had to mint a
// process-random one — callers pass that fact in via ephemeralKEK rather than this package
// probing config directly, keeping vault decoupled from the config package.
func SecurityWarnings(ephemeralKEK bool, env string) []SecurityWarning {
	if !ephemeralKEK {
		return nil
	}
	return []SecurityWarning{{
		Code:    "EPHEMERAL_KEK",
		Message: "KEK_BASE64 is not set; using a process-random key that will not survive a restart, so every credential will need to be re-created",
	}}
}

// LogSecurityStatus logs the vault's security configuration at startup.
func LogSecurityStatus(ephemeralKEK bool, env string) {
	for _, w := range SecurityWarnings(ephemeralKEK, env) {
		log.Printf("[SECURITY] %s: %s", w.Code, w.Message)
	}
}
