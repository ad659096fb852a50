// Package gatewayerr defines the gateway's error taxonomy: stable error kinds, each mapped
// to a wire status code, carrying enough detail for an audit entry without ever leaking
// secrets or raw upstream bodies.
package gatewayerr

import "fmt"

// Kind is a stable error classification independent of any particular Go type.
type Kind string

const (
	BadRequest         Kind = "BAD_REQUEST"
	TokenFormat        Kind = "TOKEN_FORMAT"
	TokenSignature     Kind = "TOKEN_SIGNATURE"
	TokenExpired       Kind = "TOKEN_EXPIRED"
	TokenAgentInactive Kind = "TOKEN_AGENT_INACTIVE"
	TokenProvenance    Kind = "TOKEN_PROVENANCE"
	PolicyDenied       Kind = "POLICY_DENIED"
	QuotaExceeded      Kind = "QUOTA_EXCEEDED"
	RateLimited        Kind = "RATE_LIMITED"
	Validation         Kind = "VALIDATION"
	IdempotencyConflict Kind = "IDEMPOTENCY_CONFLICT"
	BreakerOpen        Kind = "BREAKER_OPEN"
	Upstream5xx        Kind = "UPSTREAM_5XX"
	UpstreamTimeout    Kind = "UPSTREAM_TIMEOUT"
	Network            Kind = "NETWORK"
	CredNotFound       Kind = "CRED_NOT_FOUND"
	ServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	Internal           Kind = "INTERNAL"
	CryptoDecrypt      Kind = "CRYPTO_DECRYPT"
)

// statusCodes maps each Kind to its wire status code.
var statusCodes = map[Kind]int{
	BadRequest:          400,
	TokenFormat:         401,
	TokenSignature:      403,
	TokenExpired:        403,
	TokenAgentInactive:  403,
	TokenProvenance:     403,
	PolicyDenied:        403,
	QuotaExceeded:       429,
	RateLimited:         429,
	Validation:          422,
	IdempotencyConflict: 409,
	BreakerOpen:         503,
	Upstream5xx:         502,
	UpstreamTimeout:     504,
	Network:             502,
	CredNotFound:        503,
	ServiceUnavailable:  503,
	Internal:            500,
	CryptoDecrypt:       500,
}

// StatusCode returns the wire status code for a Kind, or 500 for an unknown Kind.
func (k Kind) StatusCode() int {
	if code, ok := statusCodes[k]; ok {
		return code
	}
	return 500
}

// Retryable reports whether the orchestrator's retry policy (§4.6) may retry a failure
// of this kind. Only a narrow whitelist of upstream-origin kinds is retryable.
func (k Kind) Retryable() bool {
	switch k {
	case Upstream5xx, UpstreamTimeout, Network:
		return true
	default:
		return false
	}
}

// Error is the gateway's structured error type. Every pipeline stage returns one of these
// instead of an ad hoc error, so the orchestrator can map it to a wire response and a single
// audit entry without type-switching on arbitrary errors.
type Error struct {
	kind       Kind
	message    string
	reason     string
	details    map[string]any
	retryAfter int // seconds; zero unless the kind carries a retry-after
	cause      error
}

// New creates an Error of the given kind with a human-readable message.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap creates an Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's stable classification.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the wire error code, identical to the Kind string (§7 table uses the kind
// itself as the stable code).
func (e *Error) Code() string { return string(e.kind) }

// StatusCode returns the wire HTTP-style status code for this error.
func (e *Error) StatusCode() int { return e.kind.StatusCode() }

// Reason returns an optional human-readable reason string (e.g. "Scope 'gmail_send:send'
// not allowed for this agent").
func (e *Error) Reason() string { return e.reason }

// WithReason attaches a reason string and returns the same Error for chaining.
func (e *Error) WithReason(reason string) *Error {
	e.reason = reason
	return e
}

// Details returns additional structured detail (e.g. quota current/limit/reset_at).
func (e *Error) Details() map[string]any {
	if e.details == nil {
		return nil
	}
	out := make(map[string]any, len(e.details))
	for k, v := range e.details {
		out[k] = v
	}
	return out
}

// WithDetail attaches a single structured detail and returns the same Error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// RetryAfter returns the seconds-until-retry hint (§4.6 rate limiter, §4.5 quota).
func (e *Error) RetryAfter() int { return e.retryAfter }

// WithRetryAfter attaches a retry-after hint in seconds and returns the same Error.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.retryAfter = seconds
	return e
}

// As extracts a *Error from err by direct type assertion. Unlike the standard library
// errors.As, it does not unwrap: a *Error wrapped inside another error is not found.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if ge, ok := err.(*Error); ok {
		return ge, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is a *Error, or Internal otherwise.
func KindOf(err error) Kind {
	if ge, ok := As(err); ok {
		return ge.kind
	}
	return Internal
}
