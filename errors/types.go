// Package errors provides structured error types with fix suggestions for the gateway's
// AWS-backed components. These error types wrap AWS SDK errors and attach actionable
// guidance on how to resolve common permission and throughput failures.
package errors

// GatewayError provides additional context for error handling.
// It wraps underlying errors with error codes and actionable suggestions.
type GatewayError interface {
	error
	Unwrap() error              // Original error
	Code() string               // Error code (e.g., "DYNAMODB_ACCESS_DENIED")
	Suggestion() string         // Actionable fix suggestion
	Context() map[string]string // Additional context (table, operation, etc.)
}

// DynamoDB error codes
const (
	ErrCodeDynamoDBAccessDenied    = "DYNAMODB_ACCESS_DENIED"
	ErrCodeDynamoDBTableNotFound   = "DYNAMODB_TABLE_NOT_FOUND"
	ErrCodeDynamoDBThrottled       = "DYNAMODB_THROTTLED"
	ErrCodeDynamoDBConditionFailed = "DYNAMODB_CONDITION_FAILED"
)

// IAM error codes
const (
	ErrCodeIAMSimulateAccessDenied = "IAM_SIMULATE_ACCESS_DENIED"
)

// gatewayError implements the GatewayError interface.
type gatewayError struct {
	code       string
	message    string
	suggestion string
	context    map[string]string
	cause      error
}

// Error implements the error interface.
func (e *gatewayError) Error() string {
	return e.message
}

// Unwrap returns the underlying cause error.
func (e *gatewayError) Unwrap() error {
	return e.cause
}

// Code returns the error code.
func (e *gatewayError) Code() string {
	return e.code
}

// Suggestion returns the actionable fix suggestion.
func (e *gatewayError) Suggestion() string {
	return e.suggestion
}

// Context returns additional context about the error.
func (e *gatewayError) Context() map[string]string {
	return e.context
}

// New creates a new GatewayError with the given code, message, suggestion, and cause.
func New(code, message, suggestion string, cause error) GatewayError {
	return &gatewayError{
		code:       code,
		message:    message,
		suggestion: suggestion,
		context:    make(map[string]string),
		cause:      cause,
	}
}

// WithContext adds context to an error and returns a new GatewayError.
// The original error is not modified.
func WithContext(err GatewayError, key, value string) GatewayError {
	existingCtx := err.Context()
	newCtx := make(map[string]string, len(existingCtx)+1)
	for k, v := range existingCtx {
		newCtx[k] = v
	}
	newCtx[key] = value

	return &gatewayError{
		code:       err.Code(),
		message:    err.Error(),
		suggestion: err.Suggestion(),
		context:    newCtx,
		cause:      err.Unwrap(),
	}
}

// IsGatewayError checks if err is a GatewayError and returns it.
// If err is nil or not a GatewayError, returns (nil, false).
func IsGatewayError(err error) (GatewayError, bool) {
	if err == nil {
		return nil, false
	}
	if ge, ok := err.(GatewayError); ok {
		return ge, true
	}
	return nil, false
}

// GetCode extracts the error code from an error.
// Returns empty string if err is not a GatewayError.
func GetCode(err error) string {
	if ge, ok := IsGatewayError(err); ok {
		return ge.Code()
	}
	return ""
}
