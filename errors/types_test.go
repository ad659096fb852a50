package errors

import (
	"errors"
	"testing"
)

func TestGatewayErrorInterface(t *testing.T) {
	var _ GatewayError = &gatewayError{}
}

func TestGatewayError_Error(t *testing.T) {
	err := &gatewayError{
		code:       ErrCodeDynamoDBAccessDenied,
		message:    "access denied to table",
		suggestion: "add dynamodb:GetItem permission",
		context:    map[string]string{"table": "gateway-tokens"},
		cause:      errors.New("underlying error"),
	}

	if got := err.Error(); got != "access denied to table" {
		t.Errorf("Error() = %q, want %q", got, "access denied to table")
	}
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &gatewayError{
		code:       ErrCodeDynamoDBAccessDenied,
		message:    "access denied",
		suggestion: "fix permission",
		cause:      cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestGatewayError_Unwrap_Nil(t *testing.T) {
	err := &gatewayError{
		code:    ErrCodeDynamoDBAccessDenied,
		message: "access denied",
		cause:   nil,
	}

	if got := err.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestGatewayError_Code(t *testing.T) {
	err := &gatewayError{
		code:    ErrCodeDynamoDBTableNotFound,
		message: "table not found",
	}

	if got := err.Code(); got != ErrCodeDynamoDBTableNotFound {
		t.Errorf("Code() = %q, want %q", got, ErrCodeDynamoDBTableNotFound)
	}
}

func TestGatewayError_Suggestion(t *testing.T) {
	suggestion := "run: gatewayctl permissions plan"
	err := &gatewayError{
		code:       ErrCodeDynamoDBTableNotFound,
		message:    "table not found",
		suggestion: suggestion,
	}

	if got := err.Suggestion(); got != suggestion {
		t.Errorf("Suggestion() = %q, want %q", got, suggestion)
	}
}

func TestGatewayError_Context(t *testing.T) {
	ctx := map[string]string{
		"table":     "gateway-policies",
		"operation": "GetItem",
	}
	err := &gatewayError{
		code:    ErrCodeDynamoDBAccessDenied,
		message: "access denied",
		context: ctx,
	}

	got := err.Context()
	if len(got) != 2 {
		t.Errorf("Context() has %d entries, want 2", len(got))
	}
	if got["table"] != "gateway-policies" {
		t.Errorf("Context()[\"table\"] = %q, want %q", got["table"], "gateway-policies")
	}
	if got["operation"] != "GetItem" {
		t.Errorf("Context()[\"operation\"] = %q, want %q", got["operation"], "GetItem")
	}
}

func TestNew(t *testing.T) {
	cause := errors.New("original")
	err := New(ErrCodeDynamoDBAccessDenied, "access denied", "add permission", cause)

	if err.Code() != ErrCodeDynamoDBAccessDenied {
		t.Errorf("Code() = %q, want %q", err.Code(), ErrCodeDynamoDBAccessDenied)
	}
	if err.Error() != "access denied" {
		t.Errorf("Error() = %q, want %q", err.Error(), "access denied")
	}
	if err.Suggestion() != "add permission" {
		t.Errorf("Suggestion() = %q, want %q", err.Suggestion(), "add permission")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if err.Context() == nil {
		t.Error("Context() is nil, want initialized map")
	}
}

func TestNew_NilCause(t *testing.T) {
	err := New(ErrCodeDynamoDBConditionFailed, "condition failed", "check item version", nil)

	if err.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", err.Unwrap())
	}
}

func TestWithContext(t *testing.T) {
	original := New(ErrCodeDynamoDBAccessDenied, "access denied", "add permission", nil)
	withCtx := WithContext(original, "table", "gateway-tokens")

	ctx := withCtx.Context()
	if ctx["table"] != "gateway-tokens" {
		t.Errorf("Context()[\"table\"] = %q, want %q", ctx["table"], "gateway-tokens")
	}

	if len(original.Context()) != 0 {
		t.Errorf("Original Context() has %d entries, want 0", len(original.Context()))
	}
}

func TestWithContext_PreservesExisting(t *testing.T) {
	original := New(ErrCodeDynamoDBAccessDenied, "access denied", "add permission", nil)
	withFirst := WithContext(original, "key1", "value1")
	withSecond := WithContext(withFirst, "key2", "value2")

	ctx := withSecond.Context()
	if len(ctx) != 2 {
		t.Errorf("Context() has %d entries, want 2", len(ctx))
	}
	if ctx["key1"] != "value1" {
		t.Errorf("Context()[\"key1\"] = %q, want %q", ctx["key1"], "value1")
	}
	if ctx["key2"] != "value2" {
		t.Errorf("Context()[\"key2\"] = %q, want %q", ctx["key2"], "value2")
	}
}

func TestWithContext_PreservesOtherFields(t *testing.T) {
	cause := errors.New("cause")
	original := New(ErrCodeDynamoDBAccessDenied, "access denied", "add permission", cause)
	withCtx := WithContext(original, "key", "value")

	if withCtx.Code() != ErrCodeDynamoDBAccessDenied {
		t.Errorf("Code() = %q, want %q", withCtx.Code(), ErrCodeDynamoDBAccessDenied)
	}
	if withCtx.Error() != "access denied" {
		t.Errorf("Error() = %q, want %q", withCtx.Error(), "access denied")
	}
	if withCtx.Suggestion() != "add permission" {
		t.Errorf("Suggestion() = %q, want %q", withCtx.Suggestion(), "add permission")
	}
	if withCtx.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", withCtx.Unwrap(), cause)
	}
}

func TestIsGatewayError_GatewayError(t *testing.T) {
	err := New(ErrCodeDynamoDBAccessDenied, "access denied", "add permission", nil)

	got, ok := IsGatewayError(err)
	if !ok {
		t.Error("IsGatewayError() = false, want true")
	}
	if got == nil {
		t.Error("IsGatewayError() returned nil, want error")
	}
	if got.Code() != ErrCodeDynamoDBAccessDenied {
		t.Errorf("Code() = %q, want %q", got.Code(), ErrCodeDynamoDBAccessDenied)
	}
}

func TestIsGatewayError_RegularError(t *testing.T) {
	err := errors.New("regular error")

	got, ok := IsGatewayError(err)
	if ok {
		t.Error("IsGatewayError() = true, want false")
	}
	if got != nil {
		t.Errorf("IsGatewayError() = %v, want nil", got)
	}
}

func TestIsGatewayError_NilError(t *testing.T) {
	got, ok := IsGatewayError(nil)
	if ok {
		t.Error("IsGatewayError(nil) = true, want false")
	}
	if got != nil {
		t.Errorf("IsGatewayError(nil) = %v, want nil", got)
	}
}

func TestGetCode_GatewayError(t *testing.T) {
	err := New(ErrCodeDynamoDBAccessDenied, "access denied", "add permission", nil)

	if got := GetCode(err); got != ErrCodeDynamoDBAccessDenied {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeDynamoDBAccessDenied)
	}
}

func TestGetCode_RegularError(t *testing.T) {
	err := errors.New("regular error")

	if got := GetCode(err); got != "" {
		t.Errorf("GetCode() = %q, want empty string", got)
	}
}

func TestGetCode_NilError(t *testing.T) {
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q, want empty string", got)
	}
}

// Test all error code constants are defined
func TestErrorCodeConstants(t *testing.T) {
	if ErrCodeDynamoDBAccessDenied != "DYNAMODB_ACCESS_DENIED" {
		t.Errorf("ErrCodeDynamoDBAccessDenied = %q", ErrCodeDynamoDBAccessDenied)
	}
	if ErrCodeDynamoDBTableNotFound != "DYNAMODB_TABLE_NOT_FOUND" {
		t.Errorf("ErrCodeDynamoDBTableNotFound = %q", ErrCodeDynamoDBTableNotFound)
	}
	if ErrCodeDynamoDBThrottled != "DYNAMODB_THROTTLED" {
		t.Errorf("ErrCodeDynamoDBThrottled = %q", ErrCodeDynamoDBThrottled)
	}
	if ErrCodeDynamoDBConditionFailed != "DYNAMODB_CONDITION_FAILED" {
		t.Errorf("ErrCodeDynamoDBConditionFailed = %q", ErrCodeDynamoDBConditionFailed)
	}
	if ErrCodeIAMSimulateAccessDenied != "IAM_SIMULATE_ACCESS_DENIED" {
		t.Errorf("ErrCodeIAMSimulateAccessDenied = %q", ErrCodeIAMSimulateAccessDenied)
	}
}
