package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		code    string
		wantHas string
	}{
		{ErrCodeDynamoDBAccessDenied, "DynamoDB permissions"},
		{ErrCodeDynamoDBTableNotFound, "does not exist"},
		{ErrCodeDynamoDBThrottled, "Wait"},
		{ErrCodeIAMSimulateAccessDenied, "SimulatePrincipalPolicy"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := GetSuggestion(tt.code)
			if got == "" {
				t.Errorf("GetSuggestion(%q) = empty string", tt.code)
			}
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.wantHas)) {
				t.Errorf("GetSuggestion(%q) = %q, want to contain %q", tt.code, got, tt.wantHas)
			}
		})
	}
}

func TestGetSuggestion_UnknownCode(t *testing.T) {
	got := GetSuggestion("UNKNOWN_CODE")
	if got != "" {
		t.Errorf("GetSuggestion(UNKNOWN_CODE) = %q, want empty string", got)
	}
}

func TestWrapDynamoDBError_ResourceNotFound(t *testing.T) {
	err := errors.New("ResourceNotFoundException: Cannot do operations on a non-existent table")
	ge := WrapDynamoDBError(err, "gateway-tokens", "GetItem")

	if ge.Code() != ErrCodeDynamoDBTableNotFound {
		t.Errorf("Code() = %q, want %q", ge.Code(), ErrCodeDynamoDBTableNotFound)
	}
	if ge.Context()["table"] != "gateway-tokens" {
		t.Errorf("Context()[\"table\"] = %q, want %q", ge.Context()["table"], "gateway-tokens")
	}
	if ge.Context()["operation"] != "GetItem" {
		t.Errorf("Context()[\"operation\"] = %q, want %q", ge.Context()["operation"], "GetItem")
	}
}

func TestWrapDynamoDBError_AccessDenied(t *testing.T) {
	err := errors.New("AccessDeniedException: User is not authorized to perform dynamodb:GetItem")
	ge := WrapDynamoDBError(err, "gateway-policies", "GetItem")

	if ge.Code() != ErrCodeDynamoDBAccessDenied {
		t.Errorf("Code() = %q, want %q", ge.Code(), ErrCodeDynamoDBAccessDenied)
	}
}

func TestWrapDynamoDBError_Throttled(t *testing.T) {
	err := errors.New("ProvisionedThroughputExceededException: Throughput exceeded")
	ge := WrapDynamoDBError(err, "gateway-quotas", "UpdateItem")

	if ge.Code() != ErrCodeDynamoDBThrottled {
		t.Errorf("Code() = %q, want %q", ge.Code(), ErrCodeDynamoDBThrottled)
	}
}

func TestWrapDynamoDBError_ConditionalCheckFailed(t *testing.T) {
	err := errors.New("ConditionalCheckFailedException: The conditional request failed")
	ge := WrapDynamoDBError(err, "gateway-credentials", "UpdateItem")

	if ge.Code() != ErrCodeDynamoDBConditionFailed {
		t.Errorf("Code() = %q, want %q", ge.Code(), ErrCodeDynamoDBConditionFailed)
	}
}

func TestWrapDynamoDBError_NilError(t *testing.T) {
	ge := WrapDynamoDBError(nil, "table", "op")
	if ge != nil {
		t.Errorf("WrapDynamoDBError(nil, ...) = %v, want nil", ge)
	}
}

func TestWrapDynamoDBError_DefaultsToAccessDenied(t *testing.T) {
	err := errors.New("some unrecognized dynamodb error")
	ge := WrapDynamoDBError(err, "gateway-agents", "Scan")

	if ge.Code() != ErrCodeDynamoDBAccessDenied {
		t.Errorf("Code() = %q, want %q", ge.Code(), ErrCodeDynamoDBAccessDenied)
	}
}

// Test helper functions

func TestIsAccessDenied(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"AccessDeniedException: not authorized", true},
		{"access denied to resource", true},
		{"UnauthorizedOperation: operation not allowed", true},
		{"User is not authorized to perform", true},
		{"403 Forbidden", true},
		{"some other error", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isAccessDenied(strings.ToLower(tt.input))
			if got != tt.want {
				t.Errorf("isAccessDenied(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsResourceNotFound(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ResourceNotFoundException: table not found", true},
		{"resource not found", true},
		{"Cannot do operations on a non-existent table", true},
		{"some other error", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isResourceNotFound(strings.ToLower(tt.input))
			if got != tt.want {
				t.Errorf("isResourceNotFound(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsThrottled(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ThrottlingException: rate exceeded", true},
		{"Rate exceeded for operation", true},
		{"Too many requests", true},
		{"SlowDown: request throttled", true},
		{"some other error", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isThrottled(strings.ToLower(tt.input))
			if got != tt.want {
				t.Errorf("isThrottled(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsProvisionedThroughputExceeded(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ProvisionedThroughputExceededException", true},
		{"Throughput exceeded for table", true},
		{"Write capacity exceeded", true},
		{"some other error", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isProvisionedThroughputExceeded(strings.ToLower(tt.input))
			if got != tt.want {
				t.Errorf("isProvisionedThroughputExceeded(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsConditionalCheckFailed(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ConditionalCheckFailedException", true},
		{"Conditional check failed", true},
		{"Condition expression not satisfied", true},
		{"some other error", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isConditionalCheckFailed(strings.ToLower(tt.input))
			if got != tt.want {
				t.Errorf("isConditionalCheckFailed(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Test all error codes have suggestions defined
func TestAllErrorCodesHaveSuggestions(t *testing.T) {
	codes := []string{
		ErrCodeDynamoDBAccessDenied,
		ErrCodeDynamoDBTableNotFound,
		ErrCodeDynamoDBThrottled,
		ErrCodeDynamoDBConditionFailed,
		ErrCodeIAMSimulateAccessDenied,
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			suggestion := GetSuggestion(code)
			if suggestion == "" {
				t.Errorf("No suggestion defined for error code %q", code)
			}
		})
	}
}
