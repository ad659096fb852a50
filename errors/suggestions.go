package errors

import (
	"fmt"
	"strings"
)

// Suggestions contains default fix suggestions for each error code.
var Suggestions = map[string]string{
	ErrCodeDynamoDBAccessDenied: "Ensure your IAM policy includes DynamoDB permissions. " +
		"Run: gatewayctl permissions check",
	ErrCodeDynamoDBTableNotFound: "The DynamoDB table does not exist. " +
		"Create it with: gatewayctl infra provision",
	ErrCodeDynamoDBThrottled:       "DynamoDB throughput exceeded. Wait a moment and retry, or increase table capacity.",
	ErrCodeDynamoDBConditionFailed: "The DynamoDB conditional check failed. The item may have been modified by another process.",
	ErrCodeIAMSimulateAccessDenied: "Permission checking requires iam:SimulatePrincipalPolicy. " +
		"This permission is optional - you can verify permissions manually instead.",
}

// GetSuggestion returns the default suggestion for an error code.
// Returns empty string if no suggestion is defined.
func GetSuggestion(code string) string {
	return Suggestions[code]
}

// WrapDynamoDBError examines a DynamoDB error and returns a GatewayError.
func WrapDynamoDBError(err error, table, operation string) GatewayError {
	if err == nil {
		return nil
	}

	var code string
	var message string
	var suggestion string

	errStr := strings.ToLower(err.Error())

	switch {
	case isResourceNotFound(errStr):
		code = ErrCodeDynamoDBTableNotFound
		message = fmt.Sprintf("DynamoDB table not found: %s", table)
		suggestion = Suggestions[ErrCodeDynamoDBTableNotFound]
	case isAccessDenied(errStr):
		code = ErrCodeDynamoDBAccessDenied
		message = fmt.Sprintf("Access denied to DynamoDB table: %s", table)
		suggestion = Suggestions[ErrCodeDynamoDBAccessDenied]
	case isThrottled(errStr) || isProvisionedThroughputExceeded(errStr):
		code = ErrCodeDynamoDBThrottled
		message = fmt.Sprintf("DynamoDB throughput exceeded for table: %s", table)
		suggestion = Suggestions[ErrCodeDynamoDBThrottled]
	case isConditionalCheckFailed(errStr):
		code = ErrCodeDynamoDBConditionFailed
		message = fmt.Sprintf("DynamoDB conditional check failed for table: %s", table)
		suggestion = Suggestions[ErrCodeDynamoDBConditionFailed]
	default:
		code = ErrCodeDynamoDBAccessDenied
		message = fmt.Sprintf("DynamoDB error for table %s during %s: %v", table, operation, err)
		suggestion = "Check your AWS credentials and DynamoDB permissions"
	}

	ge := New(code, message, suggestion, err)
	ge = WithContext(ge, "table", table)
	return WithContext(ge, "operation", operation)
}

// isAccessDenied checks if error contains access denied indicators.
func isAccessDenied(errStr string) bool {
	return strings.Contains(errStr, "accessdenied") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "not authorized") ||
		strings.Contains(errStr, "403")
}

// isResourceNotFound checks if error indicates resource not found.
func isResourceNotFound(errStr string) bool {
	return strings.Contains(errStr, "resourcenotfound") ||
		strings.Contains(errStr, "resource not found") ||
		strings.Contains(errStr, "table not found") ||
		strings.Contains(errStr, "cannot do operations on a non-existent table")
}

// isThrottled checks if error indicates throttling.
func isThrottled(errStr string) bool {
	return strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "rate exceeded") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "slowdown")
}

// isProvisionedThroughputExceeded checks if error indicates throughput exceeded.
func isProvisionedThroughputExceeded(errStr string) bool {
	return strings.Contains(errStr, "provisionedthroughputexceeded") ||
		strings.Contains(errStr, "throughput exceeded") ||
		strings.Contains(errStr, "capacity")
}

// isConditionalCheckFailed checks if error indicates conditional check failure.
func isConditionalCheckFailed(errStr string) bool {
	return strings.Contains(errStr, "conditionalcheckfailed") ||
		strings.Contains(errStr, "conditional check failed") ||
		strings.Contains(errStr, "condition expression")
}
