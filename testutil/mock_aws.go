package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ============================================================================
// MockDynamoDBClient - DynamoDB operations (store/dynamodbstore, permissions.Detector)
// ============================================================================

// MockDynamoDBClient implements DynamoDB client operations for testing.
// Supports PutItem, GetItem, DeleteItem, Query, Scan, UpdateItem, and DescribeTable.
type MockDynamoDBClient struct {
	mu sync.Mutex

	// Configurable behavior functions
	PutItemFunc      func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItemFunc      func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItemFunc   func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	QueryFunc        func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	ScanFunc         func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItemFunc   func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DescribeTableFunc func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)

	// Call tracking
	PutItemCalls      []*dynamodb.PutItemInput
	GetItemCalls      []*dynamodb.GetItemInput
	DeleteItemCalls   []*dynamodb.DeleteItemInput
	QueryCalls        []*dynamodb.QueryInput
	ScanCalls         []*dynamodb.ScanInput
	UpdateItemCalls   []*dynamodb.UpdateItemInput
	DescribeTableCalls []*dynamodb.DescribeTableInput
}

// PutItem implements DynamoDB PutItem operation.
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	m.PutItemCalls = append(m.PutItemCalls, params)
	m.mu.Unlock()

	if m.PutItemFunc != nil {
		return m.PutItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem implements DynamoDB GetItem operation.
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	m.GetItemCalls = append(m.GetItemCalls, params)
	m.mu.Unlock()

	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

// DeleteItem implements DynamoDB DeleteItem operation.
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	m.DeleteItemCalls = append(m.DeleteItemCalls, params)
	m.mu.Unlock()

	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query implements DynamoDB Query operation.
func (m *MockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	m.QueryCalls = append(m.QueryCalls, params)
	m.mu.Unlock()

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

// Scan implements DynamoDB Scan operation.
func (m *MockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	m.ScanCalls = append(m.ScanCalls, params)
	m.mu.Unlock()

	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, params, optFns...)
	}
	return &dynamodb.ScanOutput{}, nil
}

// UpdateItem implements DynamoDB UpdateItem operation.
func (m *MockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	m.UpdateItemCalls = append(m.UpdateItemCalls, params)
	m.mu.Unlock()

	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

// DescribeTable implements DynamoDB DescribeTable operation, used by permissions.Detector
// to infer which gateway tables already exist for a deployment.
func (m *MockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.mu.Lock()
	m.DescribeTableCalls = append(m.DescribeTableCalls, params)
	m.mu.Unlock()

	if m.DescribeTableFunc != nil {
		return m.DescribeTableFunc(ctx, params, optFns...)
	}
	return nil, errors.New("DescribeTable not implemented")
}

// Reset clears all call tracking data.
func (m *MockDynamoDBClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutItemCalls = nil
	m.GetItemCalls = nil
	m.DeleteItemCalls = nil
	m.QueryCalls = nil
	m.ScanCalls = nil
	m.UpdateItemCalls = nil
	m.DescribeTableCalls = nil
}

// ============================================================================
// MockKMSClient - KMS operations (vault.KMSKeyProvider)
// ============================================================================

// MockKMSClient implements KMS client operations for testing.
// Supports Decrypt, used to unwrap a KEK ciphertext blob.
type MockKMSClient struct {
	mu sync.Mutex

	// Configurable behavior functions
	DecryptFunc func(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)

	// Call tracking
	DecryptCalls []*kms.DecryptInput
}

// Decrypt implements KMS Decrypt operation.
func (m *MockKMSClient) Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	m.mu.Lock()
	m.DecryptCalls = append(m.DecryptCalls, params)
	m.mu.Unlock()

	if m.DecryptFunc != nil {
		return m.DecryptFunc(ctx, params, optFns...)
	}
	return nil, errors.New("Decrypt not implemented")
}

// Reset clears all call tracking data.
func (m *MockKMSClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecryptCalls = nil
}

// ============================================================================
// MockSTSClient - STS operations (permissions.Checker caller-identity cache)
// ============================================================================

// MockSTSClient implements STS client operations for testing.
// Supports GetCallerIdentity.
type MockSTSClient struct {
	mu sync.Mutex

	// Configurable behavior functions
	GetCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)

	// Call tracking
	GetCallerIdentityCalls []*sts.GetCallerIdentityInput
}

// GetCallerIdentity implements STS GetCallerIdentity operation.
func (m *MockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	m.mu.Lock()
	m.GetCallerIdentityCalls = append(m.GetCallerIdentityCalls, params)
	m.mu.Unlock()

	if m.GetCallerIdentityFunc != nil {
		return m.GetCallerIdentityFunc(ctx, params, optFns...)
	}
	return &sts.GetCallerIdentityOutput{
		Account: Ptr("123456789012"),
		Arn:     Ptr("arn:aws:sts::123456789012:assumed-role/GatewayRole/session"),
		UserId:  Ptr("AIDAMOCKUSERID"),
	}, nil
}

// Reset clears all call tracking data.
func (m *MockSTSClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCallerIdentityCalls = nil
}

// ============================================================================
// MockIAMClient - IAM operations (permissions.Checker)
// ============================================================================

// MockIAMClient implements IAM client operations for testing.
// Supports SimulatePrincipalPolicy.
type MockIAMClient struct {
	mu sync.Mutex

	// Configurable behavior functions
	SimulatePrincipalPolicyFunc func(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)

	// Call tracking
	SimulatePrincipalPolicyCalls []*iam.SimulatePrincipalPolicyInput
}

// SimulatePrincipalPolicy implements IAM SimulatePrincipalPolicy operation.
func (m *MockIAMClient) SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	m.mu.Lock()
	m.SimulatePrincipalPolicyCalls = append(m.SimulatePrincipalPolicyCalls, params)
	m.mu.Unlock()

	if m.SimulatePrincipalPolicyFunc != nil {
		return m.SimulatePrincipalPolicyFunc(ctx, params, optFns...)
	}
	return &iam.SimulatePrincipalPolicyOutput{}, nil
}

// Reset clears all call tracking data.
func (m *MockIAMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SimulatePrincipalPolicyCalls = nil
}
