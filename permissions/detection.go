package permissions

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DetectionResult contains the features detected in the current environment.
type DetectionResult struct {
	// Features lists the detected features.
	Features []Feature
	// FeatureDetails provides the reason for detection (e.g., "table exists").
	FeatureDetails map[Feature]string
	// Errors contains non-fatal detection errors.
	Errors []DetectionError
}

// DetectionError represents a non-fatal error during detection.
type DetectionError struct {
	Feature Feature
	Message string
}

// dynamoDetectorAPI defines the DynamoDB operations used by Detector.
// This interface enables testing with mock implementations.
type dynamoDetectorAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DetectorInterface defines the interface for feature detection.
// This enables testing with mock detectors in the CLI.
type DetectorInterface interface {
	Detect(ctx context.Context) (*DetectionResult, error)
}

// Detector checks AWS resources to determine which gateway subsystems are already
// provisioned, given a deployment's table name prefix (see dynamodbstore.TableNames).
type Detector struct {
	dynamoClient dynamoDetectorAPI
	tablePrefix  string
}

// NewDetector creates a Detector using the provided AWS configuration and table prefix.
func NewDetector(cfg aws.Config, tablePrefix string) *Detector {
	return &Detector{
		dynamoClient: dynamodb.NewFromConfig(cfg),
		tablePrefix:  tablePrefix,
	}
}

// newDetectorWithClient creates a Detector with a custom client (for testing).
func newDetectorWithClient(dynamoClient dynamoDetectorAPI, tablePrefix string) *Detector {
	return &Detector{
		dynamoClient: dynamoClient,
		tablePrefix:  tablePrefix,
	}
}

// detectionTables pairs each feature with the table suffix infrastructure.TableSchema uses
// for it (see infrastructure/schema.go's seven schema constructors).
var detectionTables = []struct {
	feature Feature
	suffix  string
}{
	{FeatureAgentCRUD, "-agents"},
	{FeatureTokenCRUD, "-tokens"},
	{FeaturePolicyCRUD, "-policies"},
	{FeatureQuotaIncrement, "-quotas"},
	{FeatureCredentialCRUD, "-credentials"},
	{FeatureAuditAppend, "-audit"},
}

// Detect probes DynamoDB to determine which gateway tables already exist for this
// deployment's table prefix. It returns all detected features, even if some checks fail.
// Errors are collected but don't stop detection of other features. credential_unwrap and
// metrics_export are not detectable from table existence and are never reported here;
// infra_provision is a deployer capability, not a runtime one, and is likewise never reported.
func (d *Detector) Detect(ctx context.Context) (*DetectionResult, error) {
	result := &DetectionResult{
		Features:       []Feature{},
		FeatureDetails: make(map[Feature]string),
		Errors:         []DetectionError{},
	}

	for _, dt := range detectionTables {
		tableName := d.tablePrefix + dt.suffix
		exists, err := d.checkDynamoTableExists(ctx, tableName)
		if err != nil {
			result.Errors = append(result.Errors, DetectionError{
				Feature: dt.feature,
				Message: err.Error(),
			})
			continue
		}
		if exists {
			result.Features = append(result.Features, dt.feature)
			result.FeatureDetails[dt.feature] = "DynamoDB table " + tableName + " exists"
		}
	}

	return result, nil
}

// checkDynamoTableExists checks if a DynamoDB table exists by name.
func (d *Detector) checkDynamoTableExists(ctx context.Context, tableName string) (bool, error) {
	_, err := d.dynamoClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var notFoundErr *ddbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return false, nil
		}
		if isResourceNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// isResourceNotFoundError checks if the error indicates a resource was not found.
// This handles cases where the specific error type isn't available.
func isResourceNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "ResourceNotFoundException") ||
		strings.Contains(errMsg, "not found") ||
		strings.Contains(errMsg, "does not exist")
}
