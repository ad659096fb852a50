package dynamodbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	gatewayerrors "github.com/byteness/toolgateway/errors"
	"github.com/byteness/toolgateway/store"
)

// GSIAuditByInstance indexes audit entries by the gateway instance that wrote them. ListAudit
// itself still scans (see below); this index backs ListAuditByInstance, the narrower query an
// operator reaches for once they already know which replica to investigate.
const GSIAuditByInstance = "gsi-instance"

type auditItem struct {
	ID             string `dynamodbav:"id"`
	CorrelationID  string `dynamodbav:"correlation_id"`
	AgentID        string `dynamodbav:"agent_id"`
	Tool           string `dynamodbav:"tool"`
	Action         string `dynamodbav:"action"`
	StatusCode     int    `dynamodbav:"status_code"`
	Success        bool   `dynamodbav:"success"`
	DurationMS     int64  `dynamodbav:"duration_ms"`
	ErrorKind      string `dynamodbav:"error_kind"`
	PolicyDecision string `dynamodbav:"policy_decision"`
	InstanceID     string `dynamodbav:"instance_id"`
	Timestamp      string `dynamodbav:"timestamp"`
}

func auditToItem(a store.AuditRecord) auditItem {
	return auditItem{
		ID:             uuid.NewString(),
		CorrelationID:  a.CorrelationID,
		AgentID:        a.AgentID,
		Tool:           a.Tool,
		Action:         a.Action,
		StatusCode:     a.StatusCode,
		Success:        a.Success,
		DurationMS:     a.DurationMS,
		ErrorKind:      a.ErrorKind,
		PolicyDecision: a.PolicyDecision,
		InstanceID:     a.InstanceID,
		Timestamp:      a.Timestamp.Format(time.RFC3339Nano),
	}
}

func itemToAudit(item auditItem) (store.AuditRecord, error) {
	ts, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err != nil {
		return store.AuditRecord{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return store.AuditRecord{
		CorrelationID:  item.CorrelationID,
		AgentID:        item.AgentID,
		Tool:           item.Tool,
		Action:         item.Action,
		StatusCode:     item.StatusCode,
		Success:        item.Success,
		DurationMS:     item.DurationMS,
		ErrorKind:      item.ErrorKind,
		PolicyDecision: item.PolicyDecision,
		InstanceID:     item.InstanceID,
		Timestamp:      ts,
	}, nil
}

// AppendAudit writes one write-once item per call; a random id keyed off uuid.NewString
// guarantees no collision across concurrent replicas without a conditional expression.
func (s *DynamoDBStore) AppendAudit(ctx context.Context, entry store.AuditRecord) error {
	av, err := attributevalue.MarshalMap(auditToItem(entry))
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Audit),
		Item:      av,
	}); err != nil {
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Audit, "PutItem")
	}
	return nil
}

// ListAudit scans the audit table and returns the most recent limit entries. This mirrors
// ServerSession.ListByTimeRange's acknowledged tradeoff: audit listing is an operator/
// investigation path, not hot request traffic, so a scan is acceptable.
func (s *DynamoDBStore) ListAudit(ctx context.Context, limit int) ([]store.AuditRecord, error) {
	var all []store.AuditRecord
	var lastKey map[string]types.AttributeValue
	for {
		output, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tables.Audit),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, gatewayerrors.WrapDynamoDBError(err, s.tables.Audit, "Scan")
		}
		for _, raw := range output.Items {
			var item auditItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			rec, err := itemToAudit(item)
			if err != nil {
				continue
			}
			all = append(all, rec)
		}
		lastKey = output.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	for i := 0; i < len(all)-1; i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].Timestamp.After(all[i].Timestamp) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	return all[:limit], nil
}

// ListAuditByInstance queries GSIAuditByInstance for the entries a single gateway replica
// wrote, most recent first. It is not part of the store.AuditStore interface — callers that
// already know which instance they're investigating can type-assert to reach it instead of
// paying for ListAudit's full table scan.
func (s *DynamoDBStore) ListAuditByInstance(ctx context.Context, instanceID string, limit int) ([]store.AuditRecord, error) {
	output, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Audit),
		IndexName:              aws.String(GSIAuditByInstance),
		KeyConditionExpression: aws.String("instance_id = :instance_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":instance_id": stringAttr(instanceID),
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, gatewayerrors.WrapDynamoDBError(err, s.tables.Audit, "Query:"+GSIAuditByInstance)
	}

	recs := make([]store.AuditRecord, 0, len(output.Items))
	for _, raw := range output.Items {
		var item auditItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		rec, err := itemToAudit(item)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}

	// RFC3339Nano trims trailing fractional-second zeros, so the GSI's sort-key ordering
	// isn't always true chronological order; re-sort on the parsed time.Time to be sure.
	for i := 0; i < len(recs)-1; i++ {
		for j := i + 1; j < len(recs); j++ {
			if recs[j].Timestamp.After(recs[i].Timestamp) {
				recs[i], recs[j] = recs[j], recs[i]
			}
		}
	}

	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs, nil
}
