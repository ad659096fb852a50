package dynamodbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	gatewayerrors "github.com/byteness/toolgateway/errors"
	"github.com/byteness/toolgateway/store"
)

// GSIPoliciesByBinding indexes active policies by what they're bound to, so
// ListPoliciesForAgent doesn't need a table scan in a multi-replica deployment.
const GSIPoliciesByBinding = "gsi-binding"

type policyItem struct {
	ID        string `dynamodbav:"id"`
	AgentID   string `dynamodbav:"agent_id"`
	Role      string `dynamodbav:"role"`
	BindingID string `dynamodbav:"binding_id"` // agent_id if set, else "role:"+role; GSI partition key
	SpecJSON  []byte `dynamodbav:"spec_json"`
	SpecHash  string `dynamodbav:"spec_hash"` // hex
	Active    bool   `dynamodbav:"active"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func bindingID(b store.PolicyBinding) string {
	if b.AgentID != "" {
		return b.AgentID
	}
	return "role:" + b.Role
}

func policyToItem(p store.PolicyRecord) policyItem {
	return policyItem{
		ID:        p.ID,
		AgentID:   p.Binding.AgentID,
		Role:      p.Binding.Role,
		BindingID: bindingID(p.Binding),
		SpecJSON:  p.SpecJSON,
		SpecHash:  fmt.Sprintf("%x", p.SpecHash),
		Active:    p.Active,
		CreatedAt: formatTimeOrZero(p.CreatedAt),
		UpdatedAt: formatTimeOrZero(p.UpdatedAt),
	}
}

func itemToPolicy(item policyItem) (store.PolicyRecord, error) {
	createdAt, err := parseTimeOrZero(item.CreatedAt)
	if err != nil {
		return store.PolicyRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTimeOrZero(item.UpdatedAt)
	if err != nil {
		return store.PolicyRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	var hash [32]byte
	if item.SpecHash != "" {
		if _, err := fmt.Sscanf(item.SpecHash, "%x", &hash); err != nil {
			return store.PolicyRecord{}, fmt.Errorf("parse spec_hash: %w", err)
		}
	}
	return store.PolicyRecord{
		ID:        item.ID,
		Binding:   store.PolicyBinding{AgentID: item.AgentID, Role: item.Role},
		SpecJSON:  item.SpecJSON,
		SpecHash:  hash,
		Active:    item.Active,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *DynamoDBStore) CreatePolicy(ctx context.Context, policy store.PolicyRecord) error {
	av, err := attributevalue.MarshalMap(policyToItem(policy))
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Policies),
		Item:      av,
	}); err != nil {
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Policies, "PutItem")
	}
	return nil
}

func (s *DynamoDBStore) GetPolicy(ctx context.Context, id string) (store.PolicyRecord, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Policies),
		Key:       map[string]types.AttributeValue{"id": stringAttr(id)},
	})
	if err != nil {
		return store.PolicyRecord{}, gatewayerrors.WrapDynamoDBError(err, s.tables.Policies, "GetItem")
	}
	if output.Item == nil {
		return store.PolicyRecord{}, store.ErrNotFound
	}
	var item policyItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return store.PolicyRecord{}, fmt.Errorf("unmarshal policy: %w", err)
	}
	return itemToPolicy(item)
}

// ListPoliciesForAgent queries the binding GSI twice (once for agentID, once for the role
// binding) since DynamoDB can't OR across two different partition key values in one query.
func (s *DynamoDBStore) ListPoliciesForAgent(ctx context.Context, agentID, role string) ([]store.PolicyRecord, error) {
	var out []store.PolicyRecord
	keys := []string{agentID}
	if role != "" {
		keys = append(keys, "role:"+role)
	}
	for _, key := range keys {
		output, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tables.Policies),
			IndexName:              aws.String(GSIPoliciesByBinding),
			KeyConditionExpression: aws.String("binding_id = :binding_id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":binding_id": stringAttr(key),
			},
		})
		if err != nil {
			return nil, gatewayerrors.WrapDynamoDBError(err, s.tables.Policies, "Query:"+GSIPoliciesByBinding)
		}
		for _, raw := range output.Items {
			var item policyItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("unmarshal policy: %w", err)
			}
			if !item.Active {
				continue
			}
			p, err := itemToPolicy(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *DynamoDBStore) UpdatePolicySpec(ctx context.Context, id string, specJSON []byte, specHash [32]byte) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tables.Policies),
		Key:                 map[string]types.AttributeValue{"id": stringAttr(id)},
		ConditionExpression: aws.String("attribute_exists(id)"),
		UpdateExpression:    aws.String("SET spec_json = :spec_json, spec_hash = :spec_hash, updated_at = :updated_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":spec_json":  &types.AttributeValueMemberB{Value: specJSON},
			":spec_hash":  stringAttr(fmt.Sprintf("%x", specHash)),
			":updated_at": stringAttr(time.Now().UTC().Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrNotFound
		}
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Policies, "UpdateItem")
	}
	return nil
}

func (s *DynamoDBStore) SetPolicyActive(ctx context.Context, id string, active bool) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tables.Policies),
		Key:                 map[string]types.AttributeValue{"id": stringAttr(id)},
		ConditionExpression: aws.String("attribute_exists(id)"),
		UpdateExpression:    aws.String("SET active = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberBOOL{Value: active},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrNotFound
		}
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Policies, "UpdateItem")
	}
	return nil
}
