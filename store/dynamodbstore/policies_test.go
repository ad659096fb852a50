package dynamodbstore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/byteness/toolgateway/store"
)

func TestDynamoDBStore_ListPoliciesForAgent_QueriesBothBindings(t *testing.T) {
	agentPolicy := store.PolicyRecord{ID: "p1", Binding: store.PolicyBinding{AgentID: "agent-1"}, Active: true}
	rolePolicy := store.PolicyRecord{ID: "p2", Binding: store.PolicyBinding{Role: "researcher"}, Active: true}
	agentItem, _ := attributevalue.MarshalMap(policyToItem(agentPolicy))
	roleItem, _ := attributevalue.MarshalMap(policyToItem(rolePolicy))

	var keysQueried []string
	mock := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			key := params.ExpressionAttributeValues[":binding_id"].(*types.AttributeValueMemberS).Value
			keysQueried = append(keysQueried, key)
			if key == "agent-1" {
				return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{agentItem}}, nil
			}
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{roleItem}}, nil
		},
	}
	s := newWithClient(mock, testTables)

	policies, err := s.ListPoliciesForAgent(context.Background(), "agent-1", "researcher")
	if err != nil {
		t.Fatalf("ListPoliciesForAgent() error = %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("ListPoliciesForAgent() returned %d policies, want 2", len(policies))
	}
	if len(keysQueried) != 2 || keysQueried[0] != "agent-1" || keysQueried[1] != "role:researcher" {
		t.Errorf("keysQueried = %v, want [agent-1 role:researcher]", keysQueried)
	}
}

func TestDynamoDBStore_ListPoliciesForAgent_SkipsInactive(t *testing.T) {
	inactive := store.PolicyRecord{ID: "p1", Binding: store.PolicyBinding{AgentID: "agent-1"}, Active: false}
	inactiveItem, _ := attributevalue.MarshalMap(policyToItem(inactive))

	mock := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{inactiveItem}}, nil
		},
	}
	s := newWithClient(mock, testTables)

	policies, err := s.ListPoliciesForAgent(context.Background(), "agent-1", "")
	if err != nil {
		t.Fatalf("ListPoliciesForAgent() error = %v", err)
	}
	if len(policies) != 0 {
		t.Fatalf("ListPoliciesForAgent() returned %d policies, want 0", len(policies))
	}
}

func TestDynamoDBStore_SetPolicyActive_NotFound(t *testing.T) {
	mock := &mockDynamoDBClient{
		updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}
	s := newWithClient(mock, testTables)

	err := s.SetPolicyActive(context.Background(), "missing", true)
	if err != store.ErrNotFound {
		t.Fatalf("SetPolicyActive() error = %v, want store.ErrNotFound", err)
	}
}
