package dynamodbstore

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/byteness/toolgateway/store"
)

func TestDynamoDBStore_ActivateCredential_DeactivatesOthersThenActivatesTarget(t *testing.T) {
	now := time.Now().UTC()
	target := store.ToolCredential{ID: "cred-2", Tool: "serpapi", Version: 2}
	previous := store.ToolCredential{ID: "cred-1", Tool: "serpapi", Version: 1, IsActive: true}

	targetItem, _ := attributevalue.MarshalMap(credentialToItem(target))
	previousItem, _ := attributevalue.MarshalMap(credentialToItem(previous))

	var deactivated []string
	var activated string
	mock := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: targetItem}, nil
		},
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{targetItem, previousItem}}, nil
		},
		updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			id := params.Key["id"].(*types.AttributeValueMemberS).Value
			if *params.UpdateExpression == "SET is_active = :false, deactivated_at = :at" {
				deactivated = append(deactivated, id)
			} else {
				activated = id
			}
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	s := newWithClient(mock, testTables)

	if err := s.ActivateCredential(context.Background(), target.ID, target.Tool, now); err != nil {
		t.Fatalf("ActivateCredential() error = %v", err)
	}
	if len(deactivated) != 1 || deactivated[0] != previous.ID {
		t.Errorf("deactivated = %v, want [%q]", deactivated, previous.ID)
	}
	if activated != target.ID {
		t.Errorf("activated = %q, want %q", activated, target.ID)
	}
}

func TestDynamoDBStore_ActivateCredential_WrongTool(t *testing.T) {
	target := store.ToolCredential{ID: "cred-2", Tool: "openai"}
	targetItem, _ := attributevalue.MarshalMap(credentialToItem(target))
	mock := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: targetItem}, nil
		},
	}
	s := newWithClient(mock, testTables)

	err := s.ActivateCredential(context.Background(), target.ID, "serpapi", time.Now())
	if err != store.ErrNotFound {
		t.Fatalf("ActivateCredential() error = %v, want store.ErrNotFound", err)
	}
}

func TestDynamoDBStore_GetActiveCredential_NotFound(t *testing.T) {
	mock := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{}}, nil
		},
	}
	s := newWithClient(mock, testTables)

	_, err := s.GetActiveCredential(context.Background(), "serpapi")
	if err != store.ErrNotFound {
		t.Fatalf("GetActiveCredential() error = %v, want store.ErrNotFound", err)
	}
}
