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

// agentItem is the DynamoDB item structure for a store.Agent.
type agentItem struct {
	ID                string `dynamodbav:"id"`
	Name              string `dynamodbav:"name"`
	CreatedBy         string `dynamodbav:"created_by"`
	Role              string `dynamodbav:"role"`
	PublicKey         string `dynamodbav:"public_key"`
	Status            string `dynamodbav:"status"`
	CreatedAt         string `dynamodbav:"created_at"`
	DeviceFingerprint string `dynamodbav:"device_fingerprint"`
}

func agentToItem(a store.Agent) agentItem {
	return agentItem{
		ID:                a.ID,
		Name:              a.Name,
		CreatedBy:         a.CreatedBy,
		Role:              a.Role,
		PublicKey:         a.PublicKey,
		Status:            string(a.Status),
		CreatedAt:         a.CreatedAt.Format(time.RFC3339Nano),
		DeviceFingerprint: a.DeviceFingerprint,
	}
}

func itemToAgent(item agentItem) (store.Agent, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return store.Agent{}, fmt.Errorf("parse created_at: %w", err)
	}
	return store.Agent{
		ID:                item.ID,
		Name:              item.Name,
		CreatedBy:         item.CreatedBy,
		Role:              item.Role,
		PublicKey:         item.PublicKey,
		Status:            store.AgentStatus(item.Status),
		CreatedAt:         createdAt,
		DeviceFingerprint: item.DeviceFingerprint,
	}, nil
}

// CreateAgent stores a new agent. Overwrites silently if id already exists, matching
// MemoryStore.CreateAgent's upsert semantics (admin tooling is expected to check first).
func (s *DynamoDBStore) CreateAgent(ctx context.Context, agent store.Agent) error {
	av, err := attributevalue.MarshalMap(agentToItem(agent))
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Agents),
		Item:      av,
	})
	if err != nil {
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Agents, "PutItem")
	}
	return nil
}

func (s *DynamoDBStore) GetAgent(ctx context.Context, id string) (store.Agent, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Agents),
		Key:       map[string]types.AttributeValue{"id": stringAttr(id)},
	})
	if err != nil {
		return store.Agent{}, gatewayerrors.WrapDynamoDBError(err, s.tables.Agents, "GetItem")
	}
	if output.Item == nil {
		return store.Agent{}, store.ErrNotFound
	}
	var item agentItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return store.Agent{}, fmt.Errorf("unmarshal agent: %w", err)
	}
	return itemToAgent(item)
}

// ListAgents scans the agents table. There is no GSI on agents since admin listing is
// infrequent and not latency sensitive (mirrors the ServerSession time-range scan pattern).
func (s *DynamoDBStore) ListAgents(ctx context.Context) ([]store.Agent, error) {
	var agents []store.Agent
	var lastKey map[string]types.AttributeValue
	for {
		output, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tables.Agents),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, gatewayerrors.WrapDynamoDBError(err, s.tables.Agents, "Scan")
		}
		for _, raw := range output.Items {
			var item agentItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			a, err := itemToAgent(item)
			if err != nil {
				continue
			}
			agents = append(agents, a)
		}
		lastKey = output.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return agents, nil
}

func (s *DynamoDBStore) UpdateAgentStatus(ctx context.Context, id string, status store.AgentStatus) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.tables.Agents),
		Key:                      map[string]types.AttributeValue{"id": stringAttr(id)},
		UpdateExpression:         aws.String("SET #status = :status"),
		ConditionExpression:      aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": stringAttr(string(status)),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrNotFound
		}
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Agents, "UpdateItem")
	}
	return nil
}
