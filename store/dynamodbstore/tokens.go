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

// GSITokensByAgent indexes the tokens table by agent_id for ListTokensByAgent.
const GSITokensByAgent = "gsi-agent-id"

type tokenItem struct {
	ID               string `dynamodbav:"id"`
	AgentID          string `dynamodbav:"agent_id"`
	OpaqueToken      string `dynamodbav:"opaque_token"`
	ExpiresAt        string `dynamodbav:"expires_at"`
	Revoked          bool   `dynamodbav:"revoked"`
	RevokedAt        string `dynamodbav:"revoked_at"`
	IssuedAt         string `dynamodbav:"issued_at"`
	RotationWarnedAt string `dynamodbav:"rotation_warned_at"`
	TTL              int64  `dynamodbav:"ttl"`
}

func formatTimeOrZero(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimeOrZero(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func tokenToItem(t store.TokenRecord) tokenItem {
	return tokenItem{
		ID:               t.ID,
		AgentID:          t.AgentID,
		OpaqueToken:      t.OpaqueToken,
		ExpiresAt:        formatTimeOrZero(t.ExpiresAt),
		Revoked:          t.Revoked,
		RevokedAt:        formatTimeOrZero(t.RevokedAt),
		IssuedAt:         formatTimeOrZero(t.IssuedAt),
		RotationWarnedAt: formatTimeOrZero(t.RotationWarnedAt),
		TTL:              t.ExpiresAt.Add(24 * time.Hour).Unix(),
	}
}

func itemToToken(item tokenItem) (store.TokenRecord, error) {
	expiresAt, err := parseTimeOrZero(item.ExpiresAt)
	if err != nil {
		return store.TokenRecord{}, fmt.Errorf("parse expires_at: %w", err)
	}
	revokedAt, err := parseTimeOrZero(item.RevokedAt)
	if err != nil {
		return store.TokenRecord{}, fmt.Errorf("parse revoked_at: %w", err)
	}
	issuedAt, err := parseTimeOrZero(item.IssuedAt)
	if err != nil {
		return store.TokenRecord{}, fmt.Errorf("parse issued_at: %w", err)
	}
	rotationWarnedAt, err := parseTimeOrZero(item.RotationWarnedAt)
	if err != nil {
		return store.TokenRecord{}, fmt.Errorf("parse rotation_warned_at: %w", err)
	}
	return store.TokenRecord{
		ID:               item.ID,
		AgentID:          item.AgentID,
		OpaqueToken:      item.OpaqueToken,
		ExpiresAt:        expiresAt,
		Revoked:          item.Revoked,
		RevokedAt:        revokedAt,
		IssuedAt:         issuedAt,
		RotationWarnedAt: rotationWarnedAt,
	}, nil
}

type tokenRegistryItem struct {
	TokenID     string `dynamodbav:"token_id"`
	AgentID     string `dynamodbav:"agent_id"`
	PayloadHash string `dynamodbav:"payload_hash"` // hex
	IssuedAt    string `dynamodbav:"issued_at"`
	ExpiresAt   string `dynamodbav:"expires_at"`
	IsRevoked   bool   `dynamodbav:"is_revoked"`
	RevokedAt   string `dynamodbav:"revoked_at"`
	TTL         int64  `dynamodbav:"ttl"`
}

func registryToItem(r store.TokenRegistryEntry) tokenRegistryItem {
	return tokenRegistryItem{
		TokenID:     r.TokenID,
		AgentID:     r.AgentID,
		PayloadHash: fmt.Sprintf("%x", r.PayloadHash),
		IssuedAt:    formatTimeOrZero(r.IssuedAt),
		ExpiresAt:   formatTimeOrZero(r.ExpiresAt),
		IsRevoked:   r.IsRevoked,
		RevokedAt:   formatTimeOrZero(r.RevokedAt),
		TTL:         r.ExpiresAt.Add(24 * time.Hour).Unix(),
	}
}

func itemToRegistry(item tokenRegistryItem) (store.TokenRegistryEntry, error) {
	issuedAt, err := parseTimeOrZero(item.IssuedAt)
	if err != nil {
		return store.TokenRegistryEntry{}, fmt.Errorf("parse issued_at: %w", err)
	}
	expiresAt, err := parseTimeOrZero(item.ExpiresAt)
	if err != nil {
		return store.TokenRegistryEntry{}, fmt.Errorf("parse expires_at: %w", err)
	}
	revokedAt, err := parseTimeOrZero(item.RevokedAt)
	if err != nil {
		return store.TokenRegistryEntry{}, fmt.Errorf("parse revoked_at: %w", err)
	}
	var hash [32]byte
	if _, err := fmt.Sscanf(item.PayloadHash, "%x", &hash); err != nil && item.PayloadHash != "" {
		return store.TokenRegistryEntry{}, fmt.Errorf("parse payload_hash: %w", err)
	}
	return store.TokenRegistryEntry{
		TokenID:     item.TokenID,
		AgentID:     item.AgentID,
		PayloadHash: hash,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
		IsRevoked:   item.IsRevoked,
		RevokedAt:   revokedAt,
	}, nil
}

// CreateToken writes the token record and its provenance registry entry. The two writes are
// sequential, not transactional: store.Store's consistency contract only requires atomicity
// for credential activation and quota increment, so a crash between the two PutItem calls
// leaves a token without a registry entry, which Validate treats as a provenance failure
// rather than a security hole.
func (s *DynamoDBStore) CreateToken(ctx context.Context, token store.TokenRecord, registry store.TokenRegistryEntry) error {
	tokenAV, err := attributevalue.MarshalMap(tokenToItem(token))
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Tokens),
		Item:      tokenAV,
	}); err != nil {
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Tokens, "PutItem")
	}

	regAV, err := attributevalue.MarshalMap(registryToItem(registry))
	if err != nil {
		return fmt.Errorf("marshal token registry: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.TokenRegistry),
		Item:      regAV,
	}); err != nil {
		return gatewayerrors.WrapDynamoDBError(err, s.tables.TokenRegistry, "PutItem")
	}
	return nil
}

func (s *DynamoDBStore) GetToken(ctx context.Context, id string) (store.TokenRecord, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Tokens),
		Key:       map[string]types.AttributeValue{"id": stringAttr(id)},
	})
	if err != nil {
		return store.TokenRecord{}, gatewayerrors.WrapDynamoDBError(err, s.tables.Tokens, "GetItem")
	}
	if output.Item == nil {
		return store.TokenRecord{}, store.ErrNotFound
	}
	var item tokenItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return store.TokenRecord{}, fmt.Errorf("unmarshal token: %w", err)
	}
	return itemToToken(item)
}

func (s *DynamoDBStore) GetTokenRegistry(ctx context.Context, id string) (store.TokenRegistryEntry, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.TokenRegistry),
		Key:       map[string]types.AttributeValue{"token_id": stringAttr(id)},
	})
	if err != nil {
		return store.TokenRegistryEntry{}, gatewayerrors.WrapDynamoDBError(err, s.tables.TokenRegistry, "GetItem")
	}
	if output.Item == nil {
		return store.TokenRegistryEntry{}, store.ErrNotFound
	}
	var item tokenRegistryItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return store.TokenRegistryEntry{}, fmt.Errorf("unmarshal token registry: %w", err)
	}
	return itemToRegistry(item)
}

func (s *DynamoDBStore) ListTokensByAgent(ctx context.Context, agentID string) ([]store.TokenRecord, error) {
	output, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Tokens),
		IndexName:              aws.String(GSITokensByAgent),
		KeyConditionExpression: aws.String("agent_id = :agent_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":agent_id": stringAttr(agentID),
		},
	})
	if err != nil {
		return nil, gatewayerrors.WrapDynamoDBError(err, s.tables.Tokens, "Query:"+GSITokensByAgent)
	}
	tokens := make([]store.TokenRecord, 0, len(output.Items))
	for _, raw := range output.Items {
		var item tokenItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal token: %w", err)
		}
		t, err := itemToToken(item)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (s *DynamoDBStore) RevokeToken(ctx context.Context, id string, revokedAt time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.tables.Tokens),
		Key:                      map[string]types.AttributeValue{"id": stringAttr(id)},
		UpdateExpression:         aws.String("SET revoked = :true, revoked_at = :at"),
		ConditionExpression:      aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":at":   stringAttr(revokedAt.Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrNotFound
		}
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Tokens, "UpdateItem")
	}

	// Best-effort: the registry entry mirrors revocation for provenance checks, but its
	// absence never blocks RevokeToken from succeeding (matches CreateToken's non-transactional
	// pairing of the two tables).
	_, _ = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.tables.TokenRegistry),
		Key:                      map[string]types.AttributeValue{"token_id": stringAttr(id)},
		UpdateExpression:         aws.String("SET is_revoked = :true, revoked_at = :at"),
		ConditionExpression:      aws.String("attribute_exists(token_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":at":   stringAttr(revokedAt.Format(time.RFC3339Nano)),
		},
	})
	return nil
}

func (s *DynamoDBStore) MarkRotationWarned(ctx context.Context, id string, at time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.tables.Tokens),
		Key:                      map[string]types.AttributeValue{"id": stringAttr(id)},
		UpdateExpression:         aws.String("SET rotation_warned_at = :at"),
		ConditionExpression:      aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": stringAttr(at.Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrNotFound
		}
		return gatewayerrors.WrapDynamoDBError(err, s.tables.Tokens, "UpdateItem")
	}
	return nil
}
