package dynamodbstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	gatewayerrors "github.com/byteness/toolgateway/errors"
	"github.com/byteness/toolgateway/store"
)

// IncrementQuota mirrors ratelimit.DynamoDBRateLimiter.Allow's atomic-increment-then-check
// approach: an unconditional ADD against the counter column, read back with
// ReturnValues=ALL_NEW, rolled back with a second UpdateItem if the increment overshot
// the limit. DynamoDB has no "increment only if result <= limit" primitive, so admission is
// checked after the fact rather than as part of the conditional expression.
func (s *DynamoDBStore) IncrementQuota(ctx context.Context, policyID, quotaKey string, limit int, window time.Duration, now time.Time) (store.QuotaCounter, bool, error) {
	id := policyID + "|" + quotaKey

	existing, err := s.getQuotaItem(ctx, id)
	if err != nil {
		return store.QuotaCounter{}, false, err
	}

	resetAt := now.Add(window)
	before := store.QuotaCounter{ID: id, PolicyID: policyID, QuotaKey: quotaKey, ResetAt: resetAt}
	needsReset := true
	if existing != nil {
		resetAtExisting, perr := time.Parse(time.RFC3339Nano, existing.ResetAt)
		if perr == nil && now.Before(resetAtExisting) {
			needsReset = false
			resetAt = resetAtExisting
			before = store.QuotaCounter{ID: id, PolicyID: policyID, QuotaKey: quotaKey, Current: existing.Current, ResetAt: resetAtExisting}
		}
	}

	if needsReset {
		// Either the counter doesn't exist yet or its window has expired: set it to 1
		// unconditionally, establishing the new window.
		_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(s.tables.Quotas),
			Key:              map[string]types.AttributeValue{"id": stringAttr(id)},
			UpdateExpression: aws.String("SET policy_id = :policy_id, quota_key = :quota_key, current = :one, reset_at = :reset_at"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":policy_id": stringAttr(policyID),
				":quota_key": stringAttr(quotaKey),
				":one":       &types.AttributeValueMemberN{Value: "1"},
				":reset_at":  stringAttr(resetAt.Format(time.RFC3339Nano)),
			},
			ReturnValues: types.ReturnValueNone,
		})
		if err != nil {
			return before, false, gatewayerrors.WrapDynamoDBError(err, s.tables.Quotas, "UpdateItem:reset")
		}
		if 1 > limit {
			return before, false, nil
		}
		return before, true, nil
	}

	output, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tables.Quotas),
		Key:              map[string]types.AttributeValue{"id": stringAttr(id)},
		UpdateExpression: aws.String("ADD current :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return before, false, gatewayerrors.WrapDynamoDBError(err, s.tables.Quotas, "UpdateItem:add")
	}

	current := parseQuotaCount(output.Attributes["current"])
	if current > limit {
		// Overshot: roll back the increment so a denied call never consumes quota.
		_, rollbackErr := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(s.tables.Quotas),
			Key:              map[string]types.AttributeValue{"id": stringAttr(id)},
			UpdateExpression: aws.String("ADD current :minus_one"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":minus_one": &types.AttributeValueMemberN{Value: "-1"},
			},
		})
		if rollbackErr != nil {
			return before, false, gatewayerrors.WrapDynamoDBError(rollbackErr, s.tables.Quotas, "UpdateItem:rollback")
		}
		return before, false, nil
	}
	return before, true, nil
}

type quotaItemRaw struct {
	Current int
	ResetAt string
}

func (s *DynamoDBStore) getQuotaItem(ctx context.Context, id string) (*quotaItemRaw, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Quotas),
		Key:       map[string]types.AttributeValue{"id": stringAttr(id)},
	})
	if err != nil {
		return nil, gatewayerrors.WrapDynamoDBError(err, s.tables.Quotas, "GetItem")
	}
	if output.Item == nil {
		return nil, nil
	}
	currentAttr, ok := output.Item["current"].(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("quota item %q missing numeric current", id)
	}
	current, err := strconv.Atoi(currentAttr.Value)
	if err != nil {
		return nil, fmt.Errorf("parse current: %w", err)
	}
	resetAttr, ok := output.Item["reset_at"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("quota item %q missing reset_at", id)
	}
	return &quotaItemRaw{Current: current, ResetAt: resetAttr.Value}, nil
}

func parseQuotaCount(attr types.AttributeValue) int {
	if attr == nil {
		return 0
	}
	n, ok := attr.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	count, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0
	}
	return count
}

func (s *DynamoDBStore) GetQuota(ctx context.Context, policyID, quotaKey string) (store.QuotaCounter, error) {
	id := policyID + "|" + quotaKey
	item, err := s.getQuotaItem(ctx, id)
	if err != nil {
		return store.QuotaCounter{}, err
	}
	if item == nil {
		return store.QuotaCounter{}, store.ErrNotFound
	}
	resetAt, err := time.Parse(time.RFC3339Nano, item.ResetAt)
	if err != nil {
		return store.QuotaCounter{}, fmt.Errorf("parse reset_at: %w", err)
	}
	return store.QuotaCounter{ID: id, PolicyID: policyID, QuotaKey: quotaKey, Current: item.Current, ResetAt: resetAt}, nil
}
