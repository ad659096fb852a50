package ratelimit

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI defines the DynamoDB operations needed for rate limiting.
// This interface enables testing with mock implementations.
type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBRateLimiter is the shared-store RateLimiter for multi-replica gateway
// deployments: replicas share no process memory, so the fixed-window counter that backs
// each agent's budget has to live in DynamoDB rather than in an in-process
// golang.org/x/time/rate.Limiter.
//
// Table schema (single-table design):
//   - PK: "RL#" + key (e.g. an agent ID)
//   - WindowStart: ISO8601 timestamp of the current window's start
//   - Count: number of requests admitted in the current window
//   - TTL: Unix timestamp for DynamoDB TTL (window end + a cleanup buffer)
type DynamoDBRateLimiter struct {
	client    DynamoDBAPI
	tableName string
	config    Config
}

// NewDynamoDBRateLimiter creates a DynamoDB-backed rate limiter. tableName must reference a
// table with a String partition key named "PK".
func NewDynamoDBRateLimiter(client DynamoDBAPI, tableName string, cfg Config) (*DynamoDBRateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("ratelimit: DynamoDB client cannot be nil")
	}
	if tableName == "" {
		return nil, errors.New("ratelimit: tableName cannot be empty")
	}
	return &DynamoDBRateLimiter{client: client, tableName: tableName, config: cfg}, nil
}

// Allow admits or denies one request for key, incrementing its window counter atomically.
// On any DynamoDB error it fails open (allowed=true) so a limiter outage never becomes a
// gateway-wide outage; the error is still returned for callers that want to log it (the
// request pipeline's Service.Consume discards it deliberately).
func (r *DynamoDBRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	windowStart := now.Truncate(r.config.Window)

	count, err := r.incrementWindow(ctx, key, windowStart, false)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// The stored window is not ours (the window has rolled over): reset unconditionally and
			// count this request as the first in the new window.
			count, err = r.incrementWindow(ctx, key, windowStart, true)
		}
		if err != nil {
			log.Printf("ratelimit: DynamoDB error (failing open): %v", err)
			return true, 0, err
		}
	}

	if count > r.config.EffectiveBurstSize() {
		return false, windowStart.Add(r.config.Window).Sub(now), nil
	}
	return true, 0, nil
}

// incrementWindow applies the counter update for key's current window. When reset is false
// it's a conditional increment that only succeeds if no window has been recorded yet or the
// recorded window matches windowStart; when reset is true it unconditionally establishes
// windowStart as current with Count=1, used after a conditional increment has told us the
// window rolled over.
func (r *DynamoDBRateLimiter) incrementWindow(ctx context.Context, key string, windowStart time.Time, reset bool) (int, error) {
	windowStartStr := windowStart.Format(time.RFC3339)
	ttl := windowStart.Add(r.config.Window).Add(time.Hour).Unix()

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "RL#" + key},
		},
		ExpressionAttributeNames: map[string]string{
			"#count": "Count",
			"#ws":    "WindowStart",
			"#ttl":   "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ws":  &types.AttributeValueMemberS{Value: windowStartStr},
			":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	if reset {
		input.UpdateExpression = aws.String("SET #count = :one, #ws = :ws, #ttl = :ttl")
	} else {
		input.UpdateExpression = aws.String("SET #count = if_not_exists(#count, :zero) + :one, #ws = if_not_exists(#ws, :ws), #ttl = :ttl")
		input.ConditionExpression = aws.String("attribute_not_exists(#ws) OR #ws = :ws")
		input.ExpressionAttributeValues[":zero"] = &types.AttributeValueMemberN{Value: "0"}
	}

	output, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		return 0, err
	}
	return parseCount(output.Attributes["Count"]), nil
}

// parseCount extracts the count value from a DynamoDB attribute. Returns 0 if the
// attribute is nil or cannot be parsed.
func parseCount(attr types.AttributeValue) int {
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

var _ RateLimiter = (*DynamoDBRateLimiter)(nil)
