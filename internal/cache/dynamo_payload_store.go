package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// PayloadRecord is one cached upstream payload in DynamoDB. TTL doubles as the table's
// expiry attribute so stale rows are reaped by DynamoDB itself.
type PayloadRecord struct {
	CacheKey    string `dynamodbav:"cacheKey"`
	Payload     string `dynamodbav:"payload"`
	LastUpdated int64  `dynamodbav:"lastUpdated"`
	TTL         int64  `dynamodbav:"ttl"`
}

// Validate checks if a PayloadRecord's fields are valid
func (r *PayloadRecord) Validate() error {
	if r.CacheKey == "" {
		return fmt.Errorf("cache key is required")
	}
	if r.Payload == "" {
		return fmt.Errorf("payload is required")
	}
	if r.TTL <= r.LastUpdated {
		return fmt.Errorf("ttl %d must be after lastUpdated %d", r.TTL, r.LastUpdated)
	}
	return nil
}

// DynamoPayloadStore is a SecondLevel that keeps JSON-encoded values in a DynamoDB table.
type DynamoPayloadStore[V any] struct {
	client    DynamoDBClient
	tableName string
	prefix    string
	clock     clockwork.Clock
}

var _ SecondLevel[string] = (*DynamoPayloadStore[string])(nil)

func NewDynamoPayloadStore[V any](client DynamoDBClient, tableName, prefix string, clock clockwork.Clock) *DynamoPayloadStore[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DynamoPayloadStore[V]{
		client:    client,
		tableName: tableName,
		prefix:    prefix,
		clock:     clock,
	}
}

func (s *DynamoPayloadStore[V]) cacheKey(key string) string {
	return s.prefix + ":" + key
}

func (s *DynamoPayloadStore[V]) Get(ctx context.Context, key string) (V, time.Time, bool, error) {
	var zero V

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"cacheKey": &types.AttributeValueMemberS{Value: s.cacheKey(key)},
		},
	})
	if err != nil {
		return zero, time.Time{}, false, fmt.Errorf("getting payload from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return zero, time.Time{}, false, nil
	}

	var record PayloadRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return zero, time.Time{}, false, fmt.Errorf("unmarshaling payload record: %w", err)
	}

	if s.clock.Now().Unix() >= record.TTL {
		log.Debug().Str("cache_key", record.CacheKey).Msg("Cache expired")
		return zero, time.Time{}, false, nil
	}

	var value V
	if err := json.Unmarshal([]byte(record.Payload), &value); err != nil {
		return zero, time.Time{}, false, fmt.Errorf("decoding cached payload: %w", err)
	}
	return value, time.Unix(record.TTL, 0), true, nil
}

func (s *DynamoPayloadStore[V]) Put(ctx context.Context, key string, value V, expiresAt time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	record := PayloadRecord{
		CacheKey:    s.cacheKey(key),
		Payload:     string(payload),
		LastUpdated: s.clock.Now().Unix(),
		TTL:         expiresAt.Unix(),
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid payload record: %w", err)
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling payload record: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("putting payload in DynamoDB: %w", err)
	}

	log.Debug().Str("cache_key", record.CacheKey).Msg("Saved payload to cache")
	return nil
}
