package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// DefaultLocksTable is used when no table name is configured.
const DefaultLocksTable = "processing_locks"

// API is the subset of the DynamoDB client the lock store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// lockItem is the stored document. Times are unix milliseconds; ttl is unix seconds
// so the table's TTL setting can purge abandoned locks.
type lockItem struct {
	ProductID     string `dynamodbav:"product_id"`
	AcquiredAt    int64  `dynamodbav:"acquired_at"`
	ExpiresAt     int64  `dynamodbav:"expires_at"`
	LastHeartbeat int64  `dynamodbav:"last_heartbeat"`
	AcquiredBy    string `dynamodbav:"acquired_by"`
	TTL           int64  `dynamodbav:"ttl"`
}

// LockStore implements secondary.LockStore on a DynamoDB table.
//
// Table requirements:
//   - PK: product_id (string)
//   - optional TTL attribute: ttl
type LockStore struct {
	ddb       API
	tableName string
}

// NewLockStore creates a DynamoDB lock store.
func NewLockStore(ddb API, tableName string) *LockStore {
	if tableName == "" {
		tableName = DefaultLocksTable
	}
	return &LockStore{ddb: ddb, tableName: tableName}
}

func (s *LockStore) key(productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: productID},
	}
}

// Get returns the lock for productID, or nil when none is stored.
func (s *LockStore) Get(ctx context.Context, productID string) (*lock.Lock, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(productID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it lockItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to decode lock: %w", err)
	}
	l := fromLockItem(it)
	return &l, nil
}

// Acquire writes l only if no lock exists or the stored one expired at or before now.
func (s *LockStore) Acquire(ctx context.Context, l lock.Lock, now time.Time) (bool, error) {
	av, err := attributevalue.MarshalMap(toLockItem(l))
	if err != nil {
		return false, fmt.Errorf("failed to encode lock: %w", err)
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#pk) OR #expires_at <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#pk":         "product_id",
			"#expires_at": "expires_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return true, nil
}

// Extend overwrites the expiry and heartbeat when the lock is still held by l.AcquiredBy.
func (s *LockStore) Extend(ctx context.Context, l lock.Lock) (bool, error) {
	it := toLockItem(l)
	_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(l.ProductID),
		ConditionExpression: aws.String("attribute_exists(#pk) AND #acquired_by = :holder"),
		UpdateExpression:    aws.String("SET #expires_at = :expires_at, #last_heartbeat = :heartbeat, #ttl = :ttl"),
		ExpressionAttributeNames: map[string]string{
			"#pk":             "product_id",
			"#acquired_by":    "acquired_by",
			"#expires_at":     "expires_at",
			"#last_heartbeat": "last_heartbeat",
			"#ttl":            "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":holder":     &types.AttributeValueMemberS{Value: l.AcquiredBy},
			":expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(it.ExpiresAt, 10)},
			":heartbeat":  &types.AttributeValueMemberN{Value: strconv.FormatInt(it.LastHeartbeat, 10)},
			":ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(it.TTL, 10)},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return false, nil
		}
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return true, nil
}

// Release deletes the lock document only while holder owns it.
func (s *LockStore) Release(ctx context.Context, productID, holder string) (bool, error) {
	_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(productID),
		ConditionExpression: aws.String("#acquired_by = :holder"),
		ExpressionAttributeNames: map[string]string{
			"#acquired_by": "acquired_by",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":holder": &types.AttributeValueMemberS{Value: holder},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return false, nil
		}
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	return true, nil
}

func toLockItem(l lock.Lock) lockItem {
	return lockItem{
		ProductID:     l.ProductID,
		AcquiredAt:    l.AcquiredAt.UnixMilli(),
		ExpiresAt:     l.ExpiresAt.UnixMilli(),
		LastHeartbeat: l.LastHeartbeat.UnixMilli(),
		AcquiredBy:    l.AcquiredBy,
		TTL:           l.ExpiresAt.Add(time.Hour).Unix(),
	}
}

func fromLockItem(it lockItem) lock.Lock {
	return lock.Lock{
		ProductID:     it.ProductID,
		AcquiredAt:    time.UnixMilli(it.AcquiredAt).UTC(),
		ExpiresAt:     time.UnixMilli(it.ExpiresAt).UTC(),
		LastHeartbeat: time.UnixMilli(it.LastHeartbeat).UTC(),
		AcquiredBy:    it.AcquiredBy,
	}
}

var _ secondary.LockStore = (*LockStore)(nil)
