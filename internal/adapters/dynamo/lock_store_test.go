package dynamo

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/quoteflow/internal/core/lock"
)

// fakeDynamo models the two conditions the lock store issues against a single-key table.
type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(m map[string]types.AttributeValue) string {
	return m["product_id"].(*types.AttributeValueMemberS).Value
}

func numberOf(av types.AttributeValue) int64 {
	n, _ := strconv.ParseInt(av.(*types.AttributeValueMemberN).Value, 10, 64)
	return n
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	k := keyOf(in.Item)
	if cur, ok := f.items[k]; ok && in.ConditionExpression != nil {
		if numberOf(cur["expires_at"]) > numberOf(in.ExpressionAttributeValues[":now"]) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	cur, ok := f.items[k]
	holder := in.ExpressionAttributeValues[":holder"].(*types.AttributeValueMemberS).Value
	if !ok || cur["acquired_by"].(*types.AttributeValueMemberS).Value != holder {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
	}
	cur["expires_at"] = in.ExpressionAttributeValues[":expires_at"]
	cur["last_heartbeat"] = in.ExpressionAttributeValues[":heartbeat"]
	cur["ttl"] = in.ExpressionAttributeValues[":ttl"]
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	if in.ConditionExpression != nil {
		cur, ok := f.items[k]
		holder := in.ExpressionAttributeValues[":holder"].(*types.AttributeValueMemberS).Value
		if !ok || cur["acquired_by"].(*types.AttributeValueMemberS).Value != holder {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
		}
	}
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

var lockNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestLockStore_AcquireIsConditional(t *testing.T) {
	store := NewLockStore(newFakeDynamo(), "")
	ctx := context.Background()

	ok, err := store.Acquire(ctx, lock.New("P-1", "proc-a", lockNow, lock.DefaultTTL), lockNow)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v; want true", ok, err)
	}

	later := lockNow.Add(time.Minute)
	ok, err = store.Acquire(ctx, lock.New("P-1", "proc-b", later, lock.DefaultTTL), later)
	if err != nil || ok {
		t.Fatalf("contended Acquire = %v, %v; want false, nil", ok, err)
	}

	expired := lockNow.Add(lock.DefaultTTL)
	ok, err = store.Acquire(ctx, lock.New("P-1", "proc-b", expired, lock.DefaultTTL), expired)
	if err != nil || !ok {
		t.Fatalf("Acquire after expiry = %v, %v; want true", ok, err)
	}

	got, err := store.Get(ctx, "P-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.AcquiredBy != "proc-b" || !got.AcquiredAt.Equal(expired) {
		t.Errorf("got %+v, want proc-b acquired at %v", got, expired)
	}
}

func TestLockStore_AcquireSurfacesStoreErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.putErr = errors.New("throttled")
	store := NewLockStore(fake, "locks")

	ok, err := store.Acquire(context.Background(), lock.New("P-1", "proc-a", lockNow, 0), lockNow)
	if err == nil || ok {
		t.Errorf("Acquire = %v, %v; want false with error", ok, err)
	}
}

func TestLockStore_ExtendChecksHolder(t *testing.T) {
	store := NewLockStore(newFakeDynamo(), "")
	ctx := context.Background()

	l := lock.New("P-1", "proc-a", lockNow, lock.DefaultTTL)
	_, _ = store.Acquire(ctx, l, lockNow)

	beat := lock.Heartbeat(l, lockNow.Add(time.Minute), lock.DefaultTTL)
	ok, err := store.Extend(ctx, beat)
	if err != nil || !ok {
		t.Fatalf("Extend = %v, %v; want true", ok, err)
	}
	got, _ := store.Get(ctx, "P-1")
	if !got.ExpiresAt.Equal(beat.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, beat.ExpiresAt)
	}

	beat.AcquiredBy = "proc-b"
	if ok, err := store.Extend(ctx, beat); ok || err != nil {
		t.Errorf("foreign Extend = %v, %v; want false, nil", ok, err)
	}
}

func TestLockStore_GetAndRelease(t *testing.T) {
	store := NewLockStore(newFakeDynamo(), "")
	ctx := context.Background()

	if got, err := store.Get(ctx, "P-1"); got != nil || err != nil {
		t.Errorf("Get on empty table = %+v, %v; want nil, nil", got, err)
	}

	_, _ = store.Acquire(ctx, lock.New("P-1", "proc-a", lockNow, 0), lockNow)

	if ok, err := store.Release(ctx, "P-1", "proc-b"); ok || err != nil {
		t.Fatalf("foreign Release = %v, %v; want false, nil", ok, err)
	}
	if got, _ := store.Get(ctx, "P-1"); got == nil {
		t.Fatal("a foreign release removed the lock")
	}

	if ok, err := store.Release(ctx, "P-1", "proc-a"); !ok || err != nil {
		t.Fatalf("Release = %v, %v; want true, nil", ok, err)
	}
	if ok, err := store.Release(ctx, "P-1", "proc-a"); ok || err != nil {
		t.Errorf("second Release = %v, %v; want false, nil", ok, err)
	}
	if got, _ := store.Get(ctx, "P-1"); got != nil {
		t.Errorf("lock still present: %+v", got)
	}
}
