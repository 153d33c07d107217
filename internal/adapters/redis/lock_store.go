// Package redis contains a Redis implementation of the processing lock store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// DefaultKeyPrefix namespaces lock keys.
const DefaultKeyPrefix = "quoteflow:lock:"

// lockDoc is the JSON value stored under each key. Redis expires the key itself,
// so a key that exists is always a live lock.
type lockDoc struct {
	ProductID     string    `json:"productId"`
	AcquiredAt    time.Time `json:"acquiredAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	AcquiredBy    string    `json:"acquiredBy"`
}

// extendScript rewrites the document only when the stored holder matches.
var extendScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	return 0
end
local doc = cjson.decode(cur)
if doc.acquiredBy ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// releaseScript deletes the key only when the stored holder matches.
var releaseScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	return 0
end
local doc = cjson.decode(cur)
if doc.acquiredBy ~= ARGV[1] then
	return 0
end
return redis.call('DEL', KEYS[1])
`)

// LockStore implements secondary.LockStore with SET NX PX.
type LockStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewLockStore creates a Redis lock store.
func NewLockStore(rdb goredis.UniversalClient, prefix string) *LockStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &LockStore{rdb: rdb, prefix: prefix}
}

// NewClient connects to addr and verifies the connection with PING.
func NewClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *LockStore) key(productID string) string {
	return s.prefix + productID
}

// Get returns the lock for productID, or nil when none is stored.
func (s *LockStore) Get(ctx context.Context, productID string) (*lock.Lock, error) {
	val, err := s.rdb.Get(ctx, s.key(productID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	l, err := decodeLock(val)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Acquire writes l only if the key is absent. Expired keys are already gone.
func (s *LockStore) Acquire(ctx context.Context, l lock.Lock, now time.Time) (bool, error) {
	val, err := encodeLock(l)
	if err != nil {
		return false, err
	}

	ok, err := s.rdb.SetNX(ctx, s.key(l.ProductID), val, remaining(l, now)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

// Extend overwrites the document and its expiry when still held by l.AcquiredBy.
func (s *LockStore) Extend(ctx context.Context, l lock.Lock) (bool, error) {
	val, err := encodeLock(l)
	if err != nil {
		return false, err
	}

	ttl := remaining(l, l.LastHeartbeat)
	n, err := extendScript.Run(ctx, s.rdb, []string{s.key(l.ProductID)}, l.AcquiredBy, val, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return n == 1, nil
}

// Release deletes the key only while holder owns it.
func (s *LockStore) Release(ctx context.Context, productID, holder string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.rdb, []string{s.key(productID)}, holder).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	return n == 1, nil
}

// remaining is the key TTL for l at now, never below one millisecond.
func remaining(l lock.Lock, now time.Time) time.Duration {
	ttl := l.ExpiresAt.Sub(now)
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl
}

func encodeLock(l lock.Lock) (string, error) {
	b, err := json.Marshal(lockDoc{
		ProductID:     l.ProductID,
		AcquiredAt:    l.AcquiredAt.UTC(),
		ExpiresAt:     l.ExpiresAt.UTC(),
		LastHeartbeat: l.LastHeartbeat.UTC(),
		AcquiredBy:    l.AcquiredBy,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode lock: %w", err)
	}
	return string(b), nil
}

func decodeLock(val string) (lock.Lock, error) {
	var doc lockDoc
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return lock.Lock{}, fmt.Errorf("failed to decode lock: %w", err)
	}
	return lock.Lock{
		ProductID:     doc.ProductID,
		AcquiredAt:    doc.AcquiredAt,
		ExpiresAt:     doc.ExpiresAt,
		LastHeartbeat: doc.LastHeartbeat,
		AcquiredBy:    doc.AcquiredBy,
	}, nil
}

var _ secondary.LockStore = (*LockStore)(nil)
