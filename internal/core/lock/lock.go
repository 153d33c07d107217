// Package lock contains the pure rules for processing locks: advisory, TTL-based
// records that suppress duplicate concurrent handling of one inventory item.
// Expiry is lazy - a lock is live only while ExpiresAt is in the future.
package lock

import (
	"fmt"
	"time"
)

// DefaultTTL bounds how long a crashed holder can block a product.
const DefaultTTL = 180 * time.Second

// Lock is a processing lock document keyed by product.
type Lock struct {
	ProductID     string
	AcquiredAt    time.Time
	ExpiresAt     time.Time
	LastHeartbeat time.Time
	AcquiredBy    string
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// New builds a lock held by holder from now until now+ttl.
func New(productID, holder string, now time.Time, ttl time.Duration) Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Lock{
		ProductID:     productID,
		AcquiredAt:    now,
		ExpiresAt:     now.Add(ttl),
		LastHeartbeat: now,
		AcquiredBy:    holder,
	}
}

// IsLive reports whether l still excludes other holders at now.
// A nil lock is never live.
func IsLive(l *Lock, now time.Time) bool {
	return l != nil && l.ExpiresAt.After(now)
}

// CanAcquire evaluates whether a new lock may be written over existing.
// Rules:
// - No lock, or the existing lock has expired
func CanAcquire(existing *Lock, now time.Time) GuardResult {
	if IsLive(existing, now) {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("product %s is already being handled by %s until %s",
				existing.ProductID, existing.AcquiredBy, existing.ExpiresAt.Format(time.RFC3339)),
		}
	}
	return GuardResult{Allowed: true}
}

// Heartbeat returns l with its expiry pushed to now+ttl.
func Heartbeat(l Lock, now time.Time, ttl time.Duration) Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l.LastHeartbeat = now
	l.ExpiresAt = now.Add(ttl)
	return l
}

// FailurePolicy decides what happens when the lock store itself cannot be reached.
type FailurePolicy string

const (
	// FailOpen proceeds as though the lock were acquired, favouring availability
	// at the cost of possible duplicate handling while the store is down.
	FailOpen FailurePolicy = "open"
	// FailClosed treats an unreachable store as contention and drops the work.
	FailClosed FailurePolicy = "closed"
)

// ParseFailurePolicy maps a config string to a policy, defaulting to FailOpen.
func ParseFailurePolicy(s string) FailurePolicy {
	if FailurePolicy(s) == FailClosed {
		return FailClosed
	}
	return FailOpen
}
