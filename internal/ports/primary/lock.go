package primary

import (
	"context"
	"errors"

	"github.com/example/quoteflow/internal/core/lock"
)

// ErrLockNotHeld is wrapped by ExtendLock when the caller no longer owns a live lock.
var ErrLockNotHeld = errors.New("lock not held")

// LockOutcome is the result of an acquisition attempt.
type LockOutcome string

const (
	// LockAcquired means this holder now owns the lock.
	LockAcquired LockOutcome = "acquired"
	// LockContended means another holder owns a live lock. Not an error.
	LockContended LockOutcome = "contended"
	// LockFailedOpen means the store failed and the caller may proceed anyway.
	LockFailedOpen LockOutcome = "failed_open"
	// LockFailedClosed means the store failed and the caller must not proceed.
	LockFailedClosed LockOutcome = "failed_closed"
)

// Proceed reports whether the caller may continue with the guarded work.
func (o LockOutcome) Proceed() bool {
	return o == LockAcquired || o == LockFailedOpen
}

// LockService defines the primary port for processing locks.
type LockService interface {
	// AcquireLock attempts to take the lock for productID. The returned error is
	// the underlying store failure for the failed_* outcomes and nil otherwise.
	AcquireLock(ctx context.Context, productID string) (LockOutcome, error)

	// ExtendLock refreshes the expiry of a lock held by this process. A lock that
	// expired or changed hands yields an error wrapping ErrLockNotHeld.
	ExtendLock(ctx context.Context, productID string) error

	// ReleaseLock deletes the lock when this process holds it. Returns false when
	// the lock is missing or owned by another holder. Failures leave the lock to expire.
	ReleaseLock(ctx context.Context, productID string) (bool, error)

	// GetLock returns the stored lock, or nil when none is stored.
	GetLock(ctx context.Context, productID string) (*lock.Lock, error)

	// Holder returns the identity written into acquired locks.
	Holder() string
}
