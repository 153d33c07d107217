package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	corelock "github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/ctxutil"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// LockServiceConfig tunes a LockServiceImpl.
type LockServiceConfig struct {
	TTL    time.Duration
	Policy corelock.FailurePolicy
	Holder string // defaults to a random per-process id
}

// LockServiceImpl implements the LockService interface over a LockStore.
type LockServiceImpl struct {
	store  secondary.LockStore
	clock  Clock
	ttl    time.Duration
	policy corelock.FailurePolicy
	holder string
	logger logrus.FieldLogger
}

// NewLockService creates a new LockService with injected dependencies.
func NewLockService(store secondary.LockStore, clock Clock, cfg LockServiceConfig, logger logrus.FieldLogger) *LockServiceImpl {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = corelock.DefaultTTL
	}
	policy := cfg.Policy
	if policy == "" {
		policy = corelock.FailOpen
	}
	holder := cfg.Holder
	if holder == "" {
		holder = "quoteflow-" + uuid.NewString()
	}
	return &LockServiceImpl{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		policy: policy,
		holder: holder,
		logger: logger,
	}
}

// Holder returns the identity written into acquired locks.
func (s *LockServiceImpl) Holder() string {
	return s.holder
}

// holderFor prefers a holder carried on the context over the process holder.
func (s *LockServiceImpl) holderFor(ctx context.Context) string {
	if h := ctxutil.HolderFromContext(ctx); h != "" {
		return h
	}
	return s.holder
}

// AcquireLock attempts to take the lock for productID.
func (s *LockServiceImpl) AcquireLock(ctx context.Context, productID string) (primary.LockOutcome, error) {
	now := s.clock.Now()
	l := corelock.New(productID, s.holderFor(ctx), now, s.ttl)

	ok, err := s.store.Acquire(ctx, l, now)
	if err != nil {
		fields := logrus.Fields{"product_id": productID, "policy": s.policy}
		if s.policy == corelock.FailClosed {
			s.logger.WithFields(fields).WithError(err).Warn("lock store unavailable, dropping work")
			return primary.LockFailedClosed, fmt.Errorf("failed to acquire lock: %w", err)
		}
		s.logger.WithFields(fields).WithError(err).Warn("lock store unavailable, proceeding without lock")
		return primary.LockFailedOpen, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		s.logger.WithField("product_id", productID).Debug("lock already held")
		return primary.LockContended, nil
	}
	return primary.LockAcquired, nil
}

// ExtendLock refreshes the expiry of a lock held by this process.
func (s *LockServiceImpl) ExtendLock(ctx context.Context, productID string) error {
	existing, err := s.store.Get(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get lock: %w", err)
	}

	now := s.clock.Now()
	holder := s.holderFor(ctx)
	if !corelock.IsLive(existing, now) {
		return fmt.Errorf("no live lock for %s: %w", productID, primary.ErrLockNotHeld)
	}
	if existing.AcquiredBy != holder {
		return fmt.Errorf("lock for %s is held by %s: %w", productID, existing.AcquiredBy, primary.ErrLockNotHeld)
	}

	ok, err := s.store.Extend(ctx, corelock.Heartbeat(*existing, now, s.ttl))
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock for %s was lost before it could be extended: %w", productID, primary.ErrLockNotHeld)
	}
	return nil
}

// ReleaseLock deletes the lock when the caller's holder owns it. A lock taken
// over by another holder is left alone. A failed release leaves the lock to expire.
func (s *LockServiceImpl) ReleaseLock(ctx context.Context, productID string) (bool, error) {
	holder := s.holderFor(ctx)
	released, err := s.store.Release(ctx, productID, holder)
	if err != nil {
		s.logger.WithField("product_id", productID).WithError(err).Warn("failed to release lock, leaving it to expire")
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	if !released {
		s.logger.WithFields(logrus.Fields{"product_id": productID, "holder": holder}).Debug("lock not held, nothing to release")
	}
	return released, nil
}

// GetLock returns the stored lock, or nil when none is stored.
func (s *LockServiceImpl) GetLock(ctx context.Context, productID string) (*corelock.Lock, error) {
	l, err := s.store.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}
	return l, nil
}

// Ensure LockServiceImpl implements the interface
var _ primary.LockService = (*LockServiceImpl)(nil)
