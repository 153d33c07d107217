package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// LockRepository implements secondary.LockStore with SQLite.
// Acquisition is a single upsert that only overwrites expired rows.
type LockRepository struct {
	db *sql.DB
}

// NewLockRepository creates a new SQLite lock repository.
func NewLockRepository(db *sql.DB) *LockRepository {
	return &LockRepository{db: db}
}

// Get returns the lock for productID, or nil when none is stored.
func (r *LockRepository) Get(ctx context.Context, productID string) (*lock.Lock, error) {
	var acquiredAt, expiresAt, heartbeat int64
	l := &lock.Lock{}
	err := r.db.QueryRowContext(ctx,
		"SELECT product_id, acquired_at, expires_at, last_heartbeat, acquired_by FROM processing_locks WHERE product_id = ?",
		productID,
	).Scan(&l.ProductID, &acquiredAt, &expiresAt, &heartbeat, &l.AcquiredBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	l.AcquiredAt = time.UnixMilli(acquiredAt).UTC()
	l.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	l.LastHeartbeat = time.UnixMilli(heartbeat).UTC()
	return l, nil
}

// Acquire writes l only if no live lock exists for its product at now.
func (r *LockRepository) Acquire(ctx context.Context, l lock.Lock, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_locks (product_id, acquired_at, expires_at, last_heartbeat, acquired_by)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at,
			last_heartbeat = excluded.last_heartbeat,
			acquired_by = excluded.acquired_by
		 WHERE processing_locks.expires_at <= ?`,
		l.ProductID, l.AcquiredAt.UnixMilli(), l.ExpiresAt.UnixMilli(), l.LastHeartbeat.UnixMilli(), l.AcquiredBy,
		now.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Extend overwrites the expiry and heartbeat of a lock held by l.AcquiredBy.
func (r *LockRepository) Extend(ctx context.Context, l lock.Lock) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE processing_locks SET expires_at = ?, last_heartbeat = ? WHERE product_id = ? AND acquired_by = ?",
		l.ExpiresAt.UnixMilli(), l.LastHeartbeat.UnixMilli(), l.ProductID, l.AcquiredBy,
	)
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Release removes the lock document only while holder owns it.
func (r *LockRepository) Release(ctx context.Context, productID, holder string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM processing_locks WHERE product_id = ? AND acquired_by = ?",
		productID, holder,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

var _ secondary.LockStore = (*LockRepository)(nil)
