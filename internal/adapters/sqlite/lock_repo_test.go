package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/quoteflow/internal/adapters/sqlite"
	"github.com/example/quoteflow/internal/core/lock"
)

func TestLockRepository_AcquireIsConditional(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewLockRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	ok, err := repo.Acquire(ctx, lock.New("P-1", "proc-a", now, lock.DefaultTTL), now)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v; want true", ok, err)
	}

	ok, err = repo.Acquire(ctx, lock.New("P-1", "proc-b", now.Add(time.Minute), lock.DefaultTTL), now.Add(time.Minute))
	if err != nil || ok {
		t.Fatalf("second Acquire = %v, %v; want false", ok, err)
	}

	got, _ := repo.Get(ctx, "P-1")
	if got == nil || got.AcquiredBy != "proc-a" {
		t.Fatalf("holder = %+v, want proc-a", got)
	}
	if !got.ExpiresAt.Equal(now.Add(lock.DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, now.Add(lock.DefaultTTL))
	}

	// Exactly at expiry the lock is free again.
	later := now.Add(lock.DefaultTTL)
	ok, err = repo.Acquire(ctx, lock.New("P-1", "proc-b", later, lock.DefaultTTL), later)
	if err != nil || !ok {
		t.Fatalf("Acquire after expiry = %v, %v; want true", ok, err)
	}
	got, _ = repo.Get(ctx, "P-1")
	if got.AcquiredBy != "proc-b" {
		t.Errorf("holder = %s, want proc-b", got.AcquiredBy)
	}
}

func TestLockRepository_Extend(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewLockRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	l := lock.New("P-1", "proc-a", now, lock.DefaultTTL)
	_, _ = repo.Acquire(ctx, l, now)

	extended := lock.Heartbeat(l, now.Add(2*time.Minute), lock.DefaultTTL)
	ok, err := repo.Extend(ctx, extended)
	if err != nil || !ok {
		t.Fatalf("Extend = %v, %v; want true", ok, err)
	}
	got, _ := repo.Get(ctx, "P-1")
	if !got.LastHeartbeat.Equal(now.Add(2*time.Minute)) || !got.AcquiredAt.Equal(now) {
		t.Errorf("got %+v, want heartbeat moved and acquiredAt kept", got)
	}

	stranger := extended
	stranger.AcquiredBy = "proc-b"
	if ok, _ := repo.Extend(ctx, stranger); ok {
		t.Error("another holder should not extend the lock")
	}
}

func TestLockRepository_Release(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewLockRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _ = repo.Acquire(ctx, lock.New("P-1", "proc-a", now, lock.DefaultTTL), now)

	if ok, err := repo.Release(ctx, "P-1", "proc-b"); ok || err != nil {
		t.Fatalf("foreign Release = %v, %v; want false, nil", ok, err)
	}
	if got, _ := repo.Get(ctx, "P-1"); got == nil {
		t.Fatal("another holder removed the lock")
	}

	if ok, err := repo.Release(ctx, "P-1", "proc-a"); !ok || err != nil {
		t.Fatalf("Release = %v, %v; want true, nil", ok, err)
	}
	if got, _ := repo.Get(ctx, "P-1"); got != nil {
		t.Errorf("lock still present: %+v", got)
	}
	if ok, err := repo.Release(ctx, "P-1", "proc-a"); ok || err != nil {
		t.Errorf("releasing a missing lock = %v, %v; want false, nil", ok, err)
	}
}
