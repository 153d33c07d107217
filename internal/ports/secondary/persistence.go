// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"

	"github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/core/reorder"
)

var (
	// ErrNotFound is wrapped by repositories when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped by QuotationRepository.Update when the stored quotation
	// moved on after the caller read it.
	ErrConflict = errors.New("was modified concurrently")
)

// QuotationRepository defines the secondary port for quotation persistence.
// Writes need only be document-atomic; reads may be eventually consistent.
type QuotationRepository interface {
	// Create persists a new quotation, including its items and history.
	Create(ctx context.Context, q *quotation.Quotation) error

	// GetByID retrieves a quotation by its ID.
	GetByID(ctx context.Context, id string) (*quotation.Quotation, error)

	// List retrieves quotations matching the given filters.
	List(ctx context.Context, filters QuotationFilters) ([]*quotation.Quotation, error)

	// Update replaces the stored quotation with q. History entries not yet stored are appended.
	// The write only succeeds when q extends the stored history; otherwise it returns
	// an error wrapping ErrConflict and nothing is written.
	Update(ctx context.Context, q *quotation.Quotation) error

	// Delete removes a quotation from persistence.
	Delete(ctx context.Context, id string) error

	// GetNextID returns the next available quotation ID.
	GetNextID(ctx context.Context) (string, error)
}

// QuotationFilters contains filter options for querying quotations.
type QuotationFilters struct {
	Status     string
	SupplierID string
	OpenOnly   bool
	Limit      int
}

// LockStore defines the secondary port for processing lock documents.
// Only single-document atomicity is required.
type LockStore interface {
	// Get returns the lock for productID, or nil when none is stored.
	// Expired documents are returned as-is; liveness is the caller's concern.
	Get(ctx context.Context, productID string) (*lock.Lock, error)

	// Acquire writes l only if no live lock exists for its product at now.
	// Returns false when a live lock is already held.
	Acquire(ctx context.Context, l lock.Lock, now time.Time) (bool, error)

	// Extend overwrites the expiry and heartbeat of a lock held by l.AcquiredBy.
	// Returns false when the lock is missing or held by someone else.
	Extend(ctx context.Context, l lock.Lock) (bool, error)

	// Release removes the lock document only while holder owns it.
	// Returns false when the lock is missing or held by someone else.
	Release(ctx context.Context, productID, holder string) (bool, error)
}

// SupplierDirectory defines the secondary port for supplier lookups.
type SupplierDirectory interface {
	// GetByID returns the supplier, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*SupplierRecord, error)

	// Upsert creates or replaces a supplier.
	Upsert(ctx context.Context, supplier *SupplierRecord) error

	// List returns all suppliers ordered by ID.
	List(ctx context.Context) ([]*SupplierRecord, error)
}

// SupplierRecord represents a supplier as stored in persistence.
type SupplierRecord struct {
	ID               string
	Name             string
	Email            string // Empty string means null
	AutoOrderEnabled bool
	CreatedAt        string
	UpdatedAt        string
}

// SettingsStore defines the secondary port for global automation settings.
type SettingsStore interface {
	// GetAutomationMode returns the stored mode, ModeAuto when never set.
	GetAutomationMode(ctx context.Context) (reorder.AutomationMode, error)

	// SetAutomationMode stores the mode.
	SetAutomationMode(ctx context.Context, mode reorder.AutomationMode) error
}

// InventoryRepository defines the secondary port for inventory levels.
type InventoryRepository interface {
	// List returns every inventory item.
	List(ctx context.Context) ([]reorder.InventoryItem, error)

	// GetByProductID returns one item, or nil when it does not exist.
	GetByProductID(ctx context.Context, productID string) (*reorder.InventoryItem, error)

	// Upsert creates or replaces an item.
	Upsert(ctx context.Context, item reorder.InventoryItem) error
}
