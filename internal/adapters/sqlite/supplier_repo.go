package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/quoteflow/internal/ports/secondary"
)

// SupplierRepository implements secondary.SupplierDirectory with SQLite.
type SupplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository creates a new SQLite supplier repository.
func NewSupplierRepository(db *sql.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// GetByID returns the supplier, or nil when it does not exist.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*secondary.SupplierRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, auto_order_enabled, created_at, updated_at FROM suppliers WHERE id = ?",
		id,
	)
	record, err := scanSupplier(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return record, nil
}

// Upsert creates or replaces a supplier.
func (r *SupplierRepository) Upsert(ctx context.Context, supplier *secondary.SupplierRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO suppliers (id, name, email, auto_order_enabled) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			auto_order_enabled = excluded.auto_order_enabled,
			updated_at = CURRENT_TIMESTAMP`,
		supplier.ID, supplier.Name, nullString(supplier.Email), supplier.AutoOrderEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier: %w", err)
	}
	return nil
}

// List returns all suppliers ordered by ID.
func (r *SupplierRepository) List(ctx context.Context) ([]*secondary.SupplierRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, email, auto_order_enabled, created_at, updated_at FROM suppliers ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*secondary.SupplierRecord
	for rows.Next() {
		record, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, record)
	}

	return suppliers, rows.Err()
}

func scanSupplier(row rowScanner) (*secondary.SupplierRecord, error) {
	var (
		email     sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.SupplierRecord{}
	if err := row.Scan(&record.ID, &record.Name, &email, &record.AutoOrderEnabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	record.Email = email.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return record, nil
}

var _ secondary.SupplierDirectory = (*SupplierRepository)(nil)
