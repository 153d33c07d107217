package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// InventoryRepository implements secondary.InventoryRepository with SQLite.
// Supplier name and email are joined from the suppliers table on read.
type InventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new SQLite inventory repository.
func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventorySelect = `SELECT i.product_id, i.name, i.category, i.current_stock, i.min_stock, i.max_stock,
	i.unit, i.supplier_id, s.name, s.email, i.price, i.enable_auto_quotation
	FROM inventory_items i LEFT JOIN suppliers s ON s.id = i.supplier_id`

// List returns every inventory item ordered by product ID.
func (r *InventoryRepository) List(ctx context.Context) ([]reorder.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, inventorySelect+" ORDER BY i.product_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []reorder.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetByProductID returns one item, or nil when it does not exist.
func (r *InventoryRepository) GetByProductID(ctx context.Context, productID string) (*reorder.InventoryItem, error) {
	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, inventorySelect+" WHERE i.product_id = ?", productID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, nil
}

// Upsert creates or replaces an item.
func (r *InventoryRepository) Upsert(ctx context.Context, item reorder.InventoryItem) error {
	var enabled sql.NullBool
	if item.EnableAutoQuotation != nil {
		enabled = sql.NullBool{Bool: *item.EnableAutoQuotation, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_items
			(product_id, name, category, current_stock, min_stock, max_stock, unit, supplier_id, price, enable_auto_quotation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			current_stock = excluded.current_stock,
			min_stock = excluded.min_stock,
			max_stock = excluded.max_stock,
			unit = excluded.unit,
			supplier_id = excluded.supplier_id,
			price = excluded.price,
			enable_auto_quotation = excluded.enable_auto_quotation,
			updated_at = CURRENT_TIMESTAMP`,
		item.ProductID, item.Name, nullString(item.Category), item.CurrentStock, item.MinStock, item.MaxStock,
		nullString(item.Unit), nullString(item.SupplierID), item.Price.String(), enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory item: %w", err)
	}
	return nil
}

func scanInventoryItem(row rowScanner) (*reorder.InventoryItem, error) {
	var (
		item                        reorder.InventoryItem
		category, unit, supplierID  sql.NullString
		supplierName, supplierEmail sql.NullString
		price                       string
		enabled                     sql.NullBool
	)

	err := row.Scan(&item.ProductID, &item.Name, &category, &item.CurrentStock, &item.MinStock, &item.MaxStock,
		&unit, &supplierID, &supplierName, &supplierEmail, &price, &enabled)
	if err != nil {
		return nil, err
	}

	item.Category = category.String
	item.Unit = unit.String
	item.SupplierID = supplierID.String
	item.SupplierName = supplierName.String
	item.SupplierEmail = supplierEmail.String
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q for %s: %w", price, item.ProductID, err)
	}
	if enabled.Valid {
		v := enabled.Bool
		item.EnableAutoQuotation = &v
	}
	return &item, nil
}

var _ secondary.InventoryRepository = (*InventoryRepository)(nil)
