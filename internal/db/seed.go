package db

import (
	"database/sql"
	"fmt"
)

// SeedFixtures populates the database with a small development dataset:
// three suppliers and an inventory where some items are already low.
func SeedFixtures(database *sql.DB) error {
	suppliers := []struct {
		id, name, email string
		auto            bool
	}{
		{"SUP-001", "Fresh Dairy Co", "orders@freshdairy.example", true},
		{"SUP-002", "Village Bakery", "sales@villagebakery.example", true},
		{"SUP-003", "Spice Traders", "", false},
	}
	for _, s := range suppliers {
		var email sql.NullString
		if s.email != "" {
			email = sql.NullString{String: s.email, Valid: true}
		}
		if _, err := database.Exec(
			"INSERT OR REPLACE INTO suppliers (id, name, email, auto_order_enabled) VALUES (?, ?, ?, ?)",
			s.id, s.name, email, s.auto,
		); err != nil {
			return fmt.Errorf("seed suppliers: %w", err)
		}
	}

	inventory := []struct {
		id, name, category, unit, supplier, price string
		current, min, max                         float64
	}{
		{"PRD-MILK", "Whole milk", "Dairy", "l", "SUP-001", "1.10", 4, 10, 40},
		{"PRD-BUTTER", "Butter", "Dairy", "kg", "SUP-001", "7.80", 6, 3, 12},
		{"PRD-CREAM", "Cream", "Dairy", "l", "SUP-001", "3.20", 1, 2, 0},
		{"PRD-SOURDOUGH", "Sourdough loaf", "Bakery", "pcs", "SUP-002", "4.50", 2, 8, 20},
		{"PRD-SAFFRON", "Saffron", "Spices", "g", "SUP-003", "9.00", 0, 5, 10},
	}
	for _, it := range inventory {
		if _, err := database.Exec(
			`INSERT OR REPLACE INTO inventory_items
				(product_id, name, category, current_stock, min_stock, max_stock, unit, supplier_id, price)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.id, it.name, it.category, it.current, it.min, it.max, it.unit, it.supplier, it.price,
		); err != nil {
			return fmt.Errorf("seed inventory: %w", err)
		}
	}

	if _, err := database.Exec(
		"INSERT OR IGNORE INTO settings (key, value) VALUES ('automation_mode', 'auto')",
	); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	return nil
}
