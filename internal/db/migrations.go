package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_quotation_schema",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_processing_locks_table",
		Up:      migrationV2,
	},
}

func ensureVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// CurrentVersion returns the highest applied migration.
func CurrentVersion(database *sql.DB) (int, error) {
	var v int
	err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}

// RunMigrations executes all pending migrations, each in its own transaction.
func RunMigrations(database *sql.DB) error {
	if err := ensureVersionTable(database); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	currentVersion, err := CurrentVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates suppliers, quotations, items, history, inventory and settings.
func migrationV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			auto_order_enabled INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS quotations (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			supplier_name TEXT,
			supplier_email TEXT,
			category TEXT,
			source TEXT NOT NULL CHECK(source IN ('manual', 'auto')) DEFAULT 'manual',
			status TEXT NOT NULL CHECK(status IN ('DRAFT', 'SENT', 'REPLIED', 'QUOTED', 'CONFIRMED', 'DELIVERED', 'CANCELLED', 'EXPIRED')) DEFAULT 'DRAFT',
			sent_at DATETIME,
			replied_at DATETIME,
			analyzed_at DATETIME,
			confirmed_at DATETIME,
			delivered_at DATETIME,
			cancelled_at DATETIME,
			quoted_total TEXT,
			reply_body TEXT,
			cancel_reason TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotations_status ON quotations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_quotations_supplier ON quotations(supplier_id)`,
		`CREATE TABLE IF NOT EXISTS quotation_items (
			quotation_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			name TEXT,
			category TEXT,
			quantity REAL NOT NULL,
			unit TEXT,
			price TEXT NOT NULL DEFAULT '0',
			PRIMARY KEY (quotation_id, position),
			FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotation_items_product ON quotation_items(product_id)`,
		`CREATE TABLE IF NOT EXISTS quotation_history (
			quotation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			previous_state TEXT,
			state TEXT NOT NULL,
			event TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			payload TEXT,
			PRIMARY KEY (quotation_id, seq),
			FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			product_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			current_stock REAL NOT NULL DEFAULT 0,
			min_stock REAL NOT NULL DEFAULT 0,
			max_stock REAL NOT NULL DEFAULT 0,
			unit TEXT,
			supplier_id TEXT,
			price TEXT NOT NULL DEFAULT '0',
			enable_auto_quotation INTEGER,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_supplier ON inventory_items(supplier_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// migrationV2 adds the processing_locks table used by the sqlite lock backend.
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS processing_locks (
			product_id TEXT PRIMARY KEY,
			acquired_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			last_heartbeat INTEGER NOT NULL,
			acquired_by TEXT NOT NULL
		)
	`)
	return err
}
