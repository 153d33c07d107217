package db

import "database/sql"

// SchemaSQL is the complete schema for fresh quoteflow installs.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(). If repository code references a column that
// doesn't exist here, tests fail immediately with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = `
-- Suppliers
CREATE TABLE IF NOT EXISTS suppliers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	auto_order_enabled INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Quotations (one lifecycle document per supplier request)
CREATE TABLE IF NOT EXISTS quotations (
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
);

CREATE INDEX IF NOT EXISTS idx_quotations_status ON quotations(status);
CREATE INDEX IF NOT EXISTS idx_quotations_supplier ON quotations(supplier_id);

CREATE TABLE IF NOT EXISTS quotation_items (
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
);

CREATE INDEX IF NOT EXISTS idx_quotation_items_product ON quotation_items(product_id);

-- Append-only event history
CREATE TABLE IF NOT EXISTS quotation_history (
	quotation_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	previous_state TEXT,
	state TEXT NOT NULL,
	event TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	payload TEXT,
	PRIMARY KEY (quotation_id, seq),
	FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE
);

-- Inventory levels (written by the inventory subsystem or the CLI)
CREATE TABLE IF NOT EXISTS inventory_items (
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
);

CREATE INDEX IF NOT EXISTS idx_inventory_supplier ON inventory_items(supplier_id);

-- Global settings (key/value)
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Processing locks (times are unix milliseconds so expiry compares numerically)
CREATE TABLE IF NOT EXISTS processing_locks (
	product_id TEXT PRIMARY KEY,
	acquired_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	last_heartbeat INTEGER NOT NULL,
	acquired_by TEXT NOT NULL
);
`

// InitSchema creates the schema on a fresh database and runs pending migrations.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install - create the schema directly and mark every migration applied
		if _, err := database.Exec(SchemaSQL); err != nil {
			return err
		}
		if err := ensureVersionTable(database); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	// schema_version table exists - run any pending migrations
	return RunMigrations(database)
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
