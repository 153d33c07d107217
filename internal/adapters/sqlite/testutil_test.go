// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/quoteflow/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every pooled connection to :memory: is a fresh database.
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedSupplier inserts a test supplier and returns its ID.
func seedSupplier(t *testing.T, testDB *sql.DB, id, name, email string, autoOrder bool) string {
	t.Helper()
	if id == "" {
		id = "SUP-001"
	}
	if name == "" {
		name = "Test Supplier"
	}
	var mail sql.NullString
	if email != "" {
		mail = sql.NullString{String: email, Valid: true}
	}
	_, err := testDB.Exec("INSERT INTO suppliers (id, name, email, auto_order_enabled) VALUES (?, ?, ?, ?)", id, name, mail, autoOrder)
	if err != nil {
		t.Fatalf("failed to seed supplier: %v", err)
	}
	return id
}
