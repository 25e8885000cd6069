// Package storetest provides an in-memory SQLite database for store
// package tests, grounded on the teacher's internal/testing.CreateTestDB
// helper (in-memory sqlite3 + real migrations, so test schema never drifts
// from production schema).
package storetest

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jongik-sv/kirosync/internal/store"
)

// NewDB returns an in-memory SQLite database with every migration applied,
// closed automatically via t.Cleanup.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	// A shared cache lets every pooled connection see the same in-memory
	// database; plain ":memory:" gives each connection its own empty one.
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := store.Migrate(db, nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
