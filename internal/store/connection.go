// Package store implements the SQLite-backed persistence layer
// (SPEC_FULL.md §4.9): repositories for users, diagrams, and collaboration
// sessions, plus the embedded-migration bootstrap. Grounded on the
// teacher's db package (connection pragmas, embedded migration harness) and
// auth/store.go (repository method shapes over database/sql).
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jongik-sv/kirosync/internal/errors"
	"github.com/jongik-sv/kirosync/internal/logger"
)

const (
	// JournalMode enables concurrent reads during writes.
	JournalMode = "WAL"
	// BusyTimeoutMS is how long a write waits for a lock before SQLITE_BUSY.
	BusyTimeoutMS = 5000
)

// Open opens a SQLite database at path with the pragmas this repository
// needs (WAL journaling, foreign keys, a busy timeout so concurrent
// diagram-room writers don't trip over each other under light contention).
func Open(path string, log *zap.SugaredLogger) (*sql.DB, error) {
	if log != nil {
		log.Debugw("opening database", logger.FieldPath, path)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open database at %s", path)
	}

	if _, err := db.Exec("PRAGMA journal_mode = " + JournalMode); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "enable %s journal mode for %s", JournalMode, path)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "enable foreign keys for %s", path)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "set busy timeout for %s", path)
	}

	if log != nil {
		log.Infow("database opened", logger.FieldPath, path, "wal_mode", true)
	}
	return db, nil
}

// OpenWithMigrations opens the database and applies every pending
// migration before returning.
func OpenWithMigrations(path string, log *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, log); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "run migrations for %s", path)
	}
	return db, nil
}
