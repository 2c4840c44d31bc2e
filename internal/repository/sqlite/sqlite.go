// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// The service runs as a single process with a handful of accounts. An embedded
// database keeps the whole deployment to one binary and one file, and tests
// can use ":memory:" for a fresh database per test.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler is
// needed to build or cross-compile.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      = a connection pool (NOT a single connection!)
//   - sql.Tx      = a transaction
//   - sql.Row     = a single result row
//   - sql.Rows    = multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both
// repository.AccountRepository and repository.CompetitorRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/socialpulse.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
//
// ONE OPEN CONNECTION:
// The pool is capped at a single connection. Every write, including the
// multi-statement list replacement, then runs strictly one after another,
// and concurrent replacements resolve to whichever transaction commits last.
// It also keeps ":memory:" databases coherent: each new connection to
// ":memory:" would otherwise get its own empty database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// competitors.username references accounts.username.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			username         TEXT PRIMARY KEY,
			password_hash    TEXT NOT NULL,
			youtube_handle   TEXT NOT NULL DEFAULT '',
			instagram_handle TEXT NOT NULL DEFAULT '',
			email            TEXT NOT NULL,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	// last_summary_at came after the first schema; added idempotently so
	// older database files pick it up.
	if err := db.addColumnIfNotExists("accounts", "last_summary_at", "DATETIME"); err != nil {
		return fmt.Errorf("adding last_summary_at to accounts: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS competitors (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL REFERENCES accounts(username) ON DELETE CASCADE,
			position   INTEGER NOT NULL DEFAULT 0,
			name       TEXT NOT NULL DEFAULT '',
			youtube    TEXT NOT NULL DEFAULT '',
			instagram  TEXT NOT NULL DEFAULT '',
			verified   INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_competitors_username ON competitors(username, position);
	`)
	if err != nil {
		return fmt.Errorf("creating competitors table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, so they are safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
