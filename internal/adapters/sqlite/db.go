// Package sqlite opens the single-file database used by the SQLite repositories.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the database at path and applies the schema.
//
// The pool is limited to one connection: SQLite allows a single writer and the
// repositories rely on that for ordering.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}

	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			user_name TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			start_coords TEXT NOT NULL,
			end_coords TEXT NOT NULL,
			consumer_id TEXT NOT NULL,
			driver_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trips_consumer ON trips(consumer_id);`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			idempotency_key TEXT NOT NULL,
			subject TEXT NOT NULL,
			method TEXT NOT NULL,
			route TEXT NOT NULL,
			body_hash TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			body BLOB NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			PRIMARY KEY (idempotency_key, subject, method, route)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("bootstrap sqlite schema: %w", err)
		}
	}
	return nil
}
