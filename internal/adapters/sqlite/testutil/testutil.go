// Package testutil opens throwaway SQLite databases for tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite"
)

// OpenTemp opens a fresh database in t's temp dir and closes it on cleanup.
func OpenTemp(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
