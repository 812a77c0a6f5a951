package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// newTestDB opens a migrated database in a temporary directory
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{DatabasePath: filepath.Join(t.TempDir(), "cache.db")})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// ageInspection moves the updated_at timestamp of path into the past
func ageInspection(t *testing.T, db *sql.DB, path string, age time.Duration) {
	t.Helper()

	_, err := db.Exec("UPDATE inspections SET updated_at = ? WHERE path = ?",
		time.Now().Add(-age).UTC().Format(timeLayout), path)
	if err != nil {
		t.Fatalf("Failed to age inspection: %v", err)
	}
}
