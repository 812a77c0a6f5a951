package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/javi11/romdeploy/internal/archive"
)

const timeLayout = "2006-01-02 15:04:05"

// InspectionRepository stores archive listings keyed by path, size and mtime
type InspectionRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}
}

// NewInspectionRepository creates a new inspection repository
func NewInspectionRepository(db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// Get returns the cached listing for path. A missing row or one recorded for a
// different size or mtime is a miss and returns nil without error.
func (r *InspectionRepository) Get(ctx context.Context, path string, size int64, modTime time.Time) (*Inspection, error) {
	query := `
		SELECT path, size, mod_time, format, entry_count, uncompressed_size, entries, updated_at
		FROM inspections
		WHERE path = ?
	`

	var (
		insp      Inspection
		modNanos  int64
		format    string
		entries   string
		updatedAt string
	)

	err := r.db.QueryRowContext(ctx, query, path).Scan(
		&insp.Path, &insp.Size, &modNanos, &format,
		&insp.EntryCount, &insp.UncompressedSize, &entries, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	if insp.Size != size || modNanos != modTime.UnixNano() {
		return nil, nil
	}

	if err := json.Unmarshal([]byte(entries), &insp.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode inspection entries: %w", err)
	}

	insp.Format = archive.Format(format)
	insp.ModTime = time.Unix(0, modNanos)
	if t, err := time.Parse(timeLayout, updatedAt); err == nil {
		insp.UpdatedAt = t
	}

	return &insp, nil
}

// Put stores the listing of a fully inspected archive. Estimated archives are not stored.
func (r *InspectionRepository) Put(ctx context.Context, a *archive.Archive, modTime time.Time) error {
	if a.Estimated {
		return nil
	}

	entries, err := json.Marshal(a.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode inspection entries: %w", err)
	}

	query := `
		INSERT INTO inspections (path, size, mod_time, format, entry_count, uncompressed_size, entries, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
		size = excluded.size,
		mod_time = excluded.mod_time,
		format = excluded.format,
		entry_count = excluded.entry_count,
		uncompressed_size = excluded.uncompressed_size,
		entries = excluded.entries,
		updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		a.Path, a.CompressedSize, modTime.UnixNano(), string(a.Format),
		len(a.Entries), a.TotalUncompressedSize(), string(entries),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to store inspection: %w", err)
	}

	return nil
}

// Prune deletes listings not refreshed within olderThan and returns how many were removed.
func (r *InspectionRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(timeLayout)

	result, err := r.db.ExecContext(ctx, `DELETE FROM inspections WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune inspections: %w", err)
	}

	return result.RowsAffected()
}

// Count returns the number of cached listings.
func (r *InspectionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inspections`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count inspections: %w", err)
	}
	return count, nil
}
