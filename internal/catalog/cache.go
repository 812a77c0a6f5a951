package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/javi11/romdeploy/internal/archive"
	"github.com/javi11/romdeploy/internal/database"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// InspectionStore persists archive listings between runs.
// *database.InspectionRepository satisfies it.
type InspectionStore interface {
	Get(ctx context.Context, path string, size int64, modTime time.Time) (*database.Inspection, error)
	Put(ctx context.Context, a *archive.Archive, modTime time.Time) error
}

// CachedInspector memoises inspections keyed by path, size and mtime, in memory
// and optionally in a persistent store. Concurrent requests for the same
// archive share one inspection.
type CachedInspector struct {
	inner *archive.Inspector
	fs    afero.Fs
	mem   *lru.Cache[string, *archive.Archive]
	store InspectionStore
	group singleflight.Group
	log   *slog.Logger
}

// NewCachedInspector wraps inner with an LRU of size entries. store may be nil.
func NewCachedInspector(inner *archive.Inspector, size int, store InspectionStore) (*CachedInspector, error) {
	mem, err := lru.New[string, *archive.Archive](size)
	if err != nil {
		return nil, err
	}

	return &CachedInspector{
		inner: inner,
		fs:    inner.Fs(),
		mem:   mem,
		store: store,
		log:   slog.Default().With("component", "inspection-cache"),
	}, nil
}

// InspectOrEstimate returns the cached listing when the archive is unchanged,
// inspecting it otherwise. Returned archives are shared and must not be modified.
func (c *CachedInspector) InspectOrEstimate(ctx context.Context, path string) (*archive.Archive, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive %s: %w", path, err)
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if a, ok := c.mem.Get(key); ok {
		return a, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if a, ok := c.mem.Get(key); ok {
			return a, nil
		}

		if c.store != nil {
			insp, err := c.store.Get(ctx, path, info.Size(), info.ModTime())
			if err != nil {
				c.log.WarnContext(ctx, "Inspection cache read failed", "archive", path, "error", err)
			} else if insp != nil {
				a := insp.Archive()
				c.mem.Add(key, a)
				c.log.DebugContext(ctx, "Using cached inspection", "archive", path)
				return a, nil
			}
		}

		a, err := c.inner.InspectOrEstimate(ctx, path)
		if err != nil {
			return nil, err
		}

		c.mem.Add(key, a)
		if c.store != nil && !a.Estimated {
			if err := c.store.Put(ctx, a, info.ModTime()); err != nil {
				c.log.WarnContext(ctx, "Inspection cache write failed", "archive", path, "error", err)
			}
		}

		return a, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*archive.Archive), nil
}

// Len returns the number of in-memory entries.
func (c *CachedInspector) Len() int {
	return c.mem.Len()
}
