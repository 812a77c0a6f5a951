// Package catalog turns a source tree of archives into negotiation units and
// extraction jobs.
package catalog

import (
	"context"

	"github.com/javi11/romdeploy/internal/archive"
	"github.com/javi11/romdeploy/internal/classifier"
)

// Inspector lists archives. *archive.Inspector and *CachedInspector satisfy it.
type Inspector interface {
	InspectOrEstimate(ctx context.Context, path string) (*archive.Archive, error)
}

// Source is one archive found under the source root.
type Source struct {
	// Path locates the archive on the source filesystem.
	Path string
	// Rel is the slash-separated path below the source root. It names the
	// archive in the progress store.
	Rel      string
	Archive  *archive.Archive
	Required bool
	// Bundle is set for archives selected per item.
	Bundle    *Bundle
	Breakdown classifier.Breakdown
}

// Size returns the bytes extracting the whole archive writes.
func (s Source) Size() int64 {
	if s.Archive == nil {
		return 0
	}
	return s.Archive.Size()
}

// IsBundle reports whether the source is selected per item.
func (s Source) IsBundle() bool {
	return s.Bundle != nil && !s.Archive.Estimated
}
