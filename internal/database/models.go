package database

import (
	"path/filepath"
	"time"

	"github.com/javi11/romdeploy/internal/archive"
)

// Inspection is a cached archive directory listing. It is valid while the
// archive keeps the same size and modification time.
type Inspection struct {
	Path             string
	Size             int64
	ModTime          time.Time
	Format           archive.Format
	EntryCount       int
	UncompressedSize int64
	Entries          []archive.Entry
	UpdatedAt        time.Time
}

// Archive converts the cached listing back into an inspected archive.
func (i *Inspection) Archive() *archive.Archive {
	return &archive.Archive{
		Path:           i.Path,
		Name:           filepath.Base(i.Path),
		Format:         i.Format,
		CompressedSize: i.Size,
		Entries:        i.Entries,
	}
}
