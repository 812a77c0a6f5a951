package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/javi11/rardecode/v2"
	"github.com/spf13/afero"
)

type rarWalker struct{}

// walk reads RAR block headers sequentially. Entry data is skipped by Next
// unless the callback opens it.
func (rarWalker) walk(ctx context.Context, fs afero.Fs, path string, withData bool, fn WalkFunc) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	// Volumes are opened by name relative to the first part.
	volumes := afero.NewIOFS(afero.NewBasePathFs(fs, dir))

	reader, err := rardecode.OpenReader(name, rardecode.FileSystem(volumes))
	if err != nil {
		return fmt.Errorf("failed to open RAR archive: %w", err)
	}
	defer reader.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read RAR header: %w", err)
		}

		entry := Entry{
			Path:  NormalizePath(header.Name),
			Size:  header.UnPackedSize,
			IsDir: header.IsDir || IsDirPath(header.Name),
		}
		if entry.Path == "" {
			continue
		}
		if entry.IsDir {
			entry.Size = 0
		}

		var open OpenFunc
		if withData {
			open = func() (io.ReadCloser, error) {
				return io.NopCloser(reader), nil
			}
		}

		if err := fn(entry, open); err != nil {
			return err
		}
	}
}
