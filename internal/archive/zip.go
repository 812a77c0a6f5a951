package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

type zipWalker struct{}

func (zipWalker) walk(ctx context.Context, fs afero.Fs, path string, withData bool, fn WalkFunc) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat zip: %w", err)
	}

	// Only the central directory is read here.
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("failed to read zip directory: %w", err)
	}

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry := Entry{
			Path:  NormalizePath(zf.Name),
			Size:  int64(zf.UncompressedSize64),
			IsDir: IsDirPath(zf.Name) || zf.FileInfo().IsDir(),
		}
		if entry.Path == "" {
			continue
		}

		var open OpenFunc
		if withData {
			zf := zf
			open = func() (io.ReadCloser, error) {
				return zf.Open()
			}
		}

		if err := fn(entry, open); err != nil {
			return err
		}
	}

	return nil
}
