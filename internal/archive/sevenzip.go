package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/javi11/sevenzip"
	"github.com/spf13/afero"
)

type sevenZipWalker struct{}

func (sevenZipWalker) walk(ctx context.Context, fs afero.Fs, path string, withData bool, fn WalkFunc) error {
	// Multi-volume archives (.7z.001) resolve their siblings through fs.
	reader, err := sevenzip.OpenReader(path, fs)
	if err != nil {
		return fmt.Errorf("failed to open 7zip archive: %w", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		info := f.FileInfo()
		entry := Entry{
			Path:  NormalizePath(f.Name),
			Size:  info.Size(),
			IsDir: IsDirPath(f.Name) || info.IsDir(),
		}
		if entry.Path == "" {
			continue
		}
		if entry.IsDir {
			entry.Size = 0
		}

		var open OpenFunc
		if withData {
			f := f
			open = func() (io.ReadCloser, error) {
				return f.Open()
			}
		}

		if err := fn(entry, open); err != nil {
			return err
		}
	}

	return nil
}
