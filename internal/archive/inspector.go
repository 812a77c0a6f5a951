package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/spf13/afero"
)

// walker reads one archive format.
type walker interface {
	walk(ctx context.Context, fs afero.Fs, path string, withData bool, fn WalkFunc) error
}

var walkers = map[Format]walker{
	FormatZip:      zipWalker{},
	FormatSevenZip: sevenZipWalker{},
	FormatRar:      rarWalker{},
}

// Inspector reads archive directories without extracting entry data.
// It is read-only and safe for concurrent use on different archives.
type Inspector struct {
	fs  afero.Fs
	log *slog.Logger
}

// NewInspector creates an inspector reading archives from fs.
func NewInspector(fs afero.Fs) *Inspector {
	return &Inspector{
		fs:  fs,
		log: slog.Default().With("component", "archive-inspector"),
	}
}

// Fs returns the filesystem archives are read from.
func (in *Inspector) Fs() afero.Fs {
	return in.fs
}

// Inspect lists the entries of the archive at path.
// Unparseable or unsupported archives fail with ErrArchiveUnreadable.
func (in *Inspector) Inspect(ctx context.Context, path string) (*Archive, error) {
	info, err := in.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive %s: %w", path, err)
	}

	format, err := in.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		Path:           path,
		Name:           filepath.Base(path),
		Format:         format,
		CompressedSize: info.Size(),
	}

	err = walkers[format].walk(ctx, in.fs, path, false, func(entry Entry, _ OpenFunc) error {
		a.Entries = append(a.Entries, entry)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Unreadable(path, err)
	}

	in.log.DebugContext(ctx, "Inspected archive",
		"archive", a.Name,
		"format", format,
		"entries", len(a.Entries),
		"compressed_size", a.CompressedSize,
		"uncompressed_size", a.TotalUncompressedSize())

	return a, nil
}

// InspectOrEstimate behaves like Inspect but recovers from unreadable archives by
// returning an estimated archive with no entries.
func (in *Inspector) InspectOrEstimate(ctx context.Context, path string) (*Archive, error) {
	a, err := in.Inspect(ctx, path)
	if err == nil {
		return a, nil
	}
	if !apperrors.IsUnreadable(err) {
		return nil, err
	}

	info, statErr := in.fs.Stat(path)
	if statErr != nil {
		return nil, fmt.Errorf("failed to stat archive %s: %w", path, statErr)
	}

	est := &Archive{
		Path:           path,
		Name:           filepath.Base(path),
		CompressedSize: info.Size(),
		Estimated:      true,
	}

	in.log.WarnContext(ctx, "Archive directory unreadable, using estimated size",
		"archive", est.Name,
		"compressed_size", est.CompressedSize,
		"estimated_size", est.EstimatedSize(),
		"error", err)

	return est, nil
}

// Walk iterates the entries of the archive in directory order, offering each
// entry's data through the open callback.
func (in *Inspector) Walk(ctx context.Context, path string, fn WalkFunc) error {
	format, err := in.DetectFormat(path)
	if err != nil {
		return err
	}
	return walkers[format].walk(ctx, in.fs, path, true, fn)
}

// DetectFormat picks the archive format from the extension, sniffing the
// content when the extension is not recognised.
func (in *Inspector) DetectFormat(path string) (Format, error) {
	if f := FormatFromName(path); f != FormatUnknown {
		return f, nil
	}

	file, err := in.fs.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(io.LimitReader(file, 3072))
	if err != nil {
		return FormatUnknown, apperrors.Unreadable(path, err)
	}

	switch {
	case mtype.Is("application/zip"):
		return FormatZip, nil
	case mtype.Is("application/x-7z-compressed"):
		return FormatSevenZip, nil
	case mtype.Is("application/x-rar-compressed"), mtype.Is("application/vnd.rar"):
		return FormatRar, nil
	}

	return FormatUnknown, apperrors.Unreadable(path, fmt.Errorf("unsupported format %s", mtype.String()))
}

// FormatFromName maps a file name extension to a format.
func FormatFromName(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".7z"), strings.HasSuffix(lower, ".7z.001"):
		return FormatSevenZip
	case strings.HasSuffix(lower, ".rar"):
		return FormatRar
	}
	return FormatUnknown
}
