package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/javi11/romdeploy/internal/archive"
	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/javi11/romdeploy/internal/progress"
	"github.com/javi11/romdeploy/internal/slogutil"
	"github.com/javi11/romdeploy/internal/utils"
	"github.com/spf13/afero"
)

// Source walks archive entries with access to their data.
// *archive.Inspector satisfies it.
type Source interface {
	Walk(ctx context.Context, path string, fn archive.WalkFunc) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithReporter sends byte progress for each job to r.
func WithReporter(r progress.Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// WithStore replaces the progress store derived from the destination fs.
func WithStore(s *progress.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// Engine extracts jobs one archive at a time into a destination tree.
// A destination must only be used by one Engine at a time.
type Engine struct {
	src      Source
	dst      afero.Fs
	store    *progress.Store
	reporter progress.Reporter
	log      *slog.Logger
}

// NewEngine creates an engine reading archives through src and writing into
// dst, which should be rooted at the destination directory.
func NewEngine(src Source, dst afero.Fs, opts ...Option) *Engine {
	e := &Engine{
		src: src,
		dst: dst,
		log: slog.Default().With("component", "extraction-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = progress.NewStore(dst)
	}
	return e
}

// Store returns the progress store of the destination.
func (e *Engine) Store() *progress.Store {
	return e.store
}

type archiveStats struct {
	entries  int
	filtered int
	bytes    int64
}

// Extract runs job. Archives recorded in the progress store are skipped
// without being opened. A failing archive is reported in the result and the
// next one is attempted. When ctx is cancelled the current and untouched
// archives are counted as remaining and the context error is returned.
func (e *Engine) Extract(ctx context.Context, job Job) (Result, error) {
	ctx = slogutil.WithJob(ctx, job.ID)

	var res Result

	done, err := e.store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load progress: %w", err)
	}

	tracker := progress.NewTracker(e.reporter, job.ID, job.TotalSize(), 0, 100)
	var base int64

	e.log.InfoContext(ctx, "Starting extraction",
		"destination", job.Destination,
		"archives", len(job.Archives),
		"already_done", len(done))

	for i, ja := range job.Archives {
		if err := ctx.Err(); err != nil {
			res.Remaining += len(job.Archives) - i
			return res, err
		}

		actx := slogutil.WithArchive(ctx, ja.Name)

		if _, ok := done[ja.Name]; ok {
			res.Skipped++
			base += ja.Size
			tracker.Update(base)
			e.log.DebugContext(actx, "Archive already extracted")
			continue
		}

		stats, err := e.extractArchive(actx, ja, func(written int64) {
			tracker.Update(base + written)
		})
		res.EntriesWritten += stats.entries
		res.EntriesFiltered += stats.filtered
		res.BytesWritten += stats.bytes

		if err == nil {
			// Recorded before the next archive starts so a crash never loses it.
			err = e.store.Append(ctx, ja.Name)
			if err != nil {
				err = fmt.Errorf("failed to record progress: %w", err)
			}
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Remaining += len(job.Archives) - i
				e.log.WarnContext(actx, "Extraction interrupted", "remaining", res.Remaining)
				return res, ctxErr
			}

			res.Failed++
			res.Failures = append(res.Failures, Failure{Archive: ja.Name, Err: err})
			e.log.ErrorContext(actx, "Archive extraction failed", "error", err)
		} else {
			res.Extracted++
			done[ja.Name] = struct{}{}
			e.log.InfoContext(actx, "Archive extracted",
				"entries", stats.entries,
				"filtered", stats.filtered,
				"bytes", stats.bytes)
		}

		// The listed size can be below what was actually written.
		base += max(ja.Size, stats.bytes)
		tracker.Update(base)
	}

	if res.Complete() {
		if err := e.store.Clear(ctx); err != nil {
			e.log.WarnContext(ctx, "Failed to clear progress", "error", err)
		} else {
			res.ProgressCleared = true
		}
	}

	e.log.InfoContext(ctx, "Extraction finished",
		"extracted", res.Extracted,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"bytes", res.BytesWritten)

	return res, nil
}

func (e *Engine) extractArchive(ctx context.Context, ja JobArchive, onProgress func(int64)) (archiveStats, error) {
	var stats archiveStats

	err := e.src.Walk(ctx, ja.Path, func(entry archive.Entry, open archive.OpenFunc) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir {
			return nil
		}

		if !ja.Filter.Keep(entry.Path) {
			stats.filtered++
			return nil
		}

		if archive.IsUnsafePath(entry.Path) {
			return apperrors.NewEntryWriteError(ja.Name, entry.Path, apperrors.ErrPathOutsideRoot)
		}

		if entry.Path == e.store.Path() {
			e.log.WarnContext(ctx, "Skipping entry that collides with the progress file", "entry", entry.Path)
			return nil
		}

		start := stats.bytes
		n, err := e.writeEntry(ctx, entry, open, func(total int64) {
			onProgress(start + total)
		})
		stats.bytes += n
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return apperrors.NewEntryWriteError(ja.Name, entry.Path, err)
		}

		stats.entries++
		return nil
	})

	return stats, err
}

// writeEntry creates or truncates the target file and copies the entry data into it.
func (e *Engine) writeEntry(ctx context.Context, entry archive.Entry, open archive.OpenFunc, onChunk func(int64)) (int64, error) {
	if open == nil {
		return 0, fmt.Errorf("no data for entry")
	}

	target := filepath.FromSlash(entry.Path)
	if dir := filepath.Dir(target); dir != "." {
		if err := e.dst.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	rc, err := open()
	if err != nil {
		return 0, fmt.Errorf("failed to open entry: %w", err)
	}
	defer rc.Close()

	f, err := e.dst.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := utils.CopyWithCtx(ctx, f, rc, onChunk)
	if err != nil {
		_ = f.Close()
		return n, fmt.Errorf("failed to copy entry data: %w", err)
	}

	if err := f.Close(); err != nil {
		return n, fmt.Errorf("failed to close file: %w", err)
	}

	return n, nil
}
