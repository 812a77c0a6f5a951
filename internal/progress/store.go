package progress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"
)

// FileName is the sidecar file written directly under the destination root.
const FileName = ".romdeploy-progress"

// Store is the append-only record of archives fully extracted into a destination.
// One archive name per line. A single job owns the store at a time.
type Store struct {
	fs       afero.Fs
	path     string
	attempts uint
	log      *slog.Logger
}

// NewStore creates a store for the destination root represented by fs.
func NewStore(fs afero.Fs) *Store {
	return &Store{
		fs:       fs,
		path:     FileName,
		attempts: 3,
		log:      slog.Default().With("component", "progress-store"),
	}
}

// Path returns the sidecar path relative to the destination root.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a previous run left a progress file behind.
func (s *Store) Exists() (bool, error) {
	return afero.Exists(s.fs, s.path)
}

// Load returns the completed archive names. A missing file is an empty set and
// blank lines are ignored.
func (s *Store) Load(ctx context.Context) (map[string]struct{}, error) {
	done := make(map[string]struct{})

	f, err := s.fs.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return done, nil
		}
		return nil, fmt.Errorf("failed to open progress file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		done[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	s.log.DebugContext(ctx, "Loaded progress", "completed", len(done))

	return done, nil
}

// Completed returns the completed archive names sorted.
func (s *Store) Completed(ctx context.Context) ([]string, error) {
	done, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(done))
	for name := range done {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Append records name as completed. The line is synced to disk before Append
// returns; transient failures are retried.
func (s *Store) Append(ctx context.Context, name string) error {
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("invalid archive name %q", name)
	}

	return retry.Do(
		func() error {
			return s.appendLine(name)
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.WarnContext(ctx, "Retrying progress append", "archive", name, "attempt", n+1, "error", err)
		}),
	)
}

func (s *Store) appendLine(name string) error {
	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open progress file: %w", err)
	}

	if _, err := f.WriteString(name + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to append progress: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync progress file: %w", err)
	}

	return f.Close()
}

// Clear removes the progress file. A missing file is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove progress file: %w", err)
	}
	s.log.DebugContext(ctx, "Cleared progress file")
	return nil
}
