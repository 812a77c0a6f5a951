// Package errors provides shared error types used across multiple packages.
// This package exists to avoid import cycles between the catalog, archive and extract packages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the deployment pipeline. Use errors.Is in callers.
var (
	// ErrArchiveUnreadable means the archive directory could not be parsed or the format is unsupported.
	ErrArchiveUnreadable = errors.New("archive unreadable")
	// ErrEntryWriteFailure means an entry could not be written to the destination.
	ErrEntryWriteFailure = errors.New("entry write failure")
	// ErrPathOutsideRoot means an entry path resolves outside the destination root.
	ErrPathOutsideRoot = errors.New("entry path escapes destination root")
	// ErrSpaceShortfall means the selection does not fit the destination.
	ErrSpaceShortfall = errors.New("selection does not fit destination")
	// ErrUserAbort means the operator asked to quit.
	ErrUserAbort = errors.New("aborted by user")
	// ErrInvalidExpression means a selection expression contained an unusable token.
	ErrInvalidExpression = errors.New("invalid selection expression")
)

// ArchiveError ties a failure to the archive it happened on.
type ArchiveError struct {
	Path  string
	cause error
}

// NewArchiveError creates a new ArchiveError. A nil cause is reported as ErrArchiveUnreadable.
func NewArchiveError(path string, cause error) error {
	if cause == nil {
		cause = ErrArchiveUnreadable
	}
	return &ArchiveError{Path: path, cause: cause}
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.cause)
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *ArchiveError) Unwrap() error {
	return e.cause
}

// Is reports ErrArchiveUnreadable for every ArchiveError.
func (e *ArchiveError) Is(target error) bool {
	return target == ErrArchiveUnreadable
}

// Unreadable wraps cause as an unreadable archive error for path.
func Unreadable(path string, cause error) error {
	if cause == nil {
		return NewArchiveError(path, nil)
	}
	return NewArchiveError(path, fmt.Errorf("%w: %w", ErrArchiveUnreadable, cause))
}

// EntryWriteError is a write failure for a single archive entry.
type EntryWriteError struct {
	Archive string
	Entry   string
	cause   error
}

// NewEntryWriteError creates a new EntryWriteError.
func NewEntryWriteError(archive, entry string, cause error) error {
	return &EntryWriteError{Archive: archive, Entry: entry, cause: cause}
}

// Error implements the error interface.
func (e *EntryWriteError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("write %s from %s: %v", e.Entry, e.Archive, e.cause)
	}
	return fmt.Sprintf("write %s from %s failed", e.Entry, e.Archive)
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *EntryWriteError) Unwrap() error {
	return e.cause
}

// Is reports ErrEntryWriteFailure for every EntryWriteError.
func (e *EntryWriteError) Is(target error) bool {
	return target == ErrEntryWriteFailure
}

// IsUnreadable checks if an error means an archive could not be read.
func IsUnreadable(err error) bool {
	return err != nil && errors.Is(err, ErrArchiveUnreadable)
}

// IsEntryWrite checks if an error is an entry write failure.
func IsEntryWrite(err error) bool {
	if err == nil {
		return false
	}
	var writeErr *EntryWriteError
	return errors.As(err, &writeErr)
}

// IsUserAbort checks if an error is an operator abort.
func IsUserAbort(err error) bool {
	return err != nil && errors.Is(err, ErrUserAbort)
}
