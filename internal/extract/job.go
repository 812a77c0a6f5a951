// Package extract performs resumable, per-archive extraction of a finalized
// selection into a destination tree.
package extract

import (
	"github.com/javi11/romdeploy/internal/classifier"
)

// Filter restricts extraction of a bundle archive to an allow-set of items.
// Entries that match no item (shared data) are always extracted.
type Filter struct {
	Rules classifier.RuleSet
	Allow map[string]struct{}
}

// NewFilter builds a filter allowing ids under rules.
func NewFilter(rules classifier.RuleSet, ids []string) *Filter {
	allow := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allow[rules.NormalizeID(id)] = struct{}{}
	}
	return &Filter{Rules: rules, Allow: allow}
}

// Keep reports whether the entry at path passes the filter.
func (f *Filter) Keep(path string) bool {
	if f == nil {
		return true
	}
	id, ok := f.Rules.ItemOf(path)
	if !ok {
		return true
	}
	_, allowed := f.Allow[id]
	return allowed
}

// JobArchive is one archive of a job, optionally filtered to a subset of items.
type JobArchive struct {
	// Path locates the archive on the source filesystem.
	Path string
	// Name identifies the archive in the progress store.
	Name   string
	Filter *Filter
	// Size is the expected number of bytes written, used for progress only.
	Size int64
}

// Job is one run over an ordered archive list targeting one destination.
type Job struct {
	ID          string
	Destination string
	Archives    []JobArchive
}

// TotalSize sums the expected bytes of every archive in the job.
func (j Job) TotalSize() int64 {
	var total int64
	for _, a := range j.Archives {
		total += a.Size
	}
	return total
}

// Failure names an archive that could not be extracted.
type Failure struct {
	Archive string
	Err     error
}

// Result summarises a job run.
type Result struct {
	Extracted int
	Skipped   int
	Failed    int
	// Remaining counts archives not attempted because the run was interrupted.
	Remaining int

	EntriesWritten  int
	EntriesFiltered int
	BytesWritten    int64

	Failures []Failure
	// ProgressCleared is set when the job finished completely and the sidecar was removed.
	ProgressCleared bool
}

// Complete reports whether every archive is extracted or was already done.
func (r Result) Complete() bool {
	return r.Failed == 0 && r.Remaining == 0
}

// FailedNames returns the names of the failed archives.
func (r Result) FailedNames() []string {
	names := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		names[i] = f.Archive
	}
	return names
}
