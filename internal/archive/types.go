package archive

import (
	"io"
	"math"
	"sort"
)

// Format identifies an archive container format.
type Format string

const (
	FormatUnknown  Format = ""
	FormatZip      Format = "zip"
	FormatSevenZip Format = "7z"
	FormatRar      Format = "rar"
)

// EstimateFactor is applied to the compressed length when the directory cannot be read.
const EstimateFactor = 1.05

// Entry is one record of an archive directory.
type Entry struct {
	// Path is relative and always uses forward slashes.
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir,omitempty"`
}

// Archive is a compressed container discovered on the source tree.
type Archive struct {
	Path           string  `json:"path"`
	Name           string  `json:"name"`
	Format         Format  `json:"format"`
	CompressedSize int64   `json:"compressed_size"`
	Entries        []Entry `json:"entries"`
	// Estimated is set when the directory was unreadable and Entries is empty.
	Estimated bool `json:"estimated,omitempty"`
}

// TotalUncompressedSize returns the sum of entry lengths read from the directory.
func (a *Archive) TotalUncompressedSize() int64 {
	var total int64
	for _, e := range a.Entries {
		if e.IsDir {
			continue
		}
		total += e.Size
	}
	return total
}

// EstimatedSize returns the fallback size derived from the compressed length.
func (a *Archive) EstimatedSize() int64 {
	return EstimateSize(a.CompressedSize)
}

// Size returns the extracted size, falling back to the estimate for unreadable archives.
func (a *Archive) Size() int64 {
	if a.Estimated {
		return a.EstimatedSize()
	}
	return a.TotalUncompressedSize()
}

// FileEntries returns the non-directory entries in archive order.
func (a *Archive) FileEntries() []Entry {
	out := make([]Entry, 0, len(a.Entries))
	for _, e := range a.Entries {
		if !e.IsDir {
			out = append(out, e)
		}
	}
	return out
}

// LargestEntries returns up to n file entries ordered by size descending.
func (a *Archive) LargestEntries(n int) []Entry {
	files := a.FileEntries()
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Size > files[j].Size
	})
	if n > 0 && len(files) > n {
		files = files[:n]
	}
	return files
}

// EstimateSize returns compressed * EstimateFactor rounded up.
func EstimateSize(compressed int64) int64 {
	if compressed <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(compressed) * EstimateFactor))
}

// OpenFunc opens the data of the entry currently being walked.
// The returned reader is only valid until the walk callback returns.
type OpenFunc func() (io.ReadCloser, error)

// WalkFunc is called once per entry, in archive order.
type WalkFunc func(entry Entry, open OpenFunc) error
