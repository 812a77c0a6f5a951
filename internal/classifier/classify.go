package classifier

import (
	"sort"

	"github.com/javi11/romdeploy/internal/archive"
)

// Breakdown is the per-item size attribution of one archive.
type Breakdown struct {
	Items  map[string]int64 `json:"items"`
	Shared int64            `json:"shared"`
}

// Classify attributes every non-empty file entry to exactly one item or to the
// shared bucket. Zero-length entries and directory markers are ignored.
func Classify(entries []archive.Entry, rules RuleSet) Breakdown {
	b := Breakdown{Items: make(map[string]int64)}
	for _, e := range entries {
		if e.IsDir || e.Size <= 0 {
			continue
		}
		if id, ok := rules.ItemOf(e.Path); ok {
			b.Items[id] += e.Size
			continue
		}
		b.Shared += e.Size
	}
	return b
}

// ClassifyArchive classifies an inspected archive. Estimated archives have no
// entries, so their whole size is shared.
func ClassifyArchive(a *archive.Archive, rules RuleSet) Breakdown {
	if a.Estimated {
		return Breakdown{Items: map[string]int64{}, Shared: a.Size()}
	}
	return Classify(a.Entries, rules)
}

// Total returns shared plus all item sizes.
func (b Breakdown) Total() int64 {
	total := b.Shared
	for _, size := range b.Items {
		total += size
	}
	return total
}

// ItemIDs returns the item ids in lexical order.
func (b Breakdown) ItemIDs() []string {
	ids := make([]string, 0, len(b.Items))
	for id := range b.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelectedSize returns shared plus the sizes of the given present items.
func (b Breakdown) SelectedSize(ids []string) int64 {
	total := b.Shared
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		total += b.Items[id]
	}
	return total
}
