// Package selection drives the include/exclude decisions over selectable units
// (whole archives, or items inside a bundle) and the trim-to-fit negotiation
// against the destination space budget.
package selection

import (
	"sort"
)

// Unit is one selectable thing with a known size.
type Unit struct {
	// Index is the 1-based number shown to the operator.
	Index int    `json:"index"`
	Key   string `json:"key"`
	Label string `json:"label"`
	Size  int64  `json:"size"`
	// Reclaimable is the space already used at the destination by files this unit overwrites.
	Reclaimable int64 `json:"reclaimable,omitempty"`
	// Required units are always included and never offered for trimming.
	Required bool `json:"required,omitempty"`
}

// NumberUnits assigns 1-based indices in slice order.
func NumberUnits(units []Unit) []Unit {
	out := make([]Unit, len(units))
	for i, u := range units {
		u.Index = i + 1
		out[i] = u
	}
	return out
}

// Set is the include/exclude decision over a fixed list of units. A unit is
// either included or excluded; totals are always computed from the include set.
type Set struct {
	units    []Unit
	byIndex  map[int]int
	included map[int]struct{}
}

// NewSet creates a set over units with everything included.
func NewSet(units []Unit) *Set {
	s := &Set{
		units:    units,
		byIndex:  make(map[int]int, len(units)),
		included: make(map[int]struct{}, len(units)),
	}
	for i, u := range units {
		s.byIndex[u.Index] = i
		s.included[u.Index] = struct{}{}
	}
	return s
}

// Units returns every unit in display order.
func (s *Set) Units() []Unit {
	return s.units
}

// Unit returns the unit with the given index.
func (s *Set) Unit(index int) (Unit, bool) {
	i, ok := s.byIndex[index]
	if !ok {
		return Unit{}, false
	}
	return s.units[i], true
}

// Optional returns the units that are not required.
func (s *Set) Optional() []Unit {
	out := make([]Unit, 0, len(s.units))
	for _, u := range s.units {
		if !u.Required {
			out = append(out, u)
		}
	}
	return out
}

// IsIncluded reports whether index is in the include set.
func (s *Set) IsIncluded(index int) bool {
	_, ok := s.included[index]
	return ok
}

// Include adds units to the include set. Unknown indices are ignored.
func (s *Set) Include(indices ...int) {
	for _, idx := range indices {
		if _, ok := s.byIndex[idx]; ok {
			s.included[idx] = struct{}{}
		}
	}
}

// Exclude removes units from the include set. Required units stay included.
// It returns the indices that were actually excluded.
func (s *Set) Exclude(indices ...int) []int {
	var removed []int
	for _, idx := range indices {
		u, ok := s.Unit(idx)
		if !ok || u.Required {
			continue
		}
		if _, inc := s.included[idx]; inc {
			delete(s.included, idx)
			removed = append(removed, idx)
		}
	}
	return removed
}

// Apply makes the include set exactly indices plus every required unit.
func (s *Set) Apply(indices []int) {
	s.included = make(map[int]struct{}, len(indices))
	for _, u := range s.units {
		if u.Required {
			s.included[u.Index] = struct{}{}
		}
	}
	s.Include(indices...)
}

// Included returns the included units in display order.
func (s *Set) Included() []Unit {
	out := make([]Unit, 0, len(s.included))
	for _, u := range s.units {
		if s.IsIncluded(u.Index) {
			out = append(out, u)
		}
	}
	return out
}

// Excluded returns the excluded units in display order.
func (s *Set) Excluded() []Unit {
	out := make([]Unit, 0, len(s.units)-len(s.included))
	for _, u := range s.units {
		if !s.IsIncluded(u.Index) {
			out = append(out, u)
		}
	}
	return out
}

// IncludedSize is the total size of the included units.
func (s *Set) IncludedSize() int64 {
	var total int64
	for _, u := range s.Included() {
		total += u.Size
	}
	return total
}

// ExcludedSize is the total size of the excluded units (the savings).
func (s *Set) ExcludedSize() int64 {
	var total int64
	for _, u := range s.Excluded() {
		total += u.Size
	}
	return total
}

// IncludedReclaimable is the destination space the included units will reuse.
func (s *Set) IncludedReclaimable() int64 {
	var total int64
	for _, u := range s.Included() {
		total += u.Reclaimable
	}
	return total
}

// IncludedKeys returns the keys of the included units in display order.
func (s *Set) IncludedKeys() []string {
	inc := s.Included()
	keys := make([]string, len(inc))
	for i, u := range inc {
		keys[i] = u.Key
	}
	return keys
}

// RemovableBySize returns included, non-required units largest first. Ties keep
// display order.
func (s *Set) RemovableBySize() []Unit {
	var out []Unit
	for _, u := range s.Included() {
		if !u.Required {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Size > out[j].Size
	})
	return out
}
