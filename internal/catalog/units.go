package catalog

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/javi11/romdeploy/internal/archive"
	"github.com/javi11/romdeploy/internal/extract"
	"github.com/javi11/romdeploy/internal/selection"
	"github.com/spf13/afero"
)

// SharedKey is the unit key of a bundle's shared data.
const SharedKey = ""

// Units builds one unit per source in order. dst may be nil when nothing is
// known about the destination.
func Units(sources []Source, dst afero.Fs) []selection.Unit {
	units := make([]selection.Unit, 0, len(sources))
	for _, src := range sources {
		label := src.Rel
		if src.Archive.Estimated {
			label += " (estimated)"
		}
		units = append(units, selection.Unit{
			Key:         src.Rel,
			Label:       label,
			Size:        src.Size(),
			Reclaimable: Overwritten(dst, src.Archive.FileEntries()),
			Required:    src.Required,
		})
	}
	return selection.NumberUnits(units)
}

// ItemUnits builds the units of a bundle source: a required unit for the
// shared data followed by one unit per item sorted by id.
func ItemUnits(src Source, dst afero.Fs) []selection.Unit {
	rules := src.Bundle.Rules
	b := src.Breakdown

	reclaim := make(map[string]int64)
	if dst != nil {
		for _, e := range src.Archive.FileEntries() {
			if e.Size == 0 {
				continue
			}
			id, _ := rules.ItemOf(e.Path)
			reclaim[id] += existingSize(dst, e.Path)
		}
	}

	units := make([]selection.Unit, 0, len(b.Items)+1)
	if b.Shared > 0 {
		units = append(units, selection.Unit{
			Key:         SharedKey,
			Label:       "shared data",
			Size:        b.Shared,
			Reclaimable: reclaim[SharedKey],
			Required:    true,
		})
	}
	for _, id := range b.ItemIDs() {
		units = append(units, selection.Unit{
			Key:         id,
			Label:       id,
			Size:        b.Items[id],
			Reclaimable: reclaim[id],
		})
	}
	return selection.NumberUnits(units)
}

// PresetChoice is a preset rendered as a selection expression over item units.
type PresetChoice struct {
	Name       string
	Expression string
	Members    int
	Size       int64
}

// PresetChoices resolves the bundle presets against units built by ItemUnits.
// Presets with no member present in the archive are left out.
func PresetChoices(src Source, units []selection.Unit) []PresetChoice {
	byKey := make(map[string]int, len(units))
	for _, u := range units {
		byKey[u.Key] = u.Index
	}

	var choices []PresetChoice
	for _, p := range src.Bundle.Presets {
		members := src.Breakdown.PresetMembers(p, src.Bundle.Rules)
		if len(members) == 0 {
			continue
		}
		parts := make([]string, 0, len(members))
		for _, id := range members {
			if idx, ok := byKey[id]; ok {
				parts = append(parts, strconv.Itoa(idx))
			}
		}
		choices = append(choices, PresetChoice{
			Name:       p.Name,
			Expression: strings.Join(parts, ","),
			Members:    len(members),
			Size:       src.Breakdown.PresetSize(p, src.Bundle.Rules),
		})
	}
	return choices
}

// Overwritten returns the bytes currently used at the destination by files the
// entries would overwrite.
func Overwritten(dst afero.Fs, entries []archive.Entry) int64 {
	if dst == nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		total += existingSize(dst, e.Path)
	}
	return total
}

func existingSize(dst afero.Fs, p string) int64 {
	if dst == nil || archive.IsUnsafePath(p) {
		return 0
	}
	info, err := dst.Stat(filepath.FromSlash(p))
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// Pick is one source chosen for extraction. Items restricts a bundle to those
// item ids; nil extracts the whole archive.
type Pick struct {
	Source Source
	Items  []string
}

// BuildJob turns picks into an extraction job in pick order.
func BuildJob(id, destination string, picks []Pick) extract.Job {
	job := extract.Job{ID: id, Destination: destination}
	for _, p := range picks {
		ja := extract.JobArchive{
			Path: p.Source.Path,
			Name: p.Source.Rel,
			Size: p.Source.Size(),
		}
		if p.Items != nil && p.Source.IsBundle() {
			ja.Filter = extract.NewFilter(p.Source.Bundle.Rules, p.Items)
			ja.Size = p.Source.Breakdown.SelectedSize(p.Items)
		}
		job.Archives = append(job.Archives, ja)
	}
	return job
}

// ItemsFromKeys drops the shared unit key from a negotiated key list.
func ItemsFromKeys(keys []string) []string {
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != SharedKey {
			items = append(items, k)
		}
	}
	return items
}

