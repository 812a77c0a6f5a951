package classifier

// Preset is a curated list of item ids, e.g. "iconic titles only".
type Preset struct {
	Name  string   `yaml:"name" mapstructure:"name"`
	Items []string `yaml:"items" mapstructure:"items"`
}

// PresetMembers returns the members of p present in the breakdown, in preset
// order. Absent ids are skipped silently.
func (b Breakdown) PresetMembers(p Preset, rules RuleSet) []string {
	members := make([]string, 0, len(p.Items))
	seen := make(map[string]struct{}, len(p.Items))
	for _, raw := range p.Items {
		id := rules.NormalizeID(raw)
		if _, ok := b.Items[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}

// PresetSize is the shared size plus the sizes of the preset members present in
// this archive.
func (b Breakdown) PresetSize(p Preset, rules RuleSet) int64 {
	return b.SelectedSize(b.PresetMembers(p, rules))
}
