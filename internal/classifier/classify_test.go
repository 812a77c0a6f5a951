package classifier

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/javi11/romdeploy/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func romRules() RuleSet {
	return RuleSet{Rules: []Rule{MustRule("roms", `^roms/(?P<item>[^/]+)\.zip$`)}}
}

func TestClassify_PackScenario(t *testing.T) {
	entries := []archive.Entry{
		{Path: "roms/mario.zip", Size: 10},
		{Path: "roms/luigi.zip", Size: 20},
		{Path: "config/shared.ini", Size: 5},
	}

	b := Classify(entries, romRules())

	assert.Equal(t, map[string]int64{"mario": 10, "luigi": 20}, b.Items)
	assert.Equal(t, int64(5), b.Shared)
	assert.Equal(t, []string{"luigi", "mario"}, b.ItemIDs())
	assert.Equal(t, int64(35), b.Total())
}

func TestClassify_IgnoresDirectoriesAndEmptyEntries(t *testing.T) {
	entries := []archive.Entry{
		{Path: "roms/", IsDir: true},
		{Path: "roms/empty.zip", Size: 0},
		{Path: "marker.txt", Size: 0},
		{Path: "roms/kong.zip", Size: 7},
	}

	b := Classify(entries, romRules())

	assert.Equal(t, map[string]int64{"kong": 7}, b.Items)
	assert.Equal(t, int64(0), b.Shared)
}

func TestClassify_FirstMatchingRuleWins(t *testing.T) {
	entries := []archive.Entry{
		{Path: "daphne/vldp/lair/lair.m2v", Size: 100},
	}

	byDir := MustRule("by-dir", `^daphne/vldp/(?P<item>[^/]+)/`)
	byFile := MustRule("by-file", `^daphne/vldp/[^/]+/(?P<item>[^/.]+)\.m2v$`)

	first := Classify(entries, RuleSet{Rules: []Rule{byDir, byFile}})
	second := Classify(entries, RuleSet{Rules: []Rule{byFile, byDir}})

	assert.Equal(t, map[string]int64{"lair": 100}, first.Items)
	assert.Equal(t, map[string]int64{"lair": 100}, second.Items)

	other := []archive.Entry{{Path: "daphne/vldp/ace/ace_intro.m2v", Size: 3}}
	assert.Equal(t, map[string]int64{"ace": 3}, Classify(other, RuleSet{Rules: []Rule{byDir, byFile}}).Items)
	assert.Equal(t, map[string]int64{"ace_intro": 3}, Classify(other, RuleSet{Rules: []Rule{byFile, byDir}}).Items)
}

func TestClassify_BackslashPaths(t *testing.T) {
	b := Classify([]archive.Entry{{Path: `roms\tron.zip`, Size: 4}}, romRules())
	assert.Equal(t, map[string]int64{"tron": 4}, b.Items)
}

func TestClassify_FoldCase(t *testing.T) {
	rules := romRules()
	rules.FoldCase = true

	b := Classify([]archive.Entry{
		{Path: "roms/Mario.zip", Size: 1},
		{Path: "roms/MARIO.zip", Size: 2},
	}, rules)

	assert.Equal(t, map[string]int64{"mario": 3}, b.Items)
}

func TestClassifyArchive_EstimatedIsAllShared(t *testing.T) {
	a := &archive.Archive{Name: "broken.zip", CompressedSize: 100, Estimated: true}
	b := ClassifyArchive(a, romRules())

	assert.Empty(t, b.Items)
	assert.Equal(t, int64(105), b.Shared)
}

// randomEntries generates a mix of item, shared, empty and directory entries.
func randomEntries(r *rand.Rand, n int) []archive.Entry {
	prefixes := []string{"roms/", "daphne/vldp/", "daphne/framefile/", "config/", "themes/", ""}
	entries := make([]archive.Entry, 0, n)
	for i := 0; i < n; i++ {
		prefix := prefixes[r.Intn(len(prefixes))]
		switch r.Intn(6) {
		case 0:
			entries = append(entries, archive.Entry{Path: fmt.Sprintf("%sdir%d/", prefix, i), IsDir: true})
		case 1:
			entries = append(entries, archive.Entry{Path: fmt.Sprintf("%sempty%d.dat", prefix, i)})
		default:
			item := fmt.Sprintf("game%d", r.Intn(8))
			entries = append(entries, archive.Entry{
				Path: fmt.Sprintf("%s%s/file%d.zip", prefix, item, i),
				Size: r.Int63n(1 << 20),
			})
			entries = append(entries, archive.Entry{
				Path: fmt.Sprintf("%s%s.zip", prefix, item),
				Size: r.Int63n(1 << 10),
			})
		}
	}
	return entries
}

func TestClassify_SizeConservation(t *testing.T) {
	ruleSets := map[string]RuleSet{
		"none": {},
		"roms": romRules(),
		"daphne": {Rules: []Rule{
			MustRule("vldp", `^daphne/vldp/([^/]+)/`),
			MustRule("framefile", `^daphne/framefile/(?P<item>[^/]+)/`),
		}},
		"catch-all": {Rules: []Rule{MustRule("any", `^([^/]+)/`)}},
		"overlapping": {Rules: []Rule{
			MustRule("file", `/(?P<item>game\d)\.zip$`),
			MustRule("dir", `(game\d)/`),
		}},
	}

	r := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		entries := randomEntries(r, 1+r.Intn(200))

		var want int64
		for _, e := range entries {
			if !e.IsDir && e.Size > 0 {
				want += e.Size
			}
		}

		for name, rules := range ruleSets {
			b := Classify(entries, rules)

			var items int64
			for _, size := range b.Items {
				items += size
			}
			require.Equal(t, want, items+b.Shared, "round %d rules %s", round, name)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	entries := randomEntries(r, 150)
	rules := RuleSet{Rules: []Rule{MustRule("dir", `(game\d)/`)}}

	first := Classify(entries, rules)
	second := Classify(entries, rules)

	assert.Equal(t, first, second)
}

func TestNewRule_Errors(t *testing.T) {
	_, err := NewRule("bad", `roms/(`)
	assert.Error(t, err)

	_, err = NewRule("no-group", `^roms/.*\.zip$`)
	assert.Error(t, err)

	r, err := NewRule("unnamed", `^roms/([^/]+)\.zip$`)
	require.NoError(t, err)
	id, ok := RuleSet{Rules: []Rule{r}}.ItemOf("roms/pacman.zip")
	assert.True(t, ok)
	assert.Equal(t, "pacman", id)
}

func TestCompileRules_PreservesOrder(t *testing.T) {
	rs, err := CompileRules([]RuleSpec{
		{Pattern: `^a/([^/]+)/`},
		{Name: "second", Pattern: `^b/([^/]+)/`},
	}, false)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 2)
	assert.Equal(t, "rule-1", rs.Rules[0].Name)
	assert.Equal(t, "second", rs.Rules[1].Name)
}

func TestPresets(t *testing.T) {
	rules := romRules()
	b := Classify([]archive.Entry{
		{Path: "roms/mario.zip", Size: 10},
		{Path: "roms/luigi.zip", Size: 20},
		{Path: "roms/peach.zip", Size: 40},
		{Path: "config/shared.ini", Size: 5},
	}, rules)

	iconic := Preset{Name: "iconic", Items: []string{"mario", "peach", "bowser", "mario"}}

	assert.Equal(t, []string{"mario", "peach"}, b.PresetMembers(iconic, rules))
	assert.Equal(t, int64(55), b.PresetSize(iconic, rules))

	empty := Preset{Name: "none-present", Items: []string{"zelda"}}
	assert.Empty(t, b.PresetMembers(empty, rules))
	assert.Equal(t, int64(5), b.PresetSize(empty, rules))
}
