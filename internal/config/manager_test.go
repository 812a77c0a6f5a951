package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.GetCacheEnabled())
	assert.Equal(t, 20, cfg.GetMaxCandidates())
	assert.Equal(t, 5, cfg.GetMaxInvalidAnswers())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{
			name:        "zero workers",
			mutate:      func(c *Config) { c.Scan.Workers = 0 },
			errContains: "scan workers",
		},
		{
			name:        "no include patterns",
			mutate:      func(c *Config) { c.Scan.Include = nil },
			errContains: "scan include",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Log.Level = "loud" },
			errContains: "log.level",
		},
		{
			name:        "negative candidates",
			mutate:      func(c *Config) { c.Selection.MaxCandidates = -1 },
			errContains: "max_candidates",
		},
		{
			name: "bundle without rules",
			mutate: func(c *Config) {
				c.Bundles = []BundleConfig{{Name: "games", Match: "games.zip"}}
			},
			errContains: "at least one rule",
		},
		{
			name: "bundle with bad regex",
			mutate: func(c *Config) {
				c.Bundles = []BundleConfig{{
					Name:  "games",
					Match: "games.zip",
					Rules: []ItemRuleConfig{{Pattern: "(unclosed"}},
				}}
			},
			errContains: "rule 0",
		},
		{
			name: "duplicate bundle names",
			mutate: func(c *Config) {
				b := BundleConfig{Name: "games", Match: "a.zip", Rules: []ItemRuleConfig{{Pattern: "^(x)"}}}
				c.Bundles = []BundleConfig{b, b}
			},
			errContains: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadConfig_MergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source: /mnt/builds
destination: /media/usb
scan:
  include: ["*.zip"]
  required: ["base/**"]
  workers: 2
selection:
  strict_expressions: true
cache:
  prune_after: 48h
bundles:
  - name: laserdisc
    match: "laserdisc/*.zip"
    fold_case: true
    rules:
      - name: games
        pattern: "^daphne/(?P<item>[^/]+)/"
    presets:
      - name: iconic
        items: [lair, ace]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/builds", cfg.Source)
	assert.Equal(t, []string{"base/**"}, cfg.Scan.Required)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.True(t, cfg.Selection.StrictExpressions)
	assert.Equal(t, 20, cfg.Selection.MaxCandidates)
	assert.Equal(t, 48*time.Hour, cfg.GetCachePruneAfter())
	assert.Equal(t, "info", cfg.Log.Level)

	b, ok := cfg.Bundle("laserdisc")
	require.True(t, ok)
	assert.True(t, b.FoldCase)
	require.Len(t, b.Rules, 1)
	assert.Equal(t, "games", b.Rules[0].Name)
	assert.Equal(t, []string{"lair", "ace"}, b.Presets[0].Items)
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scan, cfg.Scan)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Destination = "/media/usb"
	cfg.Bundles = []BundleConfig{{
		Name:  "laserdisc",
		Match: "laserdisc/*.zip",
		Rules: []ItemRuleConfig{{Name: "games", Pattern: "^daphne/(?P<item>[^/]+)/"}},
	}}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/media/usb", loaded.Destination)
	require.Len(t, loaded.Bundles, 1)
	assert.Equal(t, cfg.Bundles[0].Match, loaded.Bundles[0].Match)
	assert.Equal(t, cfg.Bundles[0].Rules, loaded.Bundles[0].Rules)
	assert.Equal(t, cfg.Cache.PruneAfter, loaded.Cache.PruneAfter)
}

func TestSaveToFile_RequiresPath(t *testing.T) {
	assert.Error(t, SaveToFile(DefaultConfig(), ""))
}
