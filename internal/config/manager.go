package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the configuration and cache directories.
const AppName = "romdeploy"

// Config represents the complete application configuration
type Config struct {
	Source      string          `yaml:"source" mapstructure:"source"`
	Destination string          `yaml:"destination" mapstructure:"destination"`
	Scan        ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Bundles     []BundleConfig  `yaml:"bundles" mapstructure:"bundles"`
	Selection   SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Cache       CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Log         LogConfig       `yaml:"log" mapstructure:"log"`
}

// ScanConfig controls which source files are treated as archives.
// Patterns use gitignore syntax relative to the source root.
type ScanConfig struct {
	Include         []string `yaml:"include" mapstructure:"include"`
	Exclude         []string `yaml:"exclude" mapstructure:"exclude"`
	Required        []string `yaml:"required" mapstructure:"required"`   // Always deployed, never offered for trimming
	Workers         int      `yaml:"workers" mapstructure:"workers"`     // Concurrent archive inspections
	CaseInsensitive bool     `yaml:"case_insensitive" mapstructure:"case_insensitive"`
}

// BundleConfig marks archives whose content is selected per item instead of as a whole
type BundleConfig struct {
	Name     string           `yaml:"name" mapstructure:"name"`
	Match    string           `yaml:"match" mapstructure:"match"`
	FoldCase bool             `yaml:"fold_case" mapstructure:"fold_case"`
	Rules    []ItemRuleConfig `yaml:"rules" mapstructure:"rules"`
	Presets  []PresetConfig   `yaml:"presets" mapstructure:"presets"`
}

// ItemRuleConfig is one ordered classification rule. The pattern must have an
// "item" named group or at least one capture group.
type ItemRuleConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
}

// PresetConfig is a curated list of item ids
type PresetConfig struct {
	Name  string   `yaml:"name" mapstructure:"name"`
	Items []string `yaml:"items" mapstructure:"items"`
}

// SelectionConfig controls expression parsing and the negotiation loop
type SelectionConfig struct {
	StrictExpressions bool `yaml:"strict_expressions" mapstructure:"strict_expressions"`
	MaxCandidates     int  `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxInvalidAnswers int  `yaml:"max_invalid_answers" mapstructure:"max_invalid_answers"`
}

// CacheConfig represents the inspection cache configuration
type CacheConfig struct {
	Enabled    *bool         `yaml:"enabled" mapstructure:"enabled"`
	Path       string        `yaml:"path" mapstructure:"path"`
	Size       int           `yaml:"size" mapstructure:"size"`               // In-memory entries
	PruneAfter time.Duration `yaml:"prune_after" mapstructure:"prune_after"` // Drop listings not refreshed for this long
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`               // Log file path (empty = console only)
	Level      string `yaml:"level" mapstructure:"level"`             // Log level (debug, info, warn, error)
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // Max number of old files to keep
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // Compress old log files
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan workers must be greater than 0")
	}

	if len(c.Scan.Include) == 0 {
		return fmt.Errorf("scan include must list at least one pattern")
	}

	if c.Selection.MaxCandidates < 0 {
		return fmt.Errorf("selection max_candidates must be non-negative")
	}

	if c.Selection.MaxInvalidAnswers < 0 {
		return fmt.Errorf("selection max_invalid_answers must be non-negative")
	}

	if c.Cache.Size < 0 {
		return fmt.Errorf("cache size must be non-negative")
	}

	if c.Log.Level != "" && !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log.max_size must be non-negative")
	}

	if c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_age must be non-negative")
	}

	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be non-negative")
	}

	names := make(map[string]struct{}, len(c.Bundles))
	for i, b := range c.Bundles {
		if b.Name == "" {
			return fmt.Errorf("bundle %d: name cannot be empty", i)
		}
		if _, dup := names[b.Name]; dup {
			return fmt.Errorf("bundle %s: duplicate name", b.Name)
		}
		names[b.Name] = struct{}{}

		if b.Match == "" {
			return fmt.Errorf("bundle %s: match cannot be empty", b.Name)
		}
		if len(b.Rules) == 0 {
			return fmt.Errorf("bundle %s: at least one rule is required", b.Name)
		}
		for j, r := range b.Rules {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("bundle %s: rule %d: %w", b.Name, j, err)
			}
		}
		for _, p := range b.Presets {
			if p.Name == "" {
				return fmt.Errorf("bundle %s: preset name cannot be empty", b.Name)
			}
		}
	}

	return nil
}

// DefaultConfigPath returns the config file location under the XDG config home
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultCachePath returns the inspection cache location under the XDG cache home
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, AppName, "inspections.db")
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	cacheEnabled := true

	return &Config{
		Scan: ScanConfig{
			Include:         []string{"*.zip", "*.7z", "*.rar"},
			Exclude:         []string{".*"},
			Required:        []string{},
			Workers:         4,
			CaseInsensitive: true,
		},
		Bundles: []BundleConfig{},
		Selection: SelectionConfig{
			StrictExpressions: false,
			MaxCandidates:     20,
			MaxInvalidAnswers: 5,
		},
		Cache: CacheConfig{
			Enabled:    &cacheEnabled,
			Path:       DefaultCachePath(),
			Size:       1024,
			PruneAfter: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			File:       "",     // Empty = console only
			Level:      "info", // Default log level
			MaxSize:    100,    // 100MB max size
			MaxAge:     30,     // Keep for 30 days
			MaxBackups: 10,     // Keep 10 old files
			Compress:   true,   // Compress old files
		},
	}
}

// SaveToFile saves a configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("no config file path provided")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from file and merges with defaults.
// Without an explicit file the default location is tried and a missing file
// yields the defaults.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigPath()
	}
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if explicit || !missing {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}
