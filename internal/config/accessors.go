package config

import "time"

// Cache config accessor methods with default fallbacks.

// GetCacheEnabled returns whether the persistent inspection cache is used.
func (c *Config) GetCacheEnabled() bool {
	if c.Cache.Enabled == nil {
		return true // Default: enabled
	}
	return *c.Cache.Enabled
}

// GetCachePath returns the inspection cache database path.
func (c *Config) GetCachePath() string {
	if c.Cache.Path == "" {
		return DefaultCachePath()
	}
	return c.Cache.Path
}

// GetCacheSize returns the in-memory cache size with a default fallback.
func (c *Config) GetCacheSize() int {
	if c.Cache.Size <= 0 {
		return 1024 // Default: 1024 archives
	}
	return c.Cache.Size
}

// GetCachePruneAfter returns the age after which cached listings are dropped.
func (c *Config) GetCachePruneAfter() time.Duration {
	if c.Cache.PruneAfter <= 0 {
		return 30 * 24 * time.Hour // Default: 30 days
	}
	return c.Cache.PruneAfter
}

// Selection config accessor methods.

// GetMaxCandidates returns how many trim candidates are shown, 0 meaning all.
func (c *Config) GetMaxCandidates() int {
	if c.Selection.MaxCandidates < 0 {
		return 0
	}
	return c.Selection.MaxCandidates
}

// GetMaxInvalidAnswers returns how often an invalid answer is re-asked.
func (c *Config) GetMaxInvalidAnswers() int {
	if c.Selection.MaxInvalidAnswers <= 0 {
		return 5 // Default: 5 attempts
	}
	return c.Selection.MaxInvalidAnswers
}

// GetScanWorkers returns the inspection concurrency with a default fallback.
func (c *Config) GetScanWorkers() int {
	if c.Scan.Workers <= 0 {
		return 4
	}
	return c.Scan.Workers
}

// Bundle returns the bundle named name.
func (c *Config) Bundle(name string) (BundleConfig, bool) {
	for _, b := range c.Bundles {
		if b.Name == name {
			return b, true
		}
	}
	return BundleConfig{}, false
}
