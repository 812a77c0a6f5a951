package catalog

import (
	"fmt"

	"github.com/javi11/romdeploy/internal/classifier"
	"github.com/javi11/romdeploy/internal/config"
	"github.com/woozymasta/pathrules"
)

// Bundle binds archives matching a path pattern to item rules and presets.
type Bundle struct {
	Name    string
	Rules   classifier.RuleSet
	Presets []classifier.Preset
	matcher *pathrules.Matcher
}

// NewBundle compiles a bundle from its configuration.
func NewBundle(cfg config.BundleConfig, caseInsensitive bool) (*Bundle, error) {
	specs := make([]classifier.RuleSpec, len(cfg.Rules))
	for i, r := range cfg.Rules {
		specs[i] = classifier.RuleSpec{Name: r.Name, Pattern: r.Pattern}
	}

	rules, err := classifier.CompileRules(specs, cfg.FoldCase)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", cfg.Name, err)
	}

	matcher, err := pathrules.NewMatcher([]pathrules.Rule{
		{Action: pathrules.ActionInclude, Pattern: cfg.Match},
	}, pathrules.MatcherOptions{
		CaseInsensitive: caseInsensitive,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("bundle %s: compile match: %w", cfg.Name, err)
	}

	presets := make([]classifier.Preset, len(cfg.Presets))
	for i, p := range cfg.Presets {
		presets[i] = classifier.Preset{Name: p.Name, Items: p.Items}
	}

	return &Bundle{
		Name:    cfg.Name,
		Rules:   rules,
		Presets: presets,
		matcher: matcher,
	}, nil
}

// NewBundles compiles every configured bundle in order.
func NewBundles(cfgs []config.BundleConfig, caseInsensitive bool) ([]*Bundle, error) {
	bundles := make([]*Bundle, 0, len(cfgs))
	for _, c := range cfgs {
		b, err := NewBundle(c, caseInsensitive)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// Matches reports whether the archive at rel belongs to the bundle.
func (b *Bundle) Matches(rel string) bool {
	return b.matcher.Included(rel, false)
}
