// Package classifier maps archive entry paths to logical items (for example one
// game inside a bundled laserdisc archive) and aggregates their sizes.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// ItemGroup is the capture group name that carries the item id.
const ItemGroup = "item"

// Rule extracts an item id from a matching entry path.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	group   int
}

// RuleSpec is the uncompiled form of a Rule, as found in configuration.
type RuleSpec struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
}

// NewRule compiles pattern into a Rule. The item id is taken from the group named
// "item" or, when there is none, from the first capture group.
func NewRule(name, pattern string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", name, err)
	}

	group := re.SubexpIndex(ItemGroup)
	if group < 0 {
		if re.NumSubexp() == 0 {
			return Rule{}, fmt.Errorf("rule %q: pattern %q has no capture group for the item id", name, pattern)
		}
		group = 1
	}

	return Rule{Name: name, Pattern: re, group: group}, nil
}

// MustRule is like NewRule but panics on error. Intended for tests and fixed rule tables.
func MustRule(name, pattern string) Rule {
	r, err := NewRule(name, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// match returns the item id of path, if the rule applies.
func (r Rule) match(path string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(path)
	if m == nil || r.group >= len(m) || m[r.group] == "" {
		return "", false
	}
	return m[r.group], true
}

// RuleSet is an ordered rule list. The first matching rule wins, so order is
// part of the classification result.
type RuleSet struct {
	Rules    []Rule
	FoldCase bool
}

// CompileRules builds a RuleSet from configuration specs, preserving their order.
func CompileRules(specs []RuleSpec, foldCase bool) (RuleSet, error) {
	rs := RuleSet{Rules: make([]Rule, 0, len(specs)), FoldCase: foldCase}
	for i, spec := range specs {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		r, err := NewRule(name, spec.Pattern)
		if err != nil {
			return RuleSet{}, err
		}
		rs.Rules = append(rs.Rules, r)
	}
	return rs, nil
}

// Empty reports whether the set has no rules.
func (rs RuleSet) Empty() bool {
	return len(rs.Rules) == 0
}

// ItemOf returns the item id for an entry path. Paths are matched with forward slashes.
func (rs RuleSet) ItemOf(path string) (string, bool) {
	p := strings.ReplaceAll(path, "\\", "/")
	for _, r := range rs.Rules {
		if id, ok := r.match(p); ok {
			return rs.normalizeID(id), true
		}
	}
	return "", false
}

// NormalizeID applies the set's id normalisation to an externally supplied id
// (preset members, filter allow-lists).
func (rs RuleSet) NormalizeID(id string) string {
	return rs.normalizeID(id)
}

func (rs RuleSet) normalizeID(id string) string {
	if !rs.FoldCase {
		return id
	}
	return cases.Fold().String(id)
}
