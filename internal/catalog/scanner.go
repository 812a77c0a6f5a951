package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/javi11/romdeploy/internal/classifier"
	"github.com/javi11/romdeploy/internal/config"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"github.com/woozymasta/pathrules"
)

// Scanner finds archives under a source root and inspects them concurrently.
type Scanner struct {
	fs        afero.Fs
	inspector Inspector
	files     *pathrules.Matcher
	required  *pathrules.Matcher
	bundles   []*Bundle
	workers   int
	log       *slog.Logger
}

// NewScanner builds a scanner from the scan configuration. Exclude patterns
// take precedence over include patterns.
func NewScanner(fsys afero.Fs, inspector Inspector, cfg config.ScanConfig, bundles []*Bundle) (*Scanner, error) {
	opts := pathrules.MatcherOptions{
		CaseInsensitive: cfg.CaseInsensitive,
		DefaultAction:   pathrules.ActionExclude,
	}

	rules := make([]pathrules.Rule, 0, len(cfg.Include)+len(cfg.Exclude))
	for _, p := range cfg.Include {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}
	for _, p := range cfg.Exclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p})
	}

	files, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scan rules: %w", err)
	}

	var required *pathrules.Matcher
	if len(cfg.Required) > 0 {
		reqRules := make([]pathrules.Rule, len(cfg.Required))
		for i, p := range cfg.Required {
			reqRules[i] = pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p}
		}
		required, err = pathrules.NewMatcher(reqRules, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to compile required rules: %w", err)
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	return &Scanner{
		fs:        fsys,
		inspector: inspector,
		files:     files,
		required:  required,
		bundles:   bundles,
		workers:   workers,
		log:       slog.Default().With("component", "source-scanner"),
	}, nil
}

// Scan returns the archives under root sorted by relative path. Unreadable
// archives are returned with an estimated size.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Source, error) {
	var found []Source

	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !s.files.Included(rel, false) {
			return nil
		}

		found = append(found, Source{
			Path:     path,
			Rel:      rel,
			Required: s.required != nil && s.required.Included(rel, false),
			Bundle:   s.bundleFor(rel),
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to walk source %s: %w", root, err)
	}

	p := pool.NewWithResults[Source]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(s.workers)

	for _, src := range found {
		p.Go(func(ctx context.Context) (Source, error) {
			a, err := s.inspector.InspectOrEstimate(ctx, src.Path)
			if err != nil {
				return src, err
			}
			src.Archive = a

			// Required archives are deployed whole, item selection does not apply.
			if src.Required {
				src.Bundle = nil
			}
			if src.Bundle != nil {
				src.Breakdown = classifier.ClassifyArchive(a, src.Bundle.Rules)
			}
			return src, nil
		})
	}

	sources, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Rel < sources[j].Rel
	})

	s.log.InfoContext(ctx, "Scanned source",
		"root", root,
		"archives", len(sources),
		"workers", s.workers)

	return sources, nil
}

func (s *Scanner) bundleFor(rel string) *Bundle {
	for _, b := range s.bundles {
		if b.Matches(rel) {
			return b
		}
	}
	return nil
}

