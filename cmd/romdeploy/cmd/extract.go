package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/javi11/romdeploy/internal/archive"
	"github.com/javi11/romdeploy/internal/catalog"
	"github.com/javi11/romdeploy/internal/config"
	"github.com/javi11/romdeploy/internal/database"
	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/javi11/romdeploy/internal/extract"
	"github.com/javi11/romdeploy/internal/prompt"
	"github.com/javi11/romdeploy/internal/selection"
	"github.com/javi11/romdeploy/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	extractSource   string
	extractDest     string
	extractYes      bool
	extractSelect   string
	extractOverride bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Select archives, fit them to the destination and extract them",
	Long: `Scan the source tree, negotiate what fits on the destination and extract
the selection one archive at a time. Completed archives are recorded in a
progress file at the destination root so an interrupted run can be resumed.

Running two extractions against the same destination at once is not supported.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractSource, "source", "", "source directory (default from config)")
	extractCmd.Flags().StringVar(&extractDest, "dest", "", "destination directory (default from config)")
	extractCmd.Flags().BoolVarP(&extractYes, "yes", "y", false, "do not ask, use --select and resume automatically")
	extractCmd.Flags().StringVar(&extractSelect, "select", "", "selection expression used with --yes (empty selects everything)")
	extractCmd.Flags().BoolVar(&extractOverride, "override", false, "with --yes, extract even if the selection does not fit")
}

// asker is what the extract flow needs from a prompter.
type asker interface {
	selection.Prompter
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source := firstNonEmpty(extractSource, cfg.Source)
	dest := firstNonEmpty(extractDest, cfg.Destination)
	if source == "" || dest == "" {
		return fmt.Errorf("source and destination are required, use --source and --dest")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !extractYes && prompt.IsInteractive(os.Stdin)
	if !extractYes && !interactive {
		return fmt.Errorf("stdin is not a terminal, use --yes for unattended runs")
	}

	terminal := prompt.NewTerminal(os.Stdin, os.Stdout)
	var ask asker = prompt.Auto{Expression: extractSelect, Override: extractOverride}
	if interactive {
		ask = terminal
	}

	srcFs := afero.NewOsFs()
	inspector := archive.NewInspector(srcFs)

	cached, closeCache, err := newCachedInspector(ctx, cfg, inspector)
	if err != nil {
		return err
	}
	defer closeCache()

	bundles, err := catalog.NewBundles(cfg.Bundles, cfg.Scan.CaseInsensitive)
	if err != nil {
		return err
	}

	scanCfg := cfg.Scan
	scanCfg.Workers = cfg.GetScanWorkers()

	scanner, err := catalog.NewScanner(srcFs, cached, scanCfg, bundles)
	if err != nil {
		return err
	}

	sources, err := scanner.Scan(ctx, source)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no archives found under %s", source)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	dstFs := afero.NewBasePathFs(afero.NewOsFs(), dest)

	engine := extract.NewEngine(inspector, dstFs, extract.WithReporter(newConsoleReporter(os.Stderr)))

	if err := confirmResume(ctx, ask, engine); err != nil {
		return err
	}

	budget := selection.Budget{}
	if space, err := utils.GetDiskSpace(dest); err != nil {
		slog.WarnContext(ctx, "Free space unknown, skipping the space check", "destination", dest, "error", err)
	} else {
		budget = selection.Budget{Known: true, Free: space.Free}
	}

	negOpts := selection.Options{
		Parse:             selection.ParseOptions{Strict: cfg.Selection.StrictExpressions},
		MaxCandidates:     cfg.GetMaxCandidates(),
		MaxInvalidAnswers: cfg.GetMaxInvalidAnswers(),
	}

	items := func(src catalog.Source, units []selection.Unit) selection.Prompter {
		if interactive {
			return terminal.WithPresets(fmt.Sprintf("Select items of %s", src.Rel), catalog.PresetChoices(src, units))
		}
		return prompt.Auto{Override: extractOverride}
	}

	picks, err := negotiate(ctx, ask, items, negOpts, sources, dstFs, budget)
	if err != nil {
		return err
	}
	if len(picks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected.")
		return nil
	}

	job := catalog.BuildJob(uuid.NewString(), dest, picks)

	ok, err := ask.Confirm(ctx, fmt.Sprintf("Extract %d archives (%s) to %s?",
		len(job.Archives), utils.FormatBytes(job.TotalSize()), dest), true)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: extraction declined", apperrors.ErrUserAbort)
	}

	res, err := engine.Extract(ctx, job)
	printSummary(cmd.OutOrStdout(), res)
	if err != nil {
		return err
	}
	if !res.Complete() {
		return fmt.Errorf("%w: %d failed, %d remaining", errPartial, res.Failed, res.Remaining)
	}

	return nil
}

// itemPrompter returns the prompter used to select items inside a bundle.
type itemPrompter func(src catalog.Source, units []selection.Unit) selection.Prompter

// negotiate selects archives, then items inside every selected bundle. Space
// used by earlier choices is taken off the budget of later bundles.
func negotiate(
	ctx context.Context,
	ask selection.Prompter,
	items itemPrompter,
	opts selection.Options,
	sources []catalog.Source,
	dstFs afero.Fs,
	budget selection.Budget,
) ([]catalog.Pick, error) {
	outcome, err := selection.NewNegotiator(ask, opts).Run(ctx, catalog.Units(sources, dstFs), budget)
	if err != nil {
		return nil, err
	}

	included := make(map[string]selection.Unit)
	for _, u := range outcome.Set.Included() {
		included[u.Key] = u
	}

	remaining := budget.Free
	for _, src := range sources {
		if u, ok := included[src.Rel]; ok && !src.IsBundle() {
			remaining -= u.Size - u.Reclaimable
		}
	}

	picks := make([]catalog.Pick, 0, len(included))
	for _, src := range sources {
		if _, ok := included[src.Rel]; !ok {
			continue
		}
		if !src.IsBundle() {
			picks = append(picks, catalog.Pick{Source: src})
			continue
		}

		units := catalog.ItemUnits(src, dstFs)
		itemOutcome, err := selection.NewNegotiator(items(src, units), opts).
			Run(ctx, units, selection.Budget{Known: budget.Known, Free: remaining})
		if err != nil {
			return nil, err
		}

		set := itemOutcome.Set
		remaining -= set.IncludedSize() - set.IncludedReclaimable()

		pick := catalog.Pick{Source: src}
		if len(set.Excluded()) > 0 {
			pick.Items = catalog.ItemsFromKeys(set.IncludedKeys())
		}
		picks = append(picks, pick)
	}

	return picks, nil
}

func confirmResume(ctx context.Context, ask asker, engine *extract.Engine) error {
	store := engine.Store()
	exists, err := store.Exists()
	if err != nil || !exists {
		return err
	}

	done, err := store.Completed(ctx)
	if err != nil {
		return err
	}

	resume, err := ask.Confirm(ctx, fmt.Sprintf("A previous run completed %d archives. Resume it?", len(done)), true)
	if err != nil {
		return err
	}
	if !resume {
		return store.Clear(ctx)
	}
	return nil
}

// newCachedInspector layers the in-memory and persistent caches over inspector.
// A cache database that cannot be opened only disables persistence.
func newCachedInspector(ctx context.Context, cfg *config.Config, inspector *archive.Inspector) (*catalog.CachedInspector, func(), error) {
	closeFn := func() {}

	var store catalog.InspectionStore
	if cfg.GetCacheEnabled() {
		db, err := database.NewDB(database.Config{DatabasePath: cfg.GetCachePath()})
		if err != nil {
			slog.WarnContext(ctx, "Inspection cache unavailable", "path", cfg.GetCachePath(), "error", err)
		} else {
			closeFn = func() { db.Close() }
			if n, err := db.Inspections.Prune(ctx, cfg.GetCachePruneAfter()); err != nil {
				slog.WarnContext(ctx, "Failed to prune inspection cache", "error", err)
			} else if n > 0 {
				slog.DebugContext(ctx, "Pruned inspection cache", "removed", n)
			}
			store = db.Inspections
		}
	}

	cached, err := catalog.NewCachedInspector(inspector, cfg.GetCacheSize(), store)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return cached, closeFn, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
