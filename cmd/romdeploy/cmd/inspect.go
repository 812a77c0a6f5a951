package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/javi11/romdeploy/internal/archive"
	"github.com/javi11/romdeploy/internal/catalog"
	"github.com/javi11/romdeploy/internal/classifier"
	"github.com/javi11/romdeploy/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var inspectBundle string

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive>...",
	Short: "Show the uncompressed size and item breakdown of archives",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectBundle, "bundle", "", "classify with the named bundle instead of matching by path")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bundles, err := catalog.NewBundles(cfg.Bundles, cfg.Scan.CaseInsensitive)
	if err != nil {
		return err
	}

	var forced *catalog.Bundle
	if inspectBundle != "" {
		bc, ok := cfg.Bundle(inspectBundle)
		if !ok {
			return fmt.Errorf("unknown bundle %q", inspectBundle)
		}
		if forced, err = catalog.NewBundle(bc, cfg.Scan.CaseInsensitive); err != nil {
			return err
		}
	}

	inspector := archive.NewInspector(afero.NewOsFs())
	out := cmd.OutOrStdout()

	for _, path := range args {
		a, err := inspector.InspectOrEstimate(cmd.Context(), path)
		if err != nil {
			return err
		}

		bundle := forced
		if bundle == nil {
			for _, b := range bundles {
				if b.Matches(filepath.ToSlash(path)) || b.Matches(filepath.Base(path)) {
					bundle = b
					break
				}
			}
		}

		printArchive(out, a, bundle)
	}

	return nil
}

func printArchive(out io.Writer, a *archive.Archive, bundle *catalog.Bundle) {
	bold := color.New(color.Bold)
	bold.Fprintln(out, a.Path)

	if a.Estimated {
		color.New(color.FgYellow).Fprintf(out, "  unreadable, estimated %s from %s compressed\n",
			utils.FormatBytes(a.Size()), utils.FormatBytes(a.CompressedSize))
		return
	}

	fmt.Fprintf(out, "  format:       %s\n", a.Format)
	fmt.Fprintf(out, "  entries:      %d\n", len(a.FileEntries()))
	fmt.Fprintf(out, "  compressed:   %s\n", utils.FormatBytes(a.CompressedSize))
	fmt.Fprintf(out, "  uncompressed: %s\n", utils.FormatBytes(a.Size()))

	if bundle == nil {
		for _, e := range a.LargestEntries(5) {
			fmt.Fprintf(out, "    %10s  %s\n", utils.FormatBytes(e.Size), e.Path)
		}
		return
	}

	b := classifier.ClassifyArchive(a, bundle.Rules)
	fmt.Fprintf(out, "  bundle %s: %d items, %s shared\n", bundle.Name, len(b.Items), utils.FormatBytes(b.Shared))
	for _, id := range b.ItemIDs() {
		fmt.Fprintf(out, "    %10s  %s\n", utils.FormatBytes(b.Items[id]), id)
	}
	for _, p := range bundle.Presets {
		members := b.PresetMembers(p, bundle.Rules)
		fmt.Fprintf(out, "  preset %s: %d of %d items, %s\n",
			p.Name, len(members), len(p.Items), utils.FormatBytes(b.PresetSize(p, bundle.Rules)))
	}
}
