package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/javi11/romdeploy/internal/progress"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	statusDest  string
	statusClear bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show or clear the resume state of a destination",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusDest, "dest", "", "destination directory (default from config)")
	statusCmd.Flags().BoolVar(&statusClear, "clear", false, "forget completed archives so the next run starts over")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dest := statusDest
	if dest == "" {
		dest = cfg.Destination
	}
	if dest == "" {
		return fmt.Errorf("no destination given, use --dest")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	store := progress.NewStore(afero.NewBasePathFs(afero.NewOsFs(), dest))

	if statusClear {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Progress cleared.")
		return nil
	}

	done, err := store.Completed(ctx)
	if err != nil {
		return err
	}

	if len(done) == 0 {
		fmt.Fprintln(out, "No interrupted run recorded.")
		return nil
	}

	color.New(color.Bold).Fprintf(out, "%d archives completed by an interrupted run:\n", len(done))
	for _, name := range done {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
