package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/javi11/romdeploy/internal/extract"
	"github.com/javi11/romdeploy/internal/prompt"
	"github.com/javi11/romdeploy/internal/utils"
)

// consoleReporter draws a progress line on a terminal and logs coarse steps otherwise.
type consoleReporter struct {
	w    io.Writer
	tty  bool
	last int
}

func newConsoleReporter(f *os.File) *consoleReporter {
	return &consoleReporter{w: f, tty: prompt.IsInteractive(f), last: -1}
}

func (r *consoleReporter) UpdateProgress(jobID string, percentage int) {
	if r.tty {
		fmt.Fprintf(r.w, "\rExtracting... %3d%%", percentage)
		if percentage >= 100 {
			fmt.Fprintln(r.w)
		}
		return
	}

	if r.last < 0 || percentage/10 != r.last/10 || percentage == 100 {
		slog.Info("Extraction progress", "job_id", jobID, "percent", percentage)
	}
	r.last = percentage
}

func printSummary(out io.Writer, res extract.Result) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Fprintln(out)
	color.New(color.Bold).Fprintln(out, "Summary")
	green.Fprintf(out, "  extracted: %d\n", res.Extracted)
	fmt.Fprintf(out, "  skipped:   %d (already done)\n", res.Skipped)
	if res.Failed > 0 {
		red.Fprintf(out, "  failed:    %d\n", res.Failed)
		for _, f := range res.Failures {
			red.Fprintf(out, "    %s: %v\n", f.Archive, f.Err)
		}
	}
	if res.Remaining > 0 {
		fmt.Fprintf(out, "  remaining: %d (interrupted)\n", res.Remaining)
	}
	fmt.Fprintf(out, "  written:   %d files, %s\n", res.EntriesWritten, utils.FormatBytes(res.BytesWritten))
	if res.EntriesFiltered > 0 {
		fmt.Fprintf(out, "  filtered:  %d files\n", res.EntriesFiltered)
	}

	if res.Complete() {
		green.Fprintln(out, "Deployment complete.")
	} else {
		fmt.Fprintln(out, "Progress kept, run the same command again to retry.")
	}
}
