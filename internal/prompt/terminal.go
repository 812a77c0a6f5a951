// Package prompt asks the operator for selection decisions on a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/javi11/romdeploy/internal/catalog"
	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/javi11/romdeploy/internal/selection"
	"github.com/javi11/romdeploy/internal/utils"
	"golang.org/x/term"
)

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type palette struct {
	title *color.Color
	index *color.Color
	warn  *color.Color
	dim   *color.Color
}

func newPalette() palette {
	return palette{
		title: color.New(color.Bold, color.FgCyan),
		index: color.New(color.FgGreen),
		warn:  color.New(color.Bold, color.FgYellow),
		dim:   color.New(color.Faint),
	}
}

type readResult struct {
	line string
	err  error
}

// lineReader reads lines in its own goroutine so a pending prompt can be
// abandoned when the context is cancelled.
type lineReader struct {
	r     *bufio.Reader
	once  sync.Once
	lines chan readResult
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(in), lines: make(chan readResult)}
}

func (lr *lineReader) next(ctx context.Context) (string, error) {
	lr.once.Do(func() {
		go func() {
			defer close(lr.lines)
			for {
				line, err := lr.r.ReadString('\n')
				lr.lines <- readResult{line: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// Terminal implements selection.Prompter over a line-based reader and writer.
type Terminal struct {
	in      *lineReader
	out     io.Writer
	colors  palette
	title   string
	presets []catalog.PresetChoice
}

// NewTerminal creates a prompter reading answers from in and writing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:     newLineReader(in),
		out:    out,
		colors: newPalette(),
		title:  "Select content to deploy",
	}
}

// WithPresets returns a prompter for one bundle that also accepts preset names.
func (t *Terminal) WithPresets(title string, presets []catalog.PresetChoice) *Terminal {
	c := *t
	c.title = title
	c.presets = presets
	return &c
}

// ChooseUnits lists units and returns a selection expression. A preset name is
// replaced by its expression.
func (t *Terminal) ChooseUnits(ctx context.Context, units []selection.Unit) (string, error) {
	t.colors.title.Fprintln(t.out, t.title)
	for _, u := range units {
		t.writeUnit(u.Index, u)
	}
	for _, p := range t.presets {
		fmt.Fprintf(t.out, "  preset %s: %d items, %s\n", t.colors.index.Sprint(p.Name), p.Members, utils.FormatBytes(p.Size))
	}
	t.colors.dim.Fprintln(t.out, `Enter e.g. "1,3,5-7" or "all,!4". Empty selects everything, q quits.`)

	answer, err := t.ask(ctx, "Selection: ")
	if err != nil {
		return "", err
	}

	for _, p := range t.presets {
		if strings.EqualFold(answer, p.Name) {
			return p.Expression, nil
		}
	}

	return answer, nil
}

// ResolveShortfall shows the largest removable units and asks how to proceed.
func (t *Terminal) ResolveShortfall(ctx context.Context, report selection.ShortfallReport) (selection.Resolution, error) {
	t.colors.warn.Fprintf(t.out, "Selection needs %s but only %s is available (short by %s).\n",
		utils.FormatBytes(report.Needed), utils.FormatBytes(report.Available), utils.FormatBytes(report.Shortfall))

	if len(report.Candidates) > 0 {
		fmt.Fprintln(t.out, "Largest removable:")
		for i, u := range report.Candidates {
			t.writeUnit(i+1, u)
		}
	}

	for {
		answer, err := t.ask(ctx, `Numbers to remove, "o" to proceed anyway, "q" to abort: `)
		if err != nil {
			return selection.Resolution{}, err
		}

		switch strings.ToLower(answer) {
		case "":
			continue
		case "o", "override":
			return selection.Resolution{Action: selection.ActionOverride}, nil
		case "a", "abort":
			return selection.Resolution{Action: selection.ActionAbort}, nil
		}

		return selection.Resolution{Action: selection.ActionTrim, Expression: answer}, nil
	}
}

// Confirm asks a yes/no question. An empty answer returns def.
func (t *Terminal) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		answer, err := t.ask(ctx, fmt.Sprintf("%s %s ", question, hint))
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func (t *Terminal) writeUnit(n int, u selection.Unit) {
	line := fmt.Sprintf("  %s %-40s %10s", t.colors.index.Sprintf("[%3d]", n), u.Label, utils.FormatBytes(u.Size))
	if u.Required {
		line += t.colors.dim.Sprint("  required")
	}
	if u.Reclaimable > 0 {
		line += t.colors.dim.Sprintf("  (%s already present)", utils.FormatBytes(u.Reclaimable))
	}
	fmt.Fprintln(t.out, line)
}

// ask reads one trimmed line. "q" and end of input abort, and a cancelled
// context returns at once even while waiting for input.
func (t *Terminal) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(t.out, question)

	line, err := t.in.next(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		fmt.Fprintln(t.out)
		return "", ctxErr
	}
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		if line == "" {
			fmt.Fprintln(t.out)
			return "", fmt.Errorf("%w: end of input", apperrors.ErrUserAbort)
		}
	}

	answer := strings.TrimSpace(line)
	switch strings.ToLower(answer) {
	case "q", "quit", "exit":
		return "", apperrors.ErrUserAbort
	}

	return answer, nil
}
