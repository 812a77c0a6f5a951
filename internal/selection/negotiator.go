package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/javi11/romdeploy/internal/errors"
)

// State is a node of the space-check state machine.
type State string

const (
	StateReviewing         State = "reviewing"
	StateShortfallDetected State = "shortfall_detected"
	StateFits              State = "fits"
	StateOverrideAccepted  State = "override_accepted"
	StateAborted           State = "aborted"
)

// Terminal reports whether the negotiation ends in this state.
func (s State) Terminal() bool {
	return s == StateFits || s == StateOverrideAccepted || s == StateAborted
}

// Proceed reports whether extraction may start from this state.
func (s State) Proceed() bool {
	return s == StateFits || s == StateOverrideAccepted
}

// Budget is the destination space available to the selection.
type Budget struct {
	// Known is false when free space could not be determined; no check is done then.
	Known bool  `json:"known"`
	Free  int64 `json:"free"`
}

// Effective returns free space plus the space reclaimable by overwriting a prior build.
func (b Budget) Effective(reclaimable int64) int64 {
	return b.Free + reclaimable
}

// ShortfallReport describes a selection that does not fit.
type ShortfallReport struct {
	Needed    int64 `json:"needed"`
	Available int64 `json:"available"`
	Shortfall int64 `json:"shortfall"`
	// Candidates are the removable units, largest first. Trim expressions refer
	// to their 1-based position in this slice.
	Candidates []Unit `json:"candidates"`
}

// Action is the operator's answer to a shortfall.
type Action int

const (
	ActionTrim Action = iota
	ActionOverride
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionTrim:
		return "trim"
	case ActionOverride:
		return "override"
	case ActionAbort:
		return "abort"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Resolution is the operator's answer to a ShortfallReport.
type Resolution struct {
	Action Action
	// Expression selects candidates to exclude when Action is ActionTrim.
	Expression string
}

// Prompter asks the operator for decisions. Returning an error wrapping
// ErrUserAbort from either method aborts the negotiation.
type Prompter interface {
	// ChooseUnits returns a selection expression over the given units. An empty
	// answer includes everything.
	ChooseUnits(ctx context.Context, units []Unit) (string, error)
	// ResolveShortfall asks how to handle a selection that does not fit.
	ResolveShortfall(ctx context.Context, report ShortfallReport) (Resolution, error)
}

// DecisionKind classifies a recorded decision.
type DecisionKind string

const (
	DecisionDefault    DecisionKind = "default"
	DecisionExpression DecisionKind = "expression"
	DecisionTrim       DecisionKind = "trim"
	DecisionOverride   DecisionKind = "override"
	DecisionAbort      DecisionKind = "abort"
)

// Decision records one operator action and its effect.
type Decision struct {
	Round      int          `json:"round"`
	Kind       DecisionKind `json:"kind"`
	Expression string       `json:"expression,omitempty"`
	Excluded   []int        `json:"excluded,omitempty"`
}

// Outcome is the terminal result of a negotiation.
type Outcome struct {
	State     State            `json:"state"`
	Set       *Set             `json:"-"`
	Rounds    int              `json:"rounds"`
	Decisions []Decision       `json:"decisions"`
	Shortfall *ShortfallReport `json:"shortfall,omitempty"`
}

// Options configures a Negotiator.
type Options struct {
	Parse ParseOptions
	// MaxCandidates limits the trim list; zero lists every removable unit.
	MaxCandidates int
	// MaxInvalidAnswers bounds re-prompts after strict parse errors.
	MaxInvalidAnswers int
}

// Negotiator runs the selection and trim-to-fit loop.
type Negotiator struct {
	prompter Prompter
	opts     Options
	log      *slog.Logger
}

// NewNegotiator creates a negotiator asking prompter for decisions.
func NewNegotiator(prompter Prompter, opts Options) *Negotiator {
	if opts.MaxInvalidAnswers <= 0 {
		opts.MaxInvalidAnswers = 5
	}
	return &Negotiator{
		prompter: prompter,
		opts:     opts,
		log:      slog.Default().With("component", "selection-negotiator"),
	}
}

// Evaluate checks the current include set against the budget.
func (n *Negotiator) Evaluate(set *Set, budget Budget) (State, *ShortfallReport) {
	needed := set.IncludedSize()
	if !budget.Known {
		return StateFits, nil
	}

	available := budget.Effective(set.IncludedReclaimable())
	if needed <= available {
		return StateFits, nil
	}

	candidates := set.RemovableBySize()
	if n.opts.MaxCandidates > 0 && len(candidates) > n.opts.MaxCandidates {
		candidates = candidates[:n.opts.MaxCandidates]
	}

	return StateShortfallDetected, &ShortfallReport{
		Needed:     needed,
		Available:  available,
		Shortfall:  needed - available,
		Candidates: candidates,
	}
}

// Run asks for the initial selection and then negotiates until the selection
// fits, the operator overrides, or the operator aborts. An aborted outcome is
// returned together with an error wrapping ErrUserAbort.
func (n *Negotiator) Run(ctx context.Context, units []Unit, budget Budget) (Outcome, error) {
	set := NewSet(units)
	out := Outcome{State: StateReviewing, Set: set}

	if err := n.choose(ctx, set, &out); err != nil {
		if apperrors.IsUserAbort(err) {
			out.State = StateAborted
			out.Decisions = append(out.Decisions, Decision{Round: out.Rounds, Kind: DecisionAbort})
		}
		return out, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		state, report := n.Evaluate(set, budget)
		out.Shortfall = report
		if state == StateFits {
			out.State = StateFits
			n.log.InfoContext(ctx, "Selection fits destination",
				"included_units", len(set.Included()),
				"included_size", set.IncludedSize(),
				"budget_known", budget.Known)
			return out, nil
		}

		out.State = StateShortfallDetected
		out.Rounds++
		n.log.WarnContext(ctx, "Selection exceeds available space",
			"needed", report.Needed,
			"available", report.Available,
			"shortfall", report.Shortfall,
			"candidates", len(report.Candidates))

		res, err := n.prompter.ResolveShortfall(ctx, *report)
		if err != nil {
			if apperrors.IsUserAbort(err) {
				out.State = StateAborted
				out.Decisions = append(out.Decisions, Decision{Round: out.Rounds, Kind: DecisionAbort})
			}
			return out, err
		}

		switch res.Action {
		case ActionOverride:
			out.State = StateOverrideAccepted
			out.Decisions = append(out.Decisions, Decision{Round: out.Rounds, Kind: DecisionOverride})
			n.log.WarnContext(ctx, "Proceeding despite shortfall", "shortfall", report.Shortfall)
			return out, nil

		case ActionAbort:
			out.State = StateAborted
			out.Decisions = append(out.Decisions, Decision{Round: out.Rounds, Kind: DecisionAbort})
			return out, apperrors.ErrUserAbort

		case ActionTrim:
			positions, err := ParseExpression(res.Expression, len(report.Candidates), n.opts.Parse)
			if err != nil {
				n.log.WarnContext(ctx, "Ignoring invalid trim expression", "expression", res.Expression, "error", err)
				out.State = StateReviewing
				continue
			}

			indices := make([]int, 0, len(positions))
			for _, p := range positions {
				indices = append(indices, report.Candidates[p-1].Index)
			}
			removed := set.Exclude(indices...)
			out.Decisions = append(out.Decisions, Decision{
				Round:      out.Rounds,
				Kind:       DecisionTrim,
				Expression: res.Expression,
				Excluded:   removed,
			})
			out.State = StateReviewing

		default:
			return out, fmt.Errorf("unknown shortfall action %v", res.Action)
		}
	}
}

// choose runs the initial selection round.
func (n *Negotiator) choose(ctx context.Context, set *Set, out *Outcome) error {
	optional := set.Optional()
	if len(optional) == 0 {
		out.Decisions = append(out.Decisions, Decision{Kind: DecisionDefault})
		return nil
	}

	maxIndex := 0
	for _, u := range set.Units() {
		maxIndex = max(maxIndex, u.Index)
	}

	for attempt := 0; ; attempt++ {
		expr, err := n.prompter.ChooseUnits(ctx, optional)
		if err != nil {
			return err
		}

		if strings.TrimSpace(expr) == "" {
			out.Decisions = append(out.Decisions, Decision{Kind: DecisionDefault})
			n.log.InfoContext(ctx, "No selection given, including everything", "units", len(set.Units()))
			return nil
		}

		indices, err := ParseExpression(expr, maxIndex, n.opts.Parse)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidExpression) && attempt+1 < n.opts.MaxInvalidAnswers {
				n.log.WarnContext(ctx, "Invalid selection, asking again", "expression", expr, "error", err)
				continue
			}
			return err
		}

		set.Apply(indices)
		excluded := make([]int, 0)
		for _, u := range set.Excluded() {
			excluded = append(excluded, u.Index)
		}
		out.Decisions = append(out.Decisions, Decision{
			Kind:       DecisionExpression,
			Expression: expr,
			Excluded:   excluded,
		})
		n.log.InfoContext(ctx, "Selection applied",
			"expression", expr,
			"included_units", len(set.Included()),
			"excluded_units", len(excluded),
			"savings", set.ExcludedSize())
		return nil
	}
}
