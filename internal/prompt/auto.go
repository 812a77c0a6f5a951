package prompt

import (
	"context"
	"fmt"

	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/javi11/romdeploy/internal/selection"
	"github.com/javi11/romdeploy/internal/utils"
)

// Auto answers without asking, for non-interactive runs. It applies a fixed
// expression and fails when the selection does not fit unless Override is set.
type Auto struct {
	Expression string
	Override   bool
}

// ChooseUnits returns the configured expression.
func (a Auto) ChooseUnits(context.Context, []selection.Unit) (string, error) {
	return a.Expression, nil
}

// ResolveShortfall overrides or fails with ErrSpaceShortfall.
func (a Auto) ResolveShortfall(_ context.Context, report selection.ShortfallReport) (selection.Resolution, error) {
	if a.Override {
		return selection.Resolution{Action: selection.ActionOverride}, nil
	}
	return selection.Resolution{}, fmt.Errorf("%w: short by %s", apperrors.ErrSpaceShortfall, utils.FormatBytes(report.Shortfall))
}

// Confirm returns def.
func (a Auto) Confirm(_ context.Context, _ string, def bool) (bool, error) {
	return def, nil
}
