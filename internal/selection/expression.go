package selection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/javi11/romdeploy/internal/errors"
)

// ParseOptions controls how selection expressions are interpreted.
type ParseOptions struct {
	// Strict rejects unrecognised and out-of-range tokens instead of ignoring them.
	Strict bool
}

// ParseExpression resolves a selection expression over units numbered 1..n.
//
// Supported tokens, comma separated: "k", "a-b", "all", "!k" and "!a-b".
// Exclusions are applied after every inclusion regardless of token order.
// In tolerant mode unrecognised tokens are ignored.
func ParseExpression(expr string, n int, opts ParseOptions) ([]int, error) {
	include := make(map[int]struct{})
	exclude := make(map[int]struct{})

	for _, raw := range strings.Split(expr, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		target := include
		if strings.HasPrefix(token, "!") {
			target = exclude
			token = strings.TrimSpace(token[1:])
		}

		if strings.EqualFold(token, "all") {
			for i := 1; i <= n; i++ {
				target[i] = struct{}{}
			}
			continue
		}

		lo, hi, ok := parseRange(token)
		if !ok {
			if opts.Strict {
				return nil, fmt.Errorf("%w: unrecognised token %q", apperrors.ErrInvalidExpression, raw)
			}
			continue
		}
		if opts.Strict && (lo < 1 || hi > n) {
			return nil, fmt.Errorf("%w: %q is outside 1-%d", apperrors.ErrInvalidExpression, strings.TrimSpace(raw), n)
		}

		for i := max(lo, 1); i <= min(hi, n); i++ {
			target[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(include))
	for i := range include {
		if _, excluded := exclude[i]; !excluded {
			out = append(out, i)
		}
	}
	sort.Ints(out)

	return out, nil
}

// parseRange parses "k" or "a-b". Reversed ranges are normalised.
func parseRange(token string) (int, int, bool) {
	if lo, hi, found := strings.Cut(token, "-"); found {
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil {
			return 0, 0, false
		}
		if a > b {
			a, b = b, a
		}
		return a, b, true
	}

	k, err := strconv.Atoi(token)
	if err != nil {
		return 0, 0, false
	}
	return k, k, true
}
