// Package calculator implements expense split and balance computation.
//
// All arithmetic is done in integer minor units (cents) to avoid
// floating-point drift; the computed shares of an expense always sum
// exactly to its total for the equal and percentage methods, and custom
// amounts are validated rather than corrected. Every function here is
// pure: same input, same output, no side effects.
package calculator

import (
	"fmt"
	"math"

	"github.com/kmoroz/splithaus/internal/models"
)

// PercentTolerance is the allowed deviation of a percentage weight sum
// from 100. Weights come from user input with two decimal places, so
// 33.33 + 33.33 + 33.34 must pass while 33 + 33 + 33 must not.
const PercentTolerance = 0.01

// ValidationError reports invalid split input. It is the only error kind
// this package produces and is always recoverable by the caller,
// typically surfaced as a form error.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError builds a ValidationError from a format string.
// Exposed so callers validating adjacent input (descriptions, member
// sets) can report failures in the same taxonomy.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func validationErrorf(format string, args ...any) *ValidationError {
	return NewValidationError(format, args...)
}

// Share is one participant's computed portion of an expense total.
type Share struct {
	UserID      string
	AmountCents int64

	// Percentage is the weight that produced AmountCents.
	// Set only for the percentage method.
	Percentage float64
}

// Input carries everything needed to split one expense.
type Input struct {
	// TotalCents is the expense total in minor units. Must be positive.
	TotalCents int64

	// Method selects the splitting rule.
	Method models.SplitMethod

	// Participants is the ordered list of user IDs taking part in the
	// expense. Order matters: leftover cents from integer division and
	// rounding are handed out in list order, which makes the result
	// deterministic.
	Participants []string

	// Percentages maps participant to percentage weight (percentage
	// method only). Must cover every participant and sum to 100 within
	// PercentTolerance.
	Percentages map[string]float64

	// AmountsCents maps participant to an exact cent amount (custom
	// method only). Must cover every participant and sum to TotalCents.
	AmountsCents map[string]int64
}

// Compute splits in.TotalCents among in.Participants according to
// in.Method. The returned shares are in participant order and, for the
// equal and percentage methods, sum exactly to in.TotalCents.
func Compute(in Input) ([]Share, error) {
	if in.TotalCents <= 0 {
		return nil, validationErrorf("total must be positive, got %d cents", in.TotalCents)
	}
	if len(in.Participants) == 0 {
		return nil, validationErrorf("at least one participant is required")
	}
	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		if p == "" {
			return nil, validationErrorf("participant ID cannot be empty")
		}
		if seen[p] {
			return nil, validationErrorf("duplicate participant %q", p)
		}
		seen[p] = true
	}

	switch in.Method {
	case models.SplitEqual:
		return splitEqual(in.TotalCents, in.Participants), nil
	case models.SplitPercentage:
		return splitPercentage(in.TotalCents, in.Participants, in.Percentages)
	case models.SplitCustom:
		return splitCustom(in.TotalCents, in.Participants, in.AmountsCents)
	default:
		return nil, validationErrorf("unknown split method %q", in.Method)
	}
}

// splitEqual divides the total evenly. Each participant gets
// floor(total/n) cents; the remainder goes one cent at a time to the
// first participants in list order, so the shares reconstruct the total
// exactly.
func splitEqual(totalCents int64, participants []string) []Share {
	n := int64(len(participants))
	base := totalCents / n
	remainder := totalCents - base*n

	shares := make([]Share, len(participants))
	for i, userID := range participants {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		shares[i] = Share{UserID: userID, AmountCents: amount}
	}
	return shares
}

// splitPercentage rounds each participant's weighted amount to the
// nearest cent, then nudges shares by one cent in list order until the
// rounding drift is gone in either direction.
func splitPercentage(totalCents int64, participants []string, percentages map[string]float64) ([]Share, error) {
	if err := checkWeightKeys(len(percentages), participants, func(p string) bool {
		_, ok := percentages[p]
		return ok
	}, "percentage"); err != nil {
		return nil, err
	}

	var sum float64
	for _, p := range participants {
		pct := percentages[p]
		if pct < 0 {
			return nil, validationErrorf("percentage for %q must not be negative, got %.2f", p, pct)
		}
		sum += pct
	}
	if math.Abs(sum-100) > PercentTolerance {
		return nil, validationErrorf("percentages must sum to 100, got %.2f", sum)
	}

	shares := make([]Share, len(participants))
	var assigned int64
	for i, p := range participants {
		pct := percentages[p]
		amount := int64(math.Round(float64(totalCents) * pct / 100))
		shares[i] = Share{UserID: p, AmountCents: amount, Percentage: pct}
		assigned += amount
	}

	// Rounding can drift a few cents in either direction; correct one
	// cent at a time in participant order.
	drift := totalCents - assigned
	for i := 0; drift != 0; i = (i + 1) % len(shares) {
		if drift > 0 {
			shares[i].AmountCents++
			drift--
		} else if shares[i].AmountCents > 0 {
			shares[i].AmountCents--
			drift++
		}
	}
	return shares, nil
}

// splitCustom uses the supplied amounts verbatim. The amounts must sum
// to the total exactly; a mismatch is a validation error, never a silent
// correction of what the user approved.
func splitCustom(totalCents int64, participants []string, amounts map[string]int64) ([]Share, error) {
	if err := checkWeightKeys(len(amounts), participants, func(p string) bool {
		_, ok := amounts[p]
		return ok
	}, "amount"); err != nil {
		return nil, err
	}

	shares := make([]Share, len(participants))
	var sum int64
	for i, p := range participants {
		amount := amounts[p]
		if amount < 0 {
			return nil, validationErrorf("amount for %q must not be negative, got %d cents", p, amount)
		}
		shares[i] = Share{UserID: p, AmountCents: amount}
		sum += amount
	}
	if sum != totalCents {
		return nil, validationErrorf("custom amounts sum to %d cents, want %d", sum, totalCents)
	}
	return shares, nil
}

// checkWeightKeys verifies the weight map covers exactly the
// participant set.
func checkWeightKeys(weightCount int, participants []string, has func(string) bool, kind string) error {
	for _, p := range participants {
		if !has(p) {
			return validationErrorf("missing %s for participant %q", kind, p)
		}
	}
	if weightCount > len(participants) {
		return validationErrorf("%d %s entries for %d participants", weightCount, kind, len(participants))
	}
	return nil
}
