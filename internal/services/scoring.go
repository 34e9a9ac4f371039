package services

import (
	"context"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
)

const (
	SingleMin = 0
	SingleMax = 999

	PartialPicks = 6
	PartialMin   = 1
	PartialMax   = 45

	// maxRejections caps duplicate draws while collecting a partial-match outcome.
	maxRejections = 1024
)

// ParseVariant validates a configured variant name
func ParseVariant(s string) (models.Variant, error) {
	switch v := models.Variant(s); v {
	case models.VariantExact, models.VariantClosest, models.VariantPartial:
		return v, nil
	}
	return "", fmt.Errorf("unknown variant %q (want exact, closest or partial)", s)
}

// ValidatePrediction checks cardinality, range and, for partial match, pairwise distinctness.
func ValidatePrediction(v models.Variant, prediction []int) error {
	switch v {
	case models.VariantExact, models.VariantClosest:
		if len(prediction) != 1 {
			return fmt.Errorf("%w: want 1 number, got %d", ErrInvalidPrediction, len(prediction))
		}
		if n := prediction[0]; n < SingleMin || n > SingleMax {
			return fmt.Errorf("%w: %d outside [%d,%d]", ErrInvalidPrediction, n, SingleMin, SingleMax)
		}
		return nil
	case models.VariantPartial:
		if len(prediction) != PartialPicks {
			return fmt.Errorf("%w: want %d numbers, got %d", ErrInvalidPrediction, PartialPicks, len(prediction))
		}
		seen := make(map[int]bool, PartialPicks)
		for _, n := range prediction {
			if n < PartialMin || n > PartialMax {
				return fmt.Errorf("%w: %d outside [%d,%d]", ErrInvalidPrediction, n, PartialMin, PartialMax)
			}
			if seen[n] {
				return fmt.Errorf("%w: %d repeated", ErrInvalidPrediction, n)
			}
			seen[n] = true
		}
		return nil
	}
	return fmt.Errorf("%w: unknown variant %q", ErrInvalidPrediction, v)
}

// DrawOutcome requests the outcome for one draw from src.
func DrawOutcome(ctx context.Context, v models.Variant, src randomness.Source) ([]int, error) {
	switch v {
	case models.VariantExact, models.VariantClosest:
		n, err := src.NextUniform(ctx, SingleMin, SingleMax)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	case models.VariantPartial:
		out := make([]int, 0, PartialPicks)
		seen := make(map[int]bool, PartialPicks)
		for rejected := 0; len(out) < PartialPicks; {
			n, err := src.NextUniform(ctx, PartialMin, PartialMax)
			if err != nil {
				return nil, err
			}
			if seen[n] {
				rejected++
				if rejected > maxRejections {
					return nil, fmt.Errorf("%w: too many duplicate values", randomness.ErrUnavailable)
				}
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown variant %q", v)
}

// Score rates a prediction against an outcome.
//   - exact: 1 on an exact match, otherwise 0
//   - closest: absolute distance, lower is better
//   - partial: count of predicted numbers present in the outcome, higher is better
func Score(v models.Variant, prediction, outcome []int) int {
	switch v {
	case models.VariantExact:
		if len(prediction) == 1 && len(outcome) == 1 && prediction[0] == outcome[0] {
			return 1
		}
		return 0
	case models.VariantClosest:
		d := prediction[0] - outcome[0]
		if d < 0 {
			d = -d
		}
		return d
	case models.VariantPartial:
		drawn := make(map[int]bool, len(outcome))
		for _, n := range outcome {
			drawn[n] = true
		}
		hits := 0
		for _, n := range prediction {
			if drawn[n] {
				hits++
			}
		}
		return hits
	}
	return 0
}

// strictlyBetter reports whether score a beats b. Equal scores never beat,
// which keeps the earliest ticket on ties.
func strictlyBetter(v models.Variant, a, b int) bool {
	if v == models.VariantClosest {
		return a < b
	}
	return a > b
}

// ResolveWinner scores every ticket in insertion order and returns the index of
// the best one. ok is false when the exact rule finds no matching ticket.
func ResolveWinner(v models.Variant, tickets []models.Ticket, outcome []int) (index, score int, ok bool) {
	index = -1
	for i, t := range tickets {
		s := Score(v, t.Prediction, outcome)
		if index < 0 || strictlyBetter(v, s, score) {
			index, score = i, s
		}
	}
	if index < 0 {
		return -1, 0, false
	}
	if v == models.VariantExact && score == 0 {
		return -1, 0, false
	}
	return index, score, true
}
