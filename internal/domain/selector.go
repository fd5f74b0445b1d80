package domain

import (
	"fmt"
	"slices"
)

// GoverningScoreSelector picks the score that stands for the whole reading set
// from the ascending-sorted per-pollutant scores.
type GoverningScoreSelector interface {
	Select(sorted []float64) (float64, error)
}

// SecondSmallest selects the second entry of the sorted scores. This is the
// behavior stations have always been rated with; it ignores the single worst
// pollutant.
type SecondSmallest struct{}

// Select returns sorted[1], or *InsufficientDataError for fewer than two scores.
func (SecondSmallest) Select(sorted []float64) (float64, error) {
	if len(sorted) < 2 {
		return 0, &InsufficientDataError{Got: len(sorted), Need: 2}
	}
	return sorted[1], nil
}

// Minimum selects the lowest score, letting the worst pollutant govern.
type Minimum struct{}

// Select returns sorted[0], or *InsufficientDataError when sorted is empty.
func (Minimum) Select(sorted []float64) (float64, error) {
	if len(sorted) < 1 {
		return 0, &InsufficientDataError{Got: 0, Need: 1}
	}
	return sorted[0], nil
}

// Selector names accepted by SelectorByName.
const (
	SelectorSecondSmallest = "second_smallest"
	SelectorMinimum        = "minimum"
)

// SelectorByName resolves a configured selector name.
func SelectorByName(name string) (GoverningScoreSelector, error) {
	switch name {
	case "", SelectorSecondSmallest:
		return SecondSmallest{}, nil
	case SelectorMinimum:
		return Minimum{}, nil
	default:
		return nil, fmt.Errorf("unknown score selector %q", name)
	}
}

func sortedScores(scores []PollutantScore) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s.Score
	}
	slices.Sort(out)
	return out
}
