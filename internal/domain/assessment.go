package domain

import "fmt"

// Reading is the latest measured concentration of one pollutant.
type Reading struct {
	Pollutant Pollutant `json:"pollutant"`
	Value     float64   `json:"value"`
}

// PollutantScore is the derived index of one reading and its inverted
// pollution score (100 - index).
type PollutantScore struct {
	Pollutant     Pollutant `json:"pollutant"`
	Concentration float64   `json:"concentration"`
	Index         float64   `json:"index"`
	Score         float64   `json:"score"`
}

// Assessment is the overall rating of one reading set.
type Assessment struct {
	Score      float64          `json:"score"`
	Category   Category         `json:"category"`
	Pollutants []PollutantScore `json:"pollutants"`
}

// Assessor scores reading sets against a fixed index table and selection
// policy. The zero value is not usable; construct with NewAssessor.
type Assessor struct {
	index    IndexTable
	selector GoverningScoreSelector
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithIndexTable replaces the default index table.
func WithIndexTable(t IndexTable) Option {
	return func(a *Assessor) { a.index = t }
}

// WithSelector replaces the governing score selection policy.
func WithSelector(s GoverningScoreSelector) Option {
	return func(a *Assessor) {
		if s != nil {
			a.selector = s
		}
	}
}

// NewAssessor returns an Assessor using DefaultIndexTable and SecondSmallest
// unless overridden.
func NewAssessor(opts ...Option) *Assessor {
	a := &Assessor{
		index:    DefaultIndexTable,
		selector: SecondSmallest{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IndexTable returns the table concentrations are interpolated onto.
func (a *Assessor) IndexTable() IndexTable { return a.index }

// With returns a copy of a with opts applied. The receiver is unchanged.
func (a *Assessor) With(opts ...Option) *Assessor {
	clone := *a
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// Aggregate scores every reading, selects the governing score and classifies it.
// Any failure aborts the whole assessment; no partial result is returned.
func (a *Assessor) Aggregate(readings []Reading) (Assessment, error) {
	scores, err := a.Score(readings)
	if err != nil {
		return Assessment{}, err
	}

	governing, err := a.selector.Select(sortedScores(scores))
	if err != nil {
		return Assessment{}, err
	}

	category, err := Classify(governing)
	if err != nil {
		return Assessment{}, err
	}

	return Assessment{
		Score:      governing,
		Category:   category,
		Pollutants: scores,
	}, nil
}

// Score computes the index and pollution score of each reading, in input order.
func (a *Assessor) Score(readings []Reading) ([]PollutantScore, error) {
	seen := make(map[Pollutant]struct{}, len(readings))
	scores := make([]PollutantScore, 0, len(readings))

	for _, r := range readings {
		if _, dup := seen[r.Pollutant]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateReading, r.Pollutant)
		}
		seen[r.Pollutant] = struct{}{}

		table, ok := BreakpointsFor(r.Pollutant)
		if !ok {
			return nil, &UnknownPollutantError{Name: string(r.Pollutant)}
		}

		index, err := ComputeIndex(r.Value, table, a.index)
		if err != nil {
			return nil, &PollutantError{Pollutant: r.Pollutant, Err: err}
		}

		scores = append(scores, PollutantScore{
			Pollutant:     r.Pollutant,
			Concentration: r.Value,
			Index:         index,
			Score:         100 - index,
		})
	}
	return scores, nil
}

// Aggregate assesses readings with the default selector and the given index
// table.
func Aggregate(readings []Reading, index IndexTable) (Assessment, error) {
	return NewAssessor(WithIndexTable(index)).Aggregate(readings)
}
