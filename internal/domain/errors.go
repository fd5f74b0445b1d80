package domain

import (
	"errors"
	"fmt"
)

// UnmatchedRangeError reports a concentration that falls in no band of its
// breakpoint table, including values on the excluded edges of band 0 and values
// in the gaps between bands.
type UnmatchedRangeError struct {
	Concentration float64
}

func (e *UnmatchedRangeError) Error() string {
	return fmt.Sprintf("concentration %g matches no breakpoint band", e.Concentration)
}

// DegenerateRangeError reports a matched band whose low and high bounds are
// equal, which would divide by zero during interpolation.
type DegenerateRangeError struct {
	Band  int
	Bound float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("breakpoint band %d is degenerate (low == high == %g)", e.Band, e.Bound)
}

// InsufficientDataError reports too few scores to select a governing score.
type InsufficientDataError struct {
	Got  int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d pollutant scores, got %d", e.Need, e.Got)
}

// NoMatchingCategoryError reports a governing score outside every category band.
type NoMatchingCategoryError struct {
	Score float64
}

func (e *NoMatchingCategoryError) Error() string {
	return fmt.Sprintf("score %g matches no air-quality category", e.Score)
}

// UnknownPollutantError reports a pollutant identifier with no breakpoint table.
type UnknownPollutantError struct {
	Name string
}

func (e *UnknownPollutantError) Error() string {
	return fmt.Sprintf("unknown pollutant %q", e.Name)
}

// DataUnavailableError reports that the station's latest data could not be
// obtained: transport failure, non-200 status, open circuit, or a payload that
// does not decode.
type DataUnavailableError struct {
	StationID int
	Err       error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("station %d data unavailable: %v", e.StationID, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// ErrDuplicateReading is returned when a reading set names a pollutant twice.
var ErrDuplicateReading = errors.New("duplicate pollutant reading")

// PollutantError attaches the pollutant being scored to an index failure.
type PollutantError struct {
	Pollutant Pollutant
	Err       error
}

func (e *PollutantError) Error() string {
	return fmt.Sprintf("pollutant %s: %v", e.Pollutant, e.Err)
}

func (e *PollutantError) Unwrap() error { return e.Err }

// Error kinds used as metric labels and in API error bodies.
const (
	KindUnmatchedRange   = "unmatched_range"
	KindDegenerateRange  = "degenerate_range"
	KindInsufficientData = "insufficient_data"
	KindNoCategory       = "no_category"
	KindUnknownPollutant = "unknown_pollutant"
	KindDuplicateReading = "duplicate_reading"
	KindDataUnavailable  = "data_unavailable"
	KindInternal         = "internal"
)

// ErrorKind classifies an assessment error into a stable label. Errors that are
// not domain errors are reported as KindInternal.
func ErrorKind(err error) string {
	var (
		unmatched    *UnmatchedRangeError
		degenerate   *DegenerateRangeError
		insufficient *InsufficientDataError
		noCategory   *NoMatchingCategoryError
		unknown      *UnknownPollutantError
		unavailable  *DataUnavailableError
	)
	switch {
	case errors.As(err, &unmatched):
		return KindUnmatchedRange
	case errors.As(err, &degenerate):
		return KindDegenerateRange
	case errors.As(err, &insufficient):
		return KindInsufficientData
	case errors.As(err, &noCategory):
		return KindNoCategory
	case errors.As(err, &unknown):
		return KindUnknownPollutant
	case errors.Is(err, ErrDuplicateReading):
		return KindDuplicateReading
	case errors.As(err, &unavailable):
		return KindDataUnavailable
	default:
		return KindInternal
	}
}

// IsAssessmentError reports whether err originates from the scoring engine
// rather than from I/O or programming faults.
func IsAssessmentError(err error) bool {
	if err == nil {
		return false
	}
	kind := ErrorKind(err)
	return kind != KindInternal && kind != KindDataUnavailable
}
