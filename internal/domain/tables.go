package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// BandCount is the number of severity bands in every breakpoint table.
const BandCount = 6

// Band is one (low, high) interval of a breakpoint table.
type Band struct {
	Low  float64 `json:"low" toml:"low"`
	High float64 `json:"high" toml:"high"`
}

// BreakpointTable holds the six concentration bands of one pollutant, ordered
// from least severe (0) to most severe (5).
type BreakpointTable [BandCount]Band

// IndexTable is the target scale that concentrations are interpolated onto.
type IndexTable = BreakpointTable

// Pollutant identifies one of the tracked pollutants.
type Pollutant string

const (
	NOX  Pollutant = "NOX"
	NO2  Pollutant = "NO2"
	O3   Pollutant = "O3"
	PM25 Pollutant = "PM2_5"
	SO2  Pollutant = "SO2"
)

// DefaultIndexTable is the standard 0–500 index scale.
var DefaultIndexTable = IndexTable{
	{0, 49}, {50, 100}, {101, 200}, {201, 300}, {301, 400}, {401, 500},
}

// breakpoints are the regulatory concentration thresholds per pollutant.
var breakpoints = map[Pollutant]BreakpointTable{
	O3:   {{0, 35}, {36, 70}, {71, 97}, {98, 117}, {118, 155}, {156, 188}},
	NO2:  {{0, 53}, {54, 105}, {106, 160}, {161, 213}, {214, 260}, {261, 316}},
	SO2:  {{0, 67}, {68, 133}, {134, 163}, {164, 191}, {192, 253}, {254, 303}},
	NOX:  {{0, 250}, {251, 499}, {500, 750}, {751, 1000}, {1001, 1200}, {1201, 1400}},
	PM25: {{0, 18.5}, {18.6, 37}, {37.5, 84}, {84.5, 130}, {130.5, 165}, {165.5, 200}},
}

// Pollutants returns every tracked pollutant in a stable order.
func Pollutants() []Pollutant {
	return []Pollutant{NOX, NO2, O3, PM25, SO2}
}

// BreakpointsFor returns the breakpoint table of p.
func BreakpointsFor(p Pollutant) (BreakpointTable, bool) {
	t, ok := breakpoints[p]
	return t, ok
}

// ParsePollutant resolves an identifier such as "o3", "PM2.5" or "pm25" to a
// tracked pollutant.
func ParsePollutant(s string) (Pollutant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NOX":
		return NOX, nil
	case "NO2":
		return NO2, nil
	case "O3":
		return O3, nil
	case "PM2_5", "PM2.5", "PM25":
		return PM25, nil
	case "SO2":
		return SO2, nil
	default:
		return "", &UnknownPollutantError{Name: s}
	}
}

// Validate checks that every bound is finite, that every band has Low <= High,
// and that bands are ascending and do not overlap.
func (t BreakpointTable) Validate() error {
	var errs []error
	for i, b := range t {
		if !isFinite(b.Low) || !isFinite(b.High) {
			errs = append(errs, fmt.Errorf("band %d: bounds must be finite, got [%g, %g]", i, b.Low, b.High))
			continue
		}
		if b.Low > b.High {
			errs = append(errs, fmt.Errorf("band %d: low %g exceeds high %g", i, b.Low, b.High))
		}
		if i > 0 && b.Low <= t[i-1].High {
			errs = append(errs, fmt.Errorf("band %d: low %g overlaps band %d high %g", i, b.Low, i-1, t[i-1].High))
		}
	}
	return errors.Join(errs...)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
