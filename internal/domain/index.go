package domain

import "math"

// SanitizeConcentration strips the sign from a raw sensor value. Stations
// occasionally report small negative concentrations (notably O3); these are
// scored by magnitude.
func SanitizeConcentration(v float64) float64 {
	return math.Abs(v)
}

// ComputeIndex maps a concentration onto the index scale by linear interpolation
// between the bounds of its matching pollutant band and the corresponding index
// band.
//
// Band 0 matches only strictly inside its bounds; bands 1–5 include both bounds.
// A value matching no band yields *UnmatchedRangeError, and a matched band with
// equal bounds yields *DegenerateRangeError.
func ComputeIndex(concentration float64, table BreakpointTable, index IndexTable) (float64, error) {
	v := SanitizeConcentration(concentration)

	i, ok := matchBand(v, table)
	if !ok {
		return 0, &UnmatchedRangeError{Concentration: v}
	}

	poll, target := table[i], index[i]
	if poll.High == poll.Low {
		return 0, &DegenerateRangeError{Band: i, Bound: poll.Low}
	}

	return (target.High-target.Low)*(v-poll.Low)/(poll.High-poll.Low) + target.Low, nil
}

// matchBand returns the position of the first band containing v.
func matchBand(v float64, table BreakpointTable) (int, bool) {
	if b := table[0]; b.Low < v && v < b.High {
		return 0, true
	}
	for i := 1; i < BandCount; i++ {
		if b := table[i]; b.Low <= v && v <= b.High {
			return i, true
		}
	}
	return 0, false
}
