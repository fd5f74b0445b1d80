// Package domain scores the pollutant readings of an air-quality monitoring
// station and classifies the result.
//
// # Data Source
//
// Readings come from the Envista API of the Israeli Ministry of Environmental
// Protection (https://api.svivaaqm.net/v1/envista). Each station publishes a
// "latest" data block every few minutes: one timestamp and a list of channels,
// each channel carrying one pollutant or weather value.
//
// # Index Calculation
//
// Every pollutant has six regulatory concentration bands (see [BreakpointsFor]).
// A concentration is located in its band and linearly remapped onto the same band
// of the index table:
//
//	index = (iHigh - iLow) * (c - cLow) / (cHigh - cLow) + iLow
//
// The default index table spans 0–500 ([DefaultIndexTable]). Band 0 is matched
// with strict bounds and bands 1–5 with inclusive bounds, so a concentration of
// exactly 0 or exactly the band-0 upper bound is unmatched. Values in the gaps
// between bands (e.g. O3 35.5) are unmatched too.
//
// Negative concentrations are a known station artifact and are scored by
// magnitude ([SanitizeConcentration]).
//
// # Overall Score
//
// Each index is inverted into a pollution score (100 - index), so cleaner air
// scores higher and the dirtiest pollutant sorts first. The governing score is
// chosen from the ascending scores by a [GoverningScoreSelector]; the default
// [SecondSmallest] takes the second entry. The governing score is then
// classified into one of four open intervals:
//
//	(-400, -201)  green   Good
//	(-200,   -1)  yellow  Moderate
//	(   0,   50)  red     High
//	(  51,  100)  brown   Very High
//
// A score on an interval edge has no category and yields
// [NoMatchingCategoryError].
package domain
