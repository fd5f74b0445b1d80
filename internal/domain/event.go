package domain

import "time"

// StationSnapshot is the latest data block published by a monitoring station.
type StationSnapshot struct {
	StationID  int
	MeasuredAt time.Time
	Readings   []Reading
	Weather    Weather
}

// Weather holds the meteorological channels reported alongside pollutants.
// They are carried through to the output unchanged and never scored.
type Weather struct {
	Rain        *float64 `json:"rain,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// AssessmentEvent is the published result of assessing one snapshot.
type AssessmentEvent struct {
	ID          string           `json:"id"`
	StationID   int              `json:"station_id"`
	MeasuredAt  time.Time        `json:"measured_at"`
	Score       float64          `json:"score"`
	Color       Color            `json:"color"`
	Description Description      `json:"description"`
	Pollutants  []PollutantScore `json:"pollutants"`
	Weather     Weather          `json:"weather"`
	ProcessedAt time.Time        `json:"processed_at"`
}

// OutputEvent is the serialized form handed to sinks.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
