package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// processedClock stamps ProcessedAt on new events.
var processedClock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the clock used for ProcessedAt; nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	processedClock = c
}

// NewAssessmentEvent combines a snapshot with its assessment and stamps the
// processing time.
func NewAssessmentEvent(snap StationSnapshot, a Assessment) AssessmentEvent {
	return AssessmentEvent{
		ID:          generateID(snap.StationID, snap.MeasuredAt),
		StationID:   snap.StationID,
		MeasuredAt:  snap.MeasuredAt.UTC(),
		Score:       a.Score,
		Color:       a.Category.Color,
		Description: a.Category.Description,
		Pollutants:  a.Pollutants,
		Weather:     snap.Weather,
		ProcessedAt: processedClock.Now().UTC(),
	}
}

// SerializeAssessmentEvent marshals an event for the sinks. The key is the
// event ID so replays of the same measurement land on the same key.
func SerializeAssessmentEvent(e AssessmentEvent) (OutputEvent, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize assessment event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(e.ID),
		Value: data,
		Headers: map[string]string{
			"category":     string(e.Description),
			"processed_at": e.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID derives a deterministic ID from the station and measurement time.
func generateID(stationID int, measuredAt time.Time) string {
	input := fmt.Sprintf("%d|%s", stationID, measuredAt.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("station-%d-%s", stationID, hex.EncodeToString(hash[:8]))
}
