package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// AssessmentTransformer implements Transformer by running the scoring engine
// over a snapshot's readings.
type AssessmentTransformer struct {
	assessor *domain.Assessor
	logger   *slog.Logger
}

// NewTransformer creates an AssessmentTransformer.
func NewTransformer(assessor *domain.Assessor, logger *slog.Logger) *AssessmentTransformer {
	return &AssessmentTransformer{
		assessor: assessor,
		logger:   logger,
	}
}

// Transform scores the snapshot and builds the event to publish. Assessment
// errors are wrapped with the station and measurement time.
func (t *AssessmentTransformer) Transform(ctx context.Context, snap domain.StationSnapshot) (domain.AssessmentEvent, error) {
	a, err := t.assessor.Aggregate(snap.Readings)
	if err != nil {
		return domain.AssessmentEvent{}, fmt.Errorf("station %d at %s: %w",
			snap.StationID, snap.MeasuredAt.Format(time.RFC3339), err)
	}

	if t.logger.Enabled(ctx, slog.LevelDebug) {
		for _, s := range a.Pollutants {
			t.logger.DebugContext(ctx, "pollutant scored",
				"pollutant", s.Pollutant,
				"concentration", s.Concentration,
				"index", s.Index,
				"score", s.Score,
			)
		}
		t.logger.DebugContext(ctx, "governing score selected",
			"score", a.Score,
			"color", a.Category.Color,
			"description", a.Category.Description,
		)
	}

	return domain.NewAssessmentEvent(snap, a), nil
}
