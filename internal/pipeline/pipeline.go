package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Extractor fetches the latest station snapshot.
type Extractor interface {
	FetchLatest(ctx context.Context) (domain.StationSnapshot, error)
}

// Transformer assesses a snapshot into an output event.
type Transformer interface {
	Transform(ctx context.Context, snap domain.StationSnapshot) (domain.AssessmentEvent, error)
}

// Loader publishes an assessment event to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, event domain.AssessmentEvent) error
}

// ErrUnchanged is returned by RunOnce when the station has not published a
// new measurement since the last published or rejected one.
var ErrUnchanged = errors.New("snapshot unchanged since last cycle")

// Pipeline orchestrates the poll-assess-publish loop.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	clock       clockwork.Clock
	ready       atomic.Bool

	mu           sync.RWMutex
	latest       domain.AssessmentEvent
	lastMeasured time.Time
	// lastRejected is the measurement time the engine last failed to assess.
	// Assessment is deterministic, so it is not retried until a new one arrives.
	lastRejected time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New creates a Pipeline that polls every interval and fans each assessment
// out to all loaders.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once an assessment has been published, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published an assessment yet")
	}
	return nil
}

// Latest returns the last published assessment, if any.
func (p *Pipeline) Latest() (domain.AssessmentEvent, bool) {
	if !p.ready.Load() {
		return domain.AssessmentEvent{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, true
}

// Run polls immediately and then on every tick until the context is
// cancelled. A failed cycle is logged and the loop waits for the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "sinks", len(p.loaders))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, ErrUnchanged) {
			p.logger.Error("cycle failed", "error", err, "kind", domain.ErrorKind(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce executes one fetch-assess-publish cycle.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	start := p.clock.Now()
	p.metrics.PollsTotal.Inc()

	snap, err := p.extractor.FetchLatest(ctx)
	if err != nil {
		p.metrics.FetchErrors.Inc()
		return fmt.Errorf("fetch: %w", err)
	}

	if p.unchanged(snap.MeasuredAt) {
		p.metrics.SnapshotsSkipped.Inc()
		p.logger.Debug("snapshot unchanged, skipping", "measured_at", snap.MeasuredAt)
		return ErrUnchanged
	}

	event, err := p.transformer.Transform(ctx, snap)
	if err != nil {
		p.metrics.AssessmentErrors.WithLabelValues(domain.ErrorKind(err)).Inc()
		if domain.IsAssessmentError(err) {
			p.mu.Lock()
			p.lastRejected = snap.MeasuredAt
			p.mu.Unlock()
		}
		return fmt.Errorf("assess: %w", err)
	}
	p.recordAssessment(event)

	if err := p.load(ctx, event); err != nil {
		return err
	}

	p.mu.Lock()
	p.latest = event
	p.lastMeasured = snap.MeasuredAt
	p.mu.Unlock()
	p.ready.Store(true)

	p.metrics.CycleDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Info("assessment published",
		"id", event.ID,
		"measured_at", event.MeasuredAt,
		"score", event.Score,
		"category", event.Description,
	)
	return nil
}

func (p *Pipeline) unchanged(measuredAt time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, seen := range []time.Time{p.lastMeasured, p.lastRejected} {
		if !seen.IsZero() && seen.Equal(measuredAt) {
			return true
		}
	}
	return false
}

// load publishes to every sink concurrently. One failing sink does not stop
// the others; the first error is returned.
func (p *Pipeline) load(ctx context.Context, event domain.AssessmentEvent) error {
	var g errgroup.Group
	for _, l := range p.loaders {
		g.Go(func() error {
			if err := l.Load(ctx, event); err != nil {
				p.metrics.PublishErrors.WithLabelValues(l.Name()).Inc()
				p.logger.Error("publish failed", "sink", l.Name(), "id", event.ID, "error", err)
				return fmt.Errorf("load %s: %w", l.Name(), err)
			}
			p.metrics.Published.WithLabelValues(l.Name()).Inc()
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) recordAssessment(event domain.AssessmentEvent) {
	p.metrics.GoverningScore.Set(event.Score)
	for _, s := range event.Pollutants {
		p.metrics.PollutantIndex.WithLabelValues(string(s.Pollutant)).Set(s.Index)
	}
	for _, d := range []domain.Description{domain.Good, domain.Moderate, domain.High, domain.VeryHigh} {
		v := 0.0
		if d == event.Description {
			v = 1
		}
		p.metrics.Category.WithLabelValues(string(d)).Set(v)
	}
}
