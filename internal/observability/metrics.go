package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "air_quality"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment pipeline.
type Metrics struct {
	PollsTotal       prometheus.Counter
	FetchErrors      prometheus.Counter
	AssessmentErrors *prometheus.CounterVec // labels: kind
	SnapshotsSkipped prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Sink metrics.
	Published     *prometheus.CounterVec // labels: sink
	PublishErrors *prometheus.CounterVec // labels: sink

	// Assessment results.
	GoverningScore prometheus.Gauge
	PollutantIndex *prometheus.GaugeVec // labels: pollutant
	Category       *prometheus.GaugeVec // labels: description; 1 for the current category

	CycleDuration prometheus.Histogram

	// Upstream station API.
	StationRequests        *prometheus.CounterVec // labels: outcome={success,error,breaker_open}
	StationRequestDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total poll cycles started.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Poll cycles that failed to fetch station data.",
		}),
		AssessmentErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_errors_total",
			Help:      "Assessments that failed, by error kind.",
		}, []string{"kind"}),
		SnapshotsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_skipped_total",
			Help:      "Snapshots skipped because their measurement time was already published.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Assessments published, by sink.",
		}, []string{"sink"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publishes, by sink.",
		}, []string{"sink"}),
		GoverningScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "governing_score",
			Help:      "Governing pollution score of the latest assessment.",
		}),
		PollutantIndex: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pollutant_index",
			Help:      "Standardized index of each pollutant in the latest assessment.",
		}, []string{"pollutant"}),
		Category: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category",
			Help:      "1 for the category of the latest assessment, 0 for the others.",
		}, []string{"description"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-assess-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		StationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_requests_total",
			Help:      "Station API requests by outcome.",
		}, []string{"outcome"}),
		StationRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "station_request_duration_seconds",
			Help:      "Station API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PollsTotal,
		m.FetchErrors,
		m.AssessmentErrors,
		m.SnapshotsSkipped,
		m.PipelineRunning,
		m.Published,
		m.PublishErrors,
		m.GoverningScore,
		m.PollutantIndex,
		m.Category,
		m.CycleDuration,
		m.StationRequests,
		m.StationRequestDuration,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewMetricsFor creates metrics registered with reg instead of the default
// registry. One-shot commands use a private registry.
func NewMetricsFor(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}
