package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Snapshot builder metrics.
	SnapshotsBuilt        prometheus.Counter
	SnapshotEmptyJoins    prometheus.Counter
	SnapshotBuildDuration prometheus.Histogram

	// Render metrics.
	RenderRequests *prometheus.CounterVec // labels: metric, outcome={success,error}
	SessionEvents  *prometheus.CounterVec // labels: event={day,metric}

	// Publisher metrics.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	PublisherRunning   prometheus.Gauge
	PublishBatchSize   prometheus.Histogram

	// Source data gauges, set once at startup.
	CountiesLoaded   prometheus.Gauge
	SeriesRowsLoaded prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SnapshotsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "snapshots_built_total",
			Help:      "Total day snapshots built.",
		}),
		SnapshotEmptyJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "snapshot_empty_joins_total",
			Help:      "Snapshots built for a day with no metric rows.",
		}),
		SnapshotBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "choropleth",
			Name:      "snapshot_build_duration_seconds",
			Help:      "Duration of a snapshot join and GeoJSON encode.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RenderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "render_requests_total",
			Help:      "Render payload requests by metric and outcome.",
		}, []string{"metric", "outcome"}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "session_events_total",
			Help:      "Selection change events by type.",
		}, []string{"event"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "snapshots_published_total",
			Help:      "Total snapshots written to the sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "publish_errors_total",
			Help:      "Total failed sink writes.",
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "choropleth",
			Name:      "publisher_running",
			Help:      "1 while the snapshot publisher is active, 0 otherwise.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "choropleth",
			Name:      "publish_batch_size",
			Help:      "Number of snapshots per sink write.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		CountiesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "choropleth",
			Name:      "counties_loaded",
			Help:      "Counties in the geometry table.",
		}),
		SeriesRowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "choropleth",
			Name:      "series_rows_loaded",
			Help:      "Rows in the daily metric series.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SnapshotsBuilt,
		m.SnapshotEmptyJoins,
		m.SnapshotBuildDuration,
		m.RenderRequests,
		m.SessionEvents,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.PublisherRunning,
		m.PublishBatchSize,
		m.CountiesLoaded,
		m.SeriesRowsLoaded,
	}
}
