package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// frame pipeline and its adapters.
type Metrics struct {
	FramesBuilt        *prometheus.CounterVec // labels: region, kind={daily,cummean,both}
	FramesSkipped      prometheus.Counter
	FrameBuildDuration prometheus.Histogram
	BatchRuns          *prometheus.CounterVec // labels: outcome={success,partial,error}
	BatchActive        prometheus.Gauge

	// Archive and near-real-time source metrics.
	ArchiveLoadDuration prometheus.Histogram
	NRTFetches          *prometheus.CounterVec // labels: outcome={success,error,empty}
	NRTCache            *prometheus.CounterVec // labels: result={hit,miss}
	NRTAPIDuration      prometheus.Histogram

	// Delivery metrics.
	EventsPublished prometheus.Counter
	GIFsComposed    prometheus.Counter

	// HTTP metrics.
	HTTPRequests *prometheus.CounterVec   // labels: route, status
	HTTPDuration *prometheus.HistogramVec // labels: route
}

// NewMetrics creates and registers all tracker metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FramesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "frames_built_total",
			Help:      "Total frames assembled, by region and panel kind.",
		}, []string{"region", "kind"}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "frames_skipped_total",
			Help:      "Total frames skipped because the output file already existed.",
		}),
		FrameBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tastracker",
			Name:      "frame_build_duration_seconds",
			Help:      "Duration of one complete frame build chain.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "batch_runs_total",
			Help:      "Completed batch runs, by outcome.",
		}, []string{"outcome"}),
		BatchActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tastracker",
			Name:      "batch_active",
			Help:      "1 while a batch run is in progress, 0 otherwise.",
		}),
		ArchiveLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tastracker",
			Name:      "archive_load_duration_seconds",
			Help:      "Duration of loading a full regional archive from Postgres.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		NRTFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "nrt_fetch_total",
			Help:      "Near-real-time feed requests by outcome.",
		}, []string{"outcome"}),
		NRTCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "nrt_cache_total",
			Help:      "Near-real-time feed cache lookups by result.",
		}, []string{"result"}),
		NRTAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tastracker",
			Name:      "nrt_api_duration_seconds",
			Help:      "Near-real-time feed request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "events_published_total",
			Help:      "Total frame-set events written to Kafka.",
		}),
		GIFsComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "gifs_composed_total",
			Help:      "Total animated GIFs assembled from frame files.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastracker",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tastracker",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
	}

	prometheus.MustRegister(
		m.FramesBuilt,
		m.FramesSkipped,
		m.FrameBuildDuration,
		m.BatchRuns,
		m.BatchActive,
		m.ArchiveLoadDuration,
		m.NRTFetches,
		m.NRTCache,
		m.NRTAPIDuration,
		m.EventsPublished,
		m.GIFsComposed,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FramesBuilt:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tastracker", Name: "frames_built_total"}, []string{"region", "kind"}),
		FramesSkipped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tastracker", Name: "frames_skipped_total"}),
		FrameBuildDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tastracker", Name: "frame_build_duration_seconds"}),
		BatchRuns:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tastracker", Name: "batch_runs_total"}, []string{"outcome"}),
		BatchActive:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tastracker", Name: "batch_active"}),
		ArchiveLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tastracker", Name: "archive_load_duration_seconds"}),
		NRTFetches:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tastracker", Name: "nrt_fetch_total"}, []string{"outcome"}),
		NRTCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tastracker", Name: "nrt_cache_total"}, []string{"result"}),
		NRTAPIDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tastracker", Name: "nrt_api_duration_seconds"}),
		EventsPublished:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tastracker", Name: "events_published_total"}),
		GIFsComposed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tastracker", Name: "gifs_composed_total"}),
		HTTPRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tastracker", Name: "http_requests_total"}, []string{"route", "status"}),
		HTTPDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "tastracker", Name: "http_request_duration_seconds"}, []string{"route"}),
	}
}
