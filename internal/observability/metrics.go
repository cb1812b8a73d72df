package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the relay.
type Metrics struct {
	ReportsQueued     prometheus.Counter
	ReportsSubmitted  prometheus.Counter
	ReportsSynced     prometheus.Counter
	SubmitFailures    prometheus.Counter
	SyncFailures      prometheus.Counter
	PhotoUploadErrors prometheus.Counter
	SyncRunning       prometheus.Gauge
	PendingReports    prometheus.Gauge
	Online            prometheus.Gauge

	// Kafka mirror metrics.
	MirrorPublished prometheus.Counter
	MirrorFailures  prometheus.Counter
	MirrorEnabled   prometheus.Gauge

	// Sync pass metrics.
	SyncBatchSize    prometheus.Histogram
	SyncPassDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all relay metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "reports_queued_total",
			Help:      "Total reports written to the offline spool.",
		}),
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "reports_submitted_total",
			Help:      "Total reports accepted by the hosted backend on the live path.",
		}),
		ReportsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "reports_synced_total",
			Help:      "Total spooled reports drained by sync passes.",
		}),
		SubmitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "submit_failures_total",
			Help:      "Total live submissions rejected while the backend stayed reachable.",
		}),
		SyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "sync_failures_total",
			Help:      "Total inserts rejected during sync passes; the reports stay queued.",
		}),
		PhotoUploadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "photo_upload_errors_total",
			Help:      "Total photos dropped from reports after upload or read failures.",
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_relay",
			Name:      "sync_running",
			Help:      "1 when the sync loop is active, 0 when shut down.",
		}),
		PendingReports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_relay",
			Name:      "pending_reports",
			Help:      "Reports currently waiting in the offline spool.",
		}),
		Online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_relay",
			Name:      "backend_online",
			Help:      "1 when the hosted backend is reachable, 0 when offline.",
		}),
		MirrorPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "mirror_published_total",
			Help:      "Total accepted rows published to the Kafka mirror topic.",
		}),
		MirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "mirror_failures_total",
			Help:      "Total mirror publishes that failed; acceptance is unaffected.",
		}),
		MirrorEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_relay",
			Name:      "mirror_enabled",
			Help:      "1 when Kafka mirroring is enabled, 0 otherwise.",
		}),
		SyncBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_relay",
			Name:      "sync_batch_size",
			Help:      "Number of spooled reports attempted per sync pass.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		SyncPassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_relay",
			Name:      "sync_pass_duration_seconds",
			Help:      "Duration of a complete sync pass over the spool.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_relay",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hazard_relay",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_relay",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsQueued,
		m.ReportsSubmitted,
		m.ReportsSynced,
		m.SubmitFailures,
		m.SyncFailures,
		m.PhotoUploadErrors,
		m.SyncRunning,
		m.PendingReports,
		m.Online,
		m.MirrorPublished,
		m.MirrorFailures,
		m.MirrorEnabled,
		m.SyncBatchSize,
		m.SyncPassDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsQueued:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "reports_queued_total"}),
		ReportsSubmitted:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "reports_submitted_total"}),
		ReportsSynced:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "reports_synced_total"}),
		SubmitFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "submit_failures_total"}),
		SyncFailures:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "sync_failures_total"}),
		PhotoUploadErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "photo_upload_errors_total"}),
		SyncRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_relay", Name: "sync_running"}),
		PendingReports:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_relay", Name: "pending_reports"}),
		Online:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_relay", Name: "backend_online"}),
		MirrorPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "mirror_published_total"}),
		MirrorFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "mirror_failures_total"}),
		MirrorEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_relay", Name: "mirror_enabled"}),
		SyncBatchSize:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_relay", Name: "sync_batch_size"}),
		SyncPassDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazard_relay", Name: "sync_pass_duration_seconds"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "geocode_requests_total"}, []string{"method", "outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazard_relay", Name: "geocode_cache_total"}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "hazard_relay", Name: "geocode_api_duration_seconds"}, []string{"method"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazard_relay", Name: "geocode_enabled"}),
	}
}
