package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the detection engine.
type Metrics struct {
	DetectionPasses  prometheus.Counter
	DetectionLatency prometheus.Histogram
	AnomaliesCreated *prometheus.CounterVec
	AnomaliesClosed  *prometheus.CounterVec
	ScoreEvents      prometheus.Counter
	GeofenceChecks   prometheus.Counter
	GeofenceBreaches prometheus.Counter
	DetectorFailures *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DetectionPasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trailguard_detection_passes_total",
			Help: "Total number of detection passes executed",
		}),
		DetectionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trailguard_detection_pass_duration_seconds",
			Help:    "Detection pass latency",
			Buckets: prometheus.DefBuckets,
		}),
		AnomaliesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trailguard_anomalies_created_total",
			Help: "Anomalies created, by type and severity",
		}, []string{"type", "severity"}),
		AnomaliesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trailguard_anomalies_closed_total",
			Help: "Anomalies transitioned to a terminal status",
		}, []string{"status"}),
		ScoreEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trailguard_score_events_total",
			Help: "Safety score ledger events appended",
		}),
		GeofenceChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trailguard_geofence_checks_total",
			Help: "Geofence evaluations performed",
		}),
		GeofenceBreaches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trailguard_geofence_breaches_total",
			Help: "Geofence evaluations that found at least one breached zone",
		}),
		DetectorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trailguard_detector_failures_total",
			Help: "Individual detector failures isolated within a pass",
		}, []string{"detector"}),
	}
}

// ObservePass records one completed detection pass.
func (m *Metrics) ObservePass(d time.Duration) {
	if m == nil {
		return
	}
	m.DetectionPasses.Inc()
	m.DetectionLatency.Observe(d.Seconds())
}

// IncAnomalyCreated records a newly created anomaly.
func (m *Metrics) IncAnomalyCreated(anomalyType, severity string) {
	if m == nil {
		return
	}
	m.AnomaliesCreated.WithLabelValues(anomalyType, severity).Inc()
}

// IncAnomalyClosed records a resolution transition.
func (m *Metrics) IncAnomalyClosed(status string) {
	if m == nil {
		return
	}
	m.AnomaliesClosed.WithLabelValues(status).Inc()
}

// IncScoreEvent records a ledger append.
func (m *Metrics) IncScoreEvent() {
	if m == nil {
		return
	}
	m.ScoreEvents.Inc()
}

// IncGeofenceCheck records a geofence evaluation and whether it breached.
func (m *Metrics) IncGeofenceCheck(breached bool) {
	if m == nil {
		return
	}
	m.GeofenceChecks.Inc()
	if breached {
		m.GeofenceBreaches.Inc()
	}
}

// IncDetectorFailure records an isolated detector failure.
func (m *Metrics) IncDetectorFailure(detector string) {
	if m == nil {
		return
	}
	m.DetectorFailures.WithLabelValues(detector).Inc()
}
