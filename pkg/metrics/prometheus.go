// Package metrics provides Prometheus metrics for the ladder rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ladder service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline metrics, one observation per replay run
	pipelineRuns      *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	snapshotsReplayed *prometheus.GaugeVec
	playersTracked    *prometheus.GaugeVec
	playersActive     *prometheus.GaugeVec
	rivalries         *prometheus.GaugeVec
	artifactsWritten  *prometheus.CounterVec

	// Ingestion metrics
	snapshotsIngested *prometheus.CounterVec
	snapshotsRejected *prometheus.CounterVec

	// Recompute queue metrics
	queueLength prometheus.Gauge
	jobs        *prometheus.CounterVec

	// Snapshot store metrics
	storedSnapshots prometheus.Gauge
	storeLatency    *prometheus.HistogramVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ladder",
		subsystem:        "rating",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.pipelineRuns = m.counterVec("pipeline_runs_total", "Pipeline runs by dataset and outcome", "dataset", "status")
	m.pipelineDuration = m.histogramVec("pipeline_duration_milliseconds", "Wall time of a full replay run", "dataset")
	m.snapshotsReplayed = m.gaugeVec("snapshots_replayed", "Snapshots replayed by the last run", "dataset")
	m.playersTracked = m.gaugeVec("players_tracked", "Players with a rating after the last run", "dataset")
	m.playersActive = m.gaugeVec("players_active", "Players passing the activity gate after the last run", "dataset")
	m.rivalries = m.gaugeVec("rivalries", "Qualifying rivalry pairs found by the last run", "dataset")
	m.artifactsWritten = m.counterVec("artifacts_written_total", "Artifacts atomically written", "category")

	m.snapshotsIngested = m.counterVec("snapshots_ingested_total", "Daily snapshots admitted to the store", "source")
	m.snapshotsRejected = m.counterVec("snapshots_rejected_total", "Ingest attempts rejected", "reason")

	m.queueLength = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "recompute_queue_length",
		Help:        "Recompute jobs waiting for the worker",
		ConstLabels: m.constLabels,
	})
	m.jobs = m.counterVec("recompute_jobs_total", "Recompute jobs by outcome", "status")

	m.storedSnapshots = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stored_snapshots",
		Help:        "Snapshots currently held by the store",
		ConstLabels: m.constLabels,
	})
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Snapshot store operation latency", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordPipelineRun counts a finished run; status is "ok" or "error".
func RecordPipelineRun(dataset, status string) {
	globalManager.pipelineRuns.WithLabelValues(dataset, status).Inc()
}

// RecordPipelineDuration records a run's wall time in milliseconds.
func RecordPipelineDuration(dataset string, ms float64) {
	globalManager.pipelineDuration.WithLabelValues(dataset).Observe(ms)
}

// UpdateReplayStats publishes the size of the last replay.
func UpdateReplayStats(dataset string, snapshots, players, active int) {
	globalManager.snapshotsReplayed.WithLabelValues(dataset).Set(float64(snapshots))
	globalManager.playersTracked.WithLabelValues(dataset).Set(float64(players))
	globalManager.playersActive.WithLabelValues(dataset).Set(float64(active))
}

// UpdateRivalries publishes the number of qualifying pairs.
func UpdateRivalries(dataset string, n int) {
	globalManager.rivalries.WithLabelValues(dataset).Set(float64(n))
}

// RecordArtifactWritten counts an artifact write.
func RecordArtifactWritten(category string) {
	globalManager.artifactsWritten.WithLabelValues(category).Inc()
}

// RecordSnapshotsIngested counts admitted snapshots.
func RecordSnapshotsIngested(source string, n int) {
	globalManager.snapshotsIngested.WithLabelValues(source).Add(float64(n))
}

// RecordSnapshotRejected counts a rejected ingest.
func RecordSnapshotRejected(reason string) {
	globalManager.snapshotsRejected.WithLabelValues(reason).Inc()
}

// UpdateQueueLength sets the number of waiting recompute jobs.
func UpdateQueueLength(n int) {
	globalManager.queueLength.Set(float64(n))
}

// RecordJob counts a recompute job transition: queued, coalesced, done or failed.
func RecordJob(status string) {
	globalManager.jobs.WithLabelValues(status).Inc()
}

// UpdateStoredSnapshots sets the number of stored snapshots.
func UpdateStoredSnapshots(n int) {
	globalManager.storedSnapshots.Set(float64(n))
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(op string, ms float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(ms)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
