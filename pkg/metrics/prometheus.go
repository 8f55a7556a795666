// Package metrics provides Prometheus metrics for the takraw scoring service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	playsRecorded    *prometheus.CounterVec
	pointsAwarded    *prometheus.CounterVec
	undos            *prometheus.CounterVec
	setsFinished     *prometheus.CounterVec
	commandsRejected *prometheus.CounterVec
	commandsDup      prometheus.Counter
	activeMatches    prometheus.Gauge

	// Command execution
	queueSize      *prometheus.GaugeVec
	queueCapacity  prometheus.Gauge
	queueRejected  *prometheus.CounterVec
	workerCount    prometheus.Gauge
	commandLatency *prometheus.HistogramVec

	// Persistence
	persistenceFailures *prometheus.CounterVec
	storeLatency        *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Runtime
	memoryBytes prometheus.Gauge
	goroutines  prometheus.Gauge
	gcPause     prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton behind the package-level record functions

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "takraw",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.playsRecorded = auto.NewCounterVec(m.counterOpts("plays_recorded_total", "Plays recorded by play type and outcome"), []string{"play_type", "outcome"})
	m.pointsAwarded = auto.NewCounterVec(m.counterOpts("points_awarded_total", "Points awarded by team"), []string{"team"})
	m.undos = auto.NewCounterVec(m.counterOpts("undo_total", "Undo operations by tier"), []string{"tier"})
	m.setsFinished = auto.NewCounterVec(m.counterOpts("sets_finished_total", "Sets finished by winning team"), []string{"winner"})
	m.commandsRejected = auto.NewCounterVec(m.counterOpts("commands_rejected_total", "Commands rejected by reason"), []string{"reason"})
	m.commandsDup = auto.NewCounter(m.counterOpts("commands_duplicate_total", "Commands acknowledged as duplicates of an earlier command id"))
	m.activeMatches = auto.NewGauge(m.gaugeOpts("active_matches", "Matches whose set is still in play"))

	m.queueSize = auto.NewGaugeVec(m.gaugeOpts("queue_size", "Commands waiting per shard"), []string{"shard"})
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of each shard queue"))
	m.queueRejected = auto.NewCounterVec(m.counterOpts("queue_rejected_total", "Commands refused by the queue"), []string{"reason"})
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Serial executors running"))
	m.commandLatency = auto.NewHistogramVec(m.histogramOpts("command_latency_milliseconds", "Time from submission to reply per command kind"), []string{"kind"})

	m.persistenceFailures = auto.NewCounterVec(m.counterOpts("persistence_failures_total", "Failed saves by entity; engine state is kept"), []string{"entity"})
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds", "Repository call latency by operation"), []string{"op"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(m.counterOpts("http_errors_total", "HTTP error responses by endpoint, error type and severity"), []string{"endpoint", "method", "error_type", "severity"})

	m.memoryBytes = auto.NewGauge(m.gaugeOpts("memory_alloc_bytes", "Heap bytes allocated"))
	m.goroutines = auto.NewGauge(m.gaugeOpts("goroutines", "Live goroutines"))
	m.gcPause = auto.NewHistogram(m.histogramOpts("gc_pause_milliseconds", "Average GC pause sampled periodically"))
}

// RecordPlay counts a committed play.
func RecordPlay(playType string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	globalManager.playsRecorded.WithLabelValues(playType, outcome).Inc()
}

// RecordPoint counts a point for team ("A" or "B").
func RecordPoint(team string) {
	globalManager.pointsAwarded.WithLabelValues(team).Inc()
}

// RecordUndo counts an undo by tier.
func RecordUndo(tier string) {
	globalManager.undos.WithLabelValues(tier).Inc()
}

// RecordSetFinished counts a finished set.
func RecordSetFinished(winner string) {
	globalManager.setsFinished.WithLabelValues(winner).Inc()
}

// RecordRejected counts a command the engine or service refused.
func RecordRejected(reason string) {
	globalManager.commandsRejected.WithLabelValues(reason).Inc()
}

// RecordCommandDuplicate counts a repeated command id.
func RecordCommandDuplicate() {
	globalManager.commandsDup.Inc()
}

// UpdateActiveMatches sets the number of matches whose set is unfinished.
func UpdateActiveMatches(count int) {
	globalManager.activeMatches.Set(float64(count))
}

// UpdateQueueSize sets the backlog of one shard queue.
func UpdateQueueSize(shard, size int) {
	globalManager.queueSize.WithLabelValues(strconv.Itoa(shard)).Set(float64(size))
}

// UpdateQueueCapacity sets the per-shard queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a command the queue refused.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running executors.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordCommandLatency records submission-to-reply latency.
func RecordCommandLatency(kind string, latencyMs float64) {
	globalManager.commandLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordPersistenceFailure counts a failed save.
func RecordPersistenceFailure(entity string) {
	globalManager.persistenceFailures.WithLabelValues(entity).Inc()
}

// RecordStoreLatency records repository call latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryBytes.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.goroutines.Set(float64(n))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.gcPause.Observe(ms)
}

// GetRegistry returns the registry the package-level metrics live in.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
