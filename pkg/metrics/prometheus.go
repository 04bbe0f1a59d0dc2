// Package metrics provides Prometheus metrics for the pulse matching service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	PathACR       = "acr"
	PathHeuristic = "heuristic"
	PathNone      = "none"
	PathError     = "error"

	OutcomeOK        = "ok"
	OutcomeMatch     = "match"
	OutcomeNoMatch   = "no_match"
	OutcomeLowConf   = "below_threshold"
	OutcomeUnresolve = "unresolved"
	OutcomeError     = "error"
	OutcomePanic     = "panic"

	PersistSaved   = "saved"
	PersistFailed  = "failed"
	PersistDropped = "dropped"
)

// Manager manages all Prometheus metrics for the pulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Matching
	resolutions       *prometheus.CounterVec
	resolveLatency    prometheus.Histogram
	resolveConfidence *prometheus.HistogramVec
	heuristicScore    prometheus.Histogram

	// ACR providers
	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	registeredCount  prometheus.Gauge

	// Content collaborator
	contentCalls *prometheus.CounterVec

	// Persistence pipeline
	persistResults     *prometheus.CounterVec
	persistLatency     prometheus.Histogram
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	storedEntries      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pulse",
		subsystem:        "matcher",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
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

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	confidenceBuckets := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1}

	m.resolutions = m.counterVec("resolutions_total", "Resolve calls by terminal path (acr, heuristic, none, error)", "path")
	m.resolveLatency = m.histogram("resolve_latency_milliseconds", "End-to-end Resolve latency in milliseconds", m.histogramBuckets)
	m.resolveConfidence = m.histogramVec("resolve_confidence", "Confidence of returned matches", confidenceBuckets, "path")
	m.heuristicScore = m.histogram("heuristic_winning_score", "Raw additive score of the heuristic winner", []float64{15, 30, 45, 50, 60, 75, 80, 90, 110})

	m.providerAttempts = m.counterVec("acr_provider_attempts_total", "ACR provider calls by provider and outcome", "provider", "outcome")
	m.providerLatency = m.histogramVec("acr_provider_latency_milliseconds", "ACR provider call latency in milliseconds", m.histogramBuckets, "provider")
	m.registeredCount = m.gauge("acr_providers_registered", "Number of registered ACR providers")

	m.contentCalls = m.counterVec("content_calls_total", "Content retrieval calls by operation and outcome", "operation", "outcome")

	m.persistResults = m.counterVec("persist_results_total", "Pulse entry persistence outcomes", "outcome")
	m.persistLatency = m.histogram("persist_latency_milliseconds", "Event store write latency in milliseconds", m.histogramBuckets)
	m.queueSize = m.gauge("persist_queue_size", "Current size of the persistence queue")
	m.queueCapacity = m.gauge("persist_queue_capacity", "Maximum persistence queue capacity")
	m.queueEnqueues = m.counter("persist_queue_enqueue_total", "Total number of entries enqueued")
	m.queueDequeues = m.counter("persist_queue_dequeue_total", "Total number of entries dequeued")
	m.queueEnqueueErrors = m.counter("persist_queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.workerCount = m.gauge("persist_worker_count", "Number of persistence workers")
	m.storedEntries = m.gauge("stored_entries", "Number of pulse entries in the event store")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// RecordResolution counts a Resolve call by its terminal path.
func RecordResolution(path string) {
	globalManager.resolutions.WithLabelValues(path).Inc()
}

// RecordResolveLatency records end-to-end Resolve latency.
func RecordResolveLatency(latencyMs float64) {
	globalManager.resolveLatency.Observe(latencyMs)
}

// RecordConfidence records the confidence of a returned match.
func RecordConfidence(path string, confidence float64) {
	globalManager.resolveConfidence.WithLabelValues(path).Observe(confidence)
}

// RecordHeuristicScore records the raw score of the heuristic winner.
func RecordHeuristicScore(score int) {
	globalManager.heuristicScore.Observe(float64(score))
}

// RecordProviderAttempt counts an ACR provider call outcome.
func RecordProviderAttempt(provider, outcome string) {
	globalManager.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

// RecordProviderLatency records an ACR provider call latency.
func RecordProviderLatency(provider string, latencyMs float64) {
	globalManager.providerLatency.WithLabelValues(provider).Observe(latencyMs)
}

// UpdateRegisteredProviders sets the registered provider gauge.
func UpdateRegisteredProviders(count int) {
	globalManager.registeredCount.Set(float64(count))
}

// RecordContentCall counts a content retrieval call.
func RecordContentCall(operation, outcome string) {
	globalManager.contentCalls.WithLabelValues(operation, outcome).Inc()
}

// RecordPersistResult counts a persistence outcome.
func RecordPersistResult(outcome string) {
	globalManager.persistResults.WithLabelValues(outcome).Inc()
}

// RecordPersistLatency records an event store write latency.
func RecordPersistLatency(latencyMs float64) {
	globalManager.persistLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateStoredEntries sets the event store size.
func UpdateStoredEntries(count int) {
	globalManager.storedEntries.Set(float64(count))
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
