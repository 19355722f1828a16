// Package metrics provides Prometheus metrics for the hand reconstruction service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Pipeline
	handsBuilt           prometheus.Counter
	validationFailures   *prometheus.CounterVec
	handErrors           *prometheus.CounterVec
	iterations           *prometheus.CounterVec
	retries              prometheus.Counter
	outcomes             *prometheus.CounterVec
	extractionDuration   prometheus.Histogram
	extractionErrors     prometheus.Counter
	extractionCost       prometheus.Counter
	extractionConfidence prometheus.Histogram
	nameMatches          *prometheus.CounterVec
	ocrParses            *prometheus.CounterVec

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerActive       prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// Adapters
	eventsPublished *prometheus.CounterVec
	repositoryOps   *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // package-level Record* helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global manager bound to the custom registry
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "handrecon",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.handsBuilt = m.counter("hands_built_total", "Hand histories assembled from vision batches")
	m.validationFailures = m.counterVec("validation_failures_total", "Structural validation failures by message", "reason")
	m.handErrors = m.counterVec("hand_errors_total", "Semantic hand errors by type and severity", "type", "severity")
	m.iterations = m.counterVec("iterations_total", "Extraction attempts by iteration number", "iteration")
	m.retries = m.counter("retries_total", "Extraction attempts that were retried")
	m.outcomes = m.counterVec("analysis_outcomes_total", "Analyses reaching a decision, by status", "status")
	m.extractionDuration = m.histogram("extraction_duration_seconds", "Vision extraction latency per attempt", m.histogramBuckets)
	m.extractionErrors = m.counter("extraction_errors_total", "Failed vision extraction attempts")
	m.extractionCost = m.counter("extraction_cost_total", "Accumulated vision extraction cost")
	m.extractionConfidence = m.histogram("extraction_confidence", "Reported extraction confidence",
		[]float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1})
	m.nameMatches = m.counterVec("name_matches_total", "Name resolutions by confidence tier", "confidence")
	m.ocrParses = m.counterVec("ocr_parses_total", "OCR region parses by kind and result", "kind", "result")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the analysis queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the analysis queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue")
	m.workerCount = m.gauge("workers", "Configured analysis workers")
	m.workerActive = m.gauge("workers_active", "Workers currently running an analysis")
	m.workerLatency = m.histogram("worker_processing_seconds", "Full analysis latency per job", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Analyses that ended with an error")

	m.eventsPublished = m.counterVec("events_published_total", "Completion events published, by result", "result")
	m.repositoryOps = m.histogramVec("repository_operation_seconds", "Repository operation latency", m.histogramBuckets, "store", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request latency", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
}

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordHandBuilt counts an assembled hand.
func RecordHandBuilt() {
	if on() {
		globalManager.handsBuilt.Inc()
	}
}

// RecordValidationFailure counts one validator message.
func RecordValidationFailure(reason string) {
	if on() {
		globalManager.validationFailures.WithLabelValues(reason).Inc()
	}
}

// RecordHandError counts a semantic error.
func RecordHandError(errorType, severity string) {
	if on() {
		globalManager.handErrors.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordIteration counts an extraction attempt.
func RecordIteration(iteration int) {
	if on() {
		globalManager.iterations.WithLabelValues(strconv.Itoa(iteration)).Inc()
	}
}

// RecordRetry counts a decision to run another attempt.
func RecordRetry() {
	if on() {
		globalManager.retries.Inc()
	}
}

// RecordOutcome counts an analysis decision.
func RecordOutcome(status string) {
	if on() {
		globalManager.outcomes.WithLabelValues(status).Inc()
	}
}

// RecordExtraction observes a successful extraction attempt.
func RecordExtraction(seconds, confidence, cost float64) {
	if !on() {
		return
	}
	globalManager.extractionDuration.Observe(seconds)
	globalManager.extractionConfidence.Observe(confidence)
	if cost > 0 {
		globalManager.extractionCost.Add(cost)
	}
}

// RecordExtractionError counts a failed extraction attempt.
func RecordExtractionError() {
	if on() {
		globalManager.extractionErrors.Inc()
	}
}

// RecordNameMatch counts a resolution; use "none" when nothing qualified.
func RecordNameMatch(confidence string) {
	if on() {
		globalManager.nameMatches.WithLabelValues(confidence).Inc()
	}
}

// RecordOCRParse counts an OCR region parse.
func RecordOCRParse(kind string, ok bool) {
	if !on() {
		return
	}
	result := "miss"
	if ok {
		result = "hit"
	}
	globalManager.ocrParses.WithLabelValues(kind, result).Inc()
}

// UpdateQueueSize sets the queue depth.
func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	if on() {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	if on() {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

// AddActiveWorkers moves the busy-worker gauge by delta.
func AddActiveWorkers(delta int) {
	if on() {
		globalManager.workerActive.Add(float64(delta))
	}
}

// RecordWorkerProcessing observes one job's latency.
func RecordWorkerProcessing(seconds float64) {
	if on() {
		globalManager.workerLatency.Observe(seconds)
	}
}

// RecordWorkerError counts a job that ended in error.
func RecordWorkerError() {
	if on() {
		globalManager.workerErrors.Inc()
	}
}

// RecordEventPublished counts a publish attempt outcome.
func RecordEventPublished(ok bool) {
	if !on() {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	globalManager.eventsPublished.WithLabelValues(result).Inc()
}

// RecordRepositoryOperation observes one repository call.
func RecordRepositoryOperation(store, op string, seconds float64) {
	if on() {
		globalManager.repositoryOps.WithLabelValues(store, op).Observe(seconds)
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request's latency in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	if on() {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
