// Package metrics provides Prometheus metrics for the attribution service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for attribution and intake counters.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine
	attributions        *prometheus.CounterVec
	attributionLatency  *prometheus.HistogramVec
	attributedValue     *prometheus.CounterVec
	attributionFailures *prometheus.CounterVec

	// Ledger intake
	dealIntake    *prometheus.CounterVec
	dealsCredited prometheus.Counter

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueErrors      *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Ledger
	ledgerPartners prometheus.Gauge
	ledgerRevenue  prometheus.Gauge
	ledgerDeals    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "attribution",
		subsystem:        "service",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.attributions = m.counterVec("attributions_total", "Attribution computations by model and outcome", "model", "outcome")
	m.attributionLatency = m.histogramVec("attribution_latency_milliseconds", "Attribution computation latency in milliseconds", "model")
	m.attributedValue = m.counterVec("attributed_value_total", "Deal value attributed to partners, by model", "model")
	m.attributionFailures = m.counterVec("attribution_failures_total", "Rejected attribution requests by error kind", "kind")

	m.dealIntake = m.counterVec("deal_intake_total", "Closed deals submitted to the ledger by outcome", "outcome")
	m.dealsCredited = m.counter("deals_credited_total", "Closed deals credited to the partner ledger")

	m.queueSize = m.gauge("queue_size", "Current number of deals waiting to be credited")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueErrors = m.counterVec("queue_enqueue_errors_total", "Enqueue failures by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Number of ledger workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to attribute and credit one deal", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Deals a worker failed to credit")

	m.ledgerPartners = m.gauge("ledger_partners", "Partners with at least one credited deal")
	m.ledgerRevenue = m.gauge("ledger_revenue", "Total revenue credited across partners")
	m.ledgerDeals = m.gauge("ledger_deals", "Deals credited to the ledger")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordAttribution records one engine run.
func RecordAttribution(model, outcome string, latencyMs float64) {
	globalManager.attributions.WithLabelValues(model, outcome).Inc()
	globalManager.attributionLatency.WithLabelValues(model).Observe(latencyMs)
}

// RecordAttributedValue adds value to the attributed total of model.
func RecordAttributedValue(model string, value float64) {
	globalManager.attributedValue.WithLabelValues(model).Add(value)
}

// RecordAttributionFailure counts a rejected request by error kind.
func RecordAttributionFailure(kind string) {
	globalManager.attributionFailures.WithLabelValues(kind).Inc()
}

// RecordDealIntake counts a POST /deals outcome.
func RecordDealIntake(outcome string) {
	globalManager.dealIntake.WithLabelValues(outcome).Inc()
}

// RecordDealCredited increments the credited deals counter.
func RecordDealCredited() {
	globalManager.dealsCredited.Inc()
}

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts an enqueue failure.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateLedger sets the ledger size gauges.
func UpdateLedger(partners, deals int, revenue float64) {
	globalManager.ledgerPartners.Set(float64(partners))
	globalManager.ledgerDeals.Set(float64(deals))
	globalManager.ledgerRevenue.Set(revenue)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
