// Package metrics provides Prometheus metrics for the capflow analytics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage label values.
const (
	StageNormalize  = "normalize"
	StageFilter     = "filter"
	StageBuild      = "build"
	StageCentrality = "centrality"
	StageReport     = "report"
)

// Manager manages all Prometheus metrics for the capflow service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Pipeline Metrics
	pipelinePasses   prometheus.Counter
	stageDuration    *prometheus.HistogramVec
	eventsNormalized prometheus.Counter
	malformedInputs  prometheus.Counter

	// Fallback Metrics
	patternFallbacks prometheus.Counter
	eigenFallbacks   *prometheus.CounterVec
	noPath           prometheus.Counter

	// Working Set Metrics
	datasetsStored    prometheus.Gauge
	datasetsEvicted   prometheus.Counter
	datasetDuplicates prometheus.Counter

	// Graph Metrics, last pass
	graphNodes prometheus.Gauge
	graphEdges prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec
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
		namespace:        "capflow",
		subsystem:        "analytics",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recorders update metrics.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.pipelinePasses = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pipeline_passes_total",
		Help:        "Total number of completed filter/build/metrics/report passes",
		ConstLabels: labels,
	})

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stage_duration_milliseconds",
			Help:        "Pipeline stage duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"stage"},
	)

	m.eventsNormalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_normalized_total",
		Help:        "Total number of canonical events produced by ingestion",
		ConstLabels: labels,
	})

	m.malformedInputs = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "malformed_inputs_total",
		Help:        "Total number of rejected uploads that did not match the raw record schema",
		ConstLabels: labels,
	})

	m.patternFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pattern_fallbacks_total",
		Help:        "Total number of name patterns matched as literal substrings after a regex compile failure",
		ConstLabels: labels,
	})

	m.eigenFallbacks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "eigenvector_fallbacks_total",
			Help:        "Total number of passes whose eigenvector scores were zeroed, by reason",
			ConstLabels: labels,
		},
		[]string{"reason"},
	)

	m.noPath = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "no_path_total",
		Help:        "Total number of shortest path queries with unreachable targets",
		ConstLabels: labels,
	})

	m.datasetsStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "datasets_stored",
		Help:        "Current number of datasets in the working set",
		ConstLabels: labels,
	})

	m.datasetsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "datasets_evicted_total",
		Help:        "Total number of datasets evicted to respect capacity",
		ConstLabels: labels,
	})

	m.datasetDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_duplicates_total",
		Help:        "Total number of uploads whose content matched a stored dataset",
		ConstLabels: labels,
	})

	m.graphNodes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "graph_nodes",
		Help:        "Node count of the most recent pass",
		ConstLabels: labels,
	})

	m.graphEdges = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "graph_edges",
		Help:        "Edge count of the most recent pass",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component and error type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)
}

// RecordPipelinePass increments the completed passes counter.
func RecordPipelinePass() {
	if globalManager.enabled {
		globalManager.pipelinePasses.Inc()
	}
}

// RecordStageDuration records one stage's duration in milliseconds.
func RecordStageDuration(stage string, durationMs float64) {
	if globalManager.enabled {
		globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
	}
}

// RecordEventsNormalized adds n canonical events.
func RecordEventsNormalized(n int) {
	if globalManager.enabled {
		globalManager.eventsNormalized.Add(float64(n))
	}
}

// RecordMalformedInput increments the malformed uploads counter.
func RecordMalformedInput() {
	if globalManager.enabled {
		globalManager.malformedInputs.Inc()
	}
}

// RecordPatternFallback increments the substring fallback counter.
func RecordPatternFallback() {
	if globalManager.enabled {
		globalManager.patternFallbacks.Inc()
	}
}

// RecordEigenvectorFallback increments the eigenvector fallback counter for reason.
func RecordEigenvectorFallback(reason string) {
	if globalManager.enabled {
		globalManager.eigenFallbacks.WithLabelValues(reason).Inc()
	}
}

// RecordNoPath increments the unreachable path counter.
func RecordNoPath() {
	if globalManager.enabled {
		globalManager.noPath.Inc()
	}
}

// UpdateDatasetsStored sets the current working set size.
func UpdateDatasetsStored(count int) {
	if globalManager.enabled {
		globalManager.datasetsStored.Set(float64(count))
	}
}

// RecordDatasetEvicted increments the eviction counter.
func RecordDatasetEvicted() {
	if globalManager.enabled {
		globalManager.datasetsEvicted.Inc()
	}
}

// RecordDatasetDuplicate increments the duplicate upload counter.
func RecordDatasetDuplicate() {
	if globalManager.enabled {
		globalManager.datasetDuplicates.Inc()
	}
}

// UpdateGraphSize sets the node and edge gauges from the latest pass.
func UpdateGraphSize(nodes, edges int) {
	if globalManager.enabled {
		globalManager.graphNodes.Set(float64(nodes))
		globalManager.graphEdges.Set(float64(edges))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
