// Package metrics publishes Prometheus series for the request boundary and
// the snapshot cache.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheOperation identifies the cache method being instrumented.
type CacheOperation string

const (
	// CacheOperationLookup records snapshot lookup calls.
	CacheOperationLookup CacheOperation = "lookup"
	// CacheOperationStore records snapshot refill attempts.
	CacheOperationStore CacheOperation = "store"
)

// CacheLookupOutcome captures the result of a snapshot lookup.
type CacheLookupOutcome string

const (
	// CacheLookupHit indicates the listing was served from the snapshot.
	CacheLookupHit CacheLookupOutcome = "hit"
	// CacheLookupMiss indicates no unexpired snapshot was present.
	CacheLookupMiss CacheLookupOutcome = "miss"
	// CacheLookupError indicates the cache layer itself failed.
	CacheLookupError CacheLookupOutcome = "error"
)

// CacheStoreOutcome captures the result of a snapshot refill.
type CacheStoreOutcome string

const (
	// CacheStoreStored indicates the snapshot was written with a fresh TTL.
	CacheStoreStored CacheStoreOutcome = "stored"
	// CacheStoreError indicates the refill failed and was swallowed.
	CacheStoreError CacheStoreOutcome = "error"
)

// Recorder publishes Prometheus metrics for polygon request handling.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	cacheOperations *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a dedicated
// registry is created so multiple recorders can coexist without conflicting with
// the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polystore",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total polygon requests processed by the boundary.",
	}, []string{"operation", "status_code"})

	requestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "polystore",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for completed polygon requests.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation"})

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polystore",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Snapshot cache operations executed by the cache-aside service.",
	}, []string{"operation", "result"})

	cacheLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "polystore",
		Subsystem: "cache",
		Name:      "operation_duration_seconds",
		Help:      "Latency distribution for snapshot cache operations.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"operation", "result"})

	reg.MustRegister(requests, requestLatency, cacheOperations, cacheLatency)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return &Recorder{
		gatherer:        reg,
		handler:         handler,
		requests:        requests,
		requestLatency:  requestLatency,
		cacheOperations: cacheOperations,
		cacheLatency:    cacheLatency,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and advanced
// integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveRequest records the status and latency for a completed boundary request.
func (r *Recorder) ObserveRequest(operation string, statusCode int, duration time.Duration) {
	if r == nil {
		return
	}
	operationLabel := normalizeLabel(operation)
	statusLabel := strconv.Itoa(statusCode)
	if statusCode <= 0 {
		statusLabel = "unknown"
	}
	r.requests.WithLabelValues(operationLabel, statusLabel).Inc()
	r.requestLatency.WithLabelValues(operationLabel).Observe(duration.Seconds())
}

// ObserveCacheLookup records the result of a snapshot lookup.
func (r *Recorder) ObserveCacheLookup(result CacheLookupOutcome, duration time.Duration) {
	if r == nil {
		return
	}
	resultLabel := string(result)
	if resultLabel == "" {
		resultLabel = string(CacheLookupMiss)
	}
	r.observeCache(CacheOperationLookup, resultLabel, duration)
}

// ObserveCacheStore records the result of a snapshot refill attempt.
func (r *Recorder) ObserveCacheStore(result CacheStoreOutcome, duration time.Duration) {
	if r == nil {
		return
	}
	resultLabel := string(result)
	if resultLabel == "" {
		resultLabel = string(CacheStoreError)
	}
	r.observeCache(CacheOperationStore, resultLabel, duration)
}

func (r *Recorder) observeCache(operation CacheOperation, result string, duration time.Duration) {
	opLabel := string(operation)
	resLabel := normalizeLabel(result)
	r.cacheOperations.WithLabelValues(opLabel, resLabel).Inc()
	r.cacheLatency.WithLabelValues(opLabel, resLabel).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
