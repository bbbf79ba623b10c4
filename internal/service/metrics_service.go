package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// recurrence worker.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	instancesGenerated prometheus.Counter
	extensionFailures  prometheus.Counter
	extensionRuns      prometheus.Histogram
	resolutionTotal    *prometheus.CounterVec
	degradedGrids      prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	instancesGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_instances_generated_total",
		Help: "Total lesson instances materialized by the extension job",
	})

	extensionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_group_failures_total",
		Help: "Total per-group extension failures",
	})

	extensionRuns := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurrence_run_duration_seconds",
		Help:    "Duration of extension batch runs",
		Buckets: prometheus.DefBuckets,
	})

	resolutionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_resolutions_total",
		Help: "Total availability grid resolutions by outcome",
	}, []string{"view", "outcome"})

	degradedGrids := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_degraded_grids_total",
		Help: "Total grids returned fail-closed after an input fetch error",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, instancesGenerated, extensionFailures, extensionRuns, resolutionTotal, degradedGrids, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		instancesGenerated: instancesGenerated,
		extensionFailures:  extensionFailures,
		extensionRuns:      extensionRuns,
		resolutionTotal:    resolutionTotal,
		degradedGrids:      degradedGrids,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveExtensionRun records the outcome of one extension batch pass.
func (m *MetricsService) ObserveExtensionRun(instances, failures int, duration time.Duration) {
	if m == nil {
		return
	}
	m.instancesGenerated.Add(float64(instances))
	m.extensionFailures.Add(float64(failures))
	m.extensionRuns.Observe(duration.Seconds())
}

// ObserveResolution records one grid resolution.
func (m *MetricsService) ObserveResolution(view string, degraded bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
		m.degradedGrids.Inc()
	}
	m.resolutionTotal.WithLabelValues(view, outcome).Inc()
}
