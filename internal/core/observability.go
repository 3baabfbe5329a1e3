package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "clinicadmin"

// MetricsRecorder observes the outcome of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusMetrics records service and HTTP metrics on a Prometheus registerer.
type PrometheusMetrics struct {
	operationDuration *prometheus.HistogramVec
	operationTotal    *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	exportsTotal      *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors on reg. Use a fresh
// prometheus.NewRegistry() per server; the default registerer panics on
// duplicate registration.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of collection operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		operationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Total number of collection operations",
		}, []string{"operation", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "code"}),
		exportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exports_total",
			Help:      "Collection exports by final status",
		}, []string{"entity", "status"}),
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Observe implements MetricsRecorder.
func (m *PrometheusMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := statusLabel(success)
	m.operationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	m.operationTotal.WithLabelValues(operation, status).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *PrometheusMetrics) ObserveRequest(method, route string, code int, duration time.Duration) {
	c := prometheus.Labels{"method": method, "route": route, "code": httpCode(code)}
	m.requestDuration.With(c).Observe(duration.Seconds())
	m.requestTotal.With(c).Inc()
}

// ObserveExport records a finished export job.
func (m *PrometheusMetrics) ObserveExport(entity string, success bool) {
	m.exportsTotal.WithLabelValues(entity, statusLabel(success)).Inc()
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
