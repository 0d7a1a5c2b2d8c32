package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "qsar"

// Registry holds every metric exported by the service.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	httpResponseSize = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size.",
		Buckets:   prometheus.ExponentialBuckets(100, 4, 6),
	}, []string{"method", "path"})

	chatMessages = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "messages_total",
		Help:      "Chat messages processed by outcome.",
	}, []string{"outcome"})

	chatDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "message_duration_seconds",
		Help:      "Time to answer a chat message, including the simulated model latency.",
		Buckets:   []float64{.05, .1, .25, .5, .75, 1, 1.5, 2.5, 5},
	})

	predictions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "predictor",
		Name:      "predictions_total",
		Help:      "Predictions served by endpoint and source.",
	}, []string{"endpoint", "source"})

	predictionErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "predictor",
		Name:      "errors_total",
		Help:      "Prediction failures by endpoint.",
	}, []string{"endpoint"})

	breakerState = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "predictor",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	reportOps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "report",
		Name:      "operations_total",
		Help:      "Report generations and downloads by status.",
	}, []string{"operation", "status"})

	historyWrites = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "history",
		Name:      "writes_total",
		Help:      "History writes by backend and status.",
	}, []string{"backend", "status"})

	rateLimited = factory.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordHTTPMetrics records metrics for HTTP requests
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration, responseSize int) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if responseSize > 0 {
		httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordChatMetrics records one processed chat message. outcome is
// success, validation_error or error.
func RecordChatMetrics(outcome string, duration time.Duration) {
	chatMessages.WithLabelValues(outcome).Inc()
	chatDuration.Observe(duration.Seconds())
}

// RecordPredictionMetrics records a served prediction or, when err is set, a
// failed one.
func RecordPredictionMetrics(endpoint, source string, err error) {
	if err != nil {
		predictionErrors.WithLabelValues(endpoint).Inc()
		return
	}
	predictions.WithLabelValues(endpoint, source).Inc()
}

// SetCircuitBreakerState exports a gobreaker state as a gauge.
func SetCircuitBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordReportMetrics records report generation and download attempts.
func RecordReportMetrics(operation string, err error) {
	reportOps.WithLabelValues(operation, statusLabel(err == nil)).Inc()
}

// RecordHistoryMetrics records a history write attempt.
func RecordHistoryMetrics(backend string, err error) {
	historyWrites.WithLabelValues(backend, statusLabel(err == nil)).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimited.Inc()
}
