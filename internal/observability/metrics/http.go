package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

const namespace = "granth"

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	retrievalTotal      *prometheus.CounterVec
	retrievalEvidence   *prometheus.HistogramVec
	retrievalDuration   *prometheus.HistogramVec
	retrievalDegraded   *prometheus.CounterVec
	referenceClassTotal *prometheus.CounterVec
	notFoundTotal       *prometheus.CounterVec
	countAnswersTotal   *prometheus.CounterVec
	*resilienceCollector
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	m := &HTTPServerMetrics{
		service:  service,
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"service", "method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control by reason.",
		}, []string{"service", "reason"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Completed retrievals by endpoint and intent.",
		}, []string{"service", "endpoint", "intent"}),
		retrievalEvidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "evidence_chunks",
			Help:      "Evidence chunks returned per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		}, []string{"service", "endpoint"}),
		retrievalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval or chat duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "endpoint"}),
		retrievalDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Retrievals that ran without one of the indexes.",
		}, []string{"service", "index"}),
		referenceClassTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "candidates_total",
			Help:      "Parsed reference candidates by class.",
		}, []string{"service", "class"}),
		notFoundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "not_found_total",
			Help:      "Chat answers that found no grounded evidence.",
		}, []string{"service"}),
		countAnswersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "count_answers_total",
			Help:      "Chat answers served from verse counts.",
		}, []string{"service"}),
		resilienceCollector: newResilienceCollector(service),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.rejectedTotal,
		m.retrievalTotal,
		m.retrievalEvidence,
		m.retrievalDuration,
		m.retrievalDegraded,
		m.referenceClassTotal,
		m.notFoundTotal,
		m.countAnswersTotal,
	)
	m.resilienceCollector.register(registry)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(m.service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps thread IDs out of metric labels.
func normalizePath(path string) string {
	const threads = "/v1/threads/"
	if !strings.HasPrefix(path, threads) {
		return path
	}
	rest := strings.TrimPrefix(path, threads)
	if i := strings.Index(rest, "/"); i >= 0 {
		return threads + "{thread_id}" + rest[i:]
	}
	return threads + "{thread_id}"
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordRetrieval(endpoint string, result domain.RetrieveResult, duration time.Duration) {
	intent := string(result.Intent)
	if intent == "" {
		intent = "unknown"
	}
	m.retrievalTotal.WithLabelValues(m.service, endpoint, intent).Inc()
	m.retrievalEvidence.WithLabelValues(m.service, endpoint).Observe(float64(len(result.Evidence)))
	m.retrievalDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())
	m.recordDegraded(result.Degraded)
	for _, candidate := range result.Candidates {
		m.referenceClassTotal.WithLabelValues(m.service, string(candidate.Class)).Inc()
	}
}

func (m *HTTPServerMetrics) RecordAnswer(answer domain.Answer, duration time.Duration) {
	intent := string(answer.Intent)
	if intent == "" {
		intent = "unknown"
	}
	m.retrievalTotal.WithLabelValues(m.service, "chat", intent).Inc()
	m.retrievalEvidence.WithLabelValues(m.service, "chat").Observe(float64(len(answer.Citations)))
	m.retrievalDuration.WithLabelValues(m.service, "chat").Observe(duration.Seconds())
	m.recordDegraded(answer.Degraded)
	switch {
	case answer.NotFound:
		m.notFoundTotal.WithLabelValues(m.service).Inc()
	case answer.Intent == domain.IntentCountVerses && len(answer.Citations) == 0:
		m.countAnswersTotal.WithLabelValues(m.service).Inc()
	}
}

func (m *HTTPServerMetrics) recordDegraded(d domain.DegradedFlags) {
	if d.Lexical {
		m.retrievalDegraded.WithLabelValues(m.service, "lexical").Inc()
	}
	if d.Semantic {
		m.retrievalDegraded.WithLabelValues(m.service, "semantic").Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
