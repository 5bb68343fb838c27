package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	reindexTotal    *prometheus.CounterVec
	reindexDuration *prometheus.HistogramVec
	reindexInFlight prometheus.Gauge
	chunksIndexed   prometheus.Counter
	queueLag        *prometheus.HistogramVec
	*resilienceCollector
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	m := &WorkerMetrics{
		service:  service,
		registry: prometheus.NewRegistry(),
		reindexTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reindex_total",
			Help:      "Completed corpus reindex runs by status.",
		}, []string{"service", "status"}),
		reindexDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reindex_duration_seconds",
			Help:      "Corpus reindex duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"service", "status"}),
		reindexInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "reindex_in_flight",
			Help:        "Number of running reindex jobs.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "chunks_indexed_total",
			Help:        "Chunks written to the semantic index.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		queueLag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between a reindex request and the start of the run.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"service"}),
		resilienceCollector: newResilienceCollector(service),
	}

	m.registry.MustRegister(m.reindexTotal, m.reindexDuration, m.reindexInFlight, m.chunksIndexed, m.queueLag)
	m.resilienceCollector.register(m.registry)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartReindex() {
	m.reindexInFlight.Inc()
}

func (m *WorkerMetrics) FinishReindex(chunks int, duration time.Duration, err error) {
	m.reindexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.reindexTotal.WithLabelValues(m.service, status).Inc()
	m.reindexDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if chunks > 0 {
		m.chunksIndexed.Add(float64(chunks))
	}
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
