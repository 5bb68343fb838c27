package metrics

import "github.com/prometheus/client_golang/prometheus"

// resilienceCollector implements resilience.Observer.
type resilienceCollector struct {
	service      string
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newResilienceCollector(service string) *resilienceCollector {
	return &resilienceCollector{
		service: service,
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retried outbound calls by operation.",
		}, []string{"service", "operation"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the operation breaker is open or half-open.",
		}, []string{"service", "operation"}),
	}
}

func (c *resilienceCollector) register(registry *prometheus.Registry) {
	registry.MustRegister(c.retriesTotal, c.breakerState)
}

func (c *resilienceCollector) ObserveRetry(operation string) {
	c.retriesTotal.WithLabelValues(c.service, operation).Inc()
}

func (c *resilienceCollector) ObserveBreakerState(operation, state string) {
	value := 1.0
	if state == "closed" {
		value = 0
	}
	c.breakerState.WithLabelValues(c.service, operation).Set(value)
}
