package transport

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registerer is the subset of prometheus.Registerer the transport needs.
type Registerer = prometheus.Registerer

// clientMetrics instruments outbound requests. A nil receiver (no registry
// configured) turns every method into a no-op.
type clientMetrics struct {
	requests  *prometheus.CounterVec
	retries   prometheus.Counter
	duration  *prometheus.HistogramVec
	limitWait prometheus.Histogram
}

func newClientMetrics(reg Registerer) *clientMetrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &clientMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promtools_requests_total",
			Help: "Outbound API requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "promtools_retries_total",
			Help: "Retry attempts after transient failures.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promtools_request_duration_seconds",
			Help:    "Outbound request latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		limitWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "promtools_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the client rate limiter.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *clientMetrics) observe(endpoint string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *clientMetrics) retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *clientMetrics) limiterWait(d time.Duration) {
	if m == nil {
		return
	}
	m.limitWait.Observe(d.Seconds())
}
