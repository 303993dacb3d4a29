// Package observability groups the Prometheus instruments used by the
// gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	CacheEvictions  prometheus.Counter
	TokenBudget     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by terminal routing state.",
		}, []string{"state"}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request handling duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Conversation cache lookups by result.",
		}, []string{"result"}),
		CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Conversation cache entries evicted by capacity pressure.",
		}),
		TokenBudget: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_budget_available",
			Help:      "Token budget left for variable prompt content per request.",
			Buckets:   []float64{0, 128, 256, 512, 1024, 2048, 4096, 8192, 16384},
		}),
	}
}

func (m *Metrics) ObserveRequest(state string, d time.Duration) {
	m.Requests.WithLabelValues(state).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
