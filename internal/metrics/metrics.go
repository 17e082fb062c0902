package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "currency_converter"

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ConversionsTotal        *prometheus.CounterVec
	CacheLookupsTotal       *prometheus.CounterVec
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	RateLimitRejections     *prometheus.CounterVec

	factory promauto.Factory
}

// NewMetrics registers every collector on reg. Passing a fresh registry keeps
// tests independent of the process-wide default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of currency conversions by outcome",
			},
			[]string{"outcome"},
		),

		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_events_total",
				Help:      "Cache hits, misses, expirations and evictions",
			},
			[]string{"cache", "event"},
		),

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of outbound provider requests",
			},
			[]string{"provider", "outcome"},
		),

		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Outbound provider request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),

		RateLimitRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Conversions rejected by a rate limit, by source",
			},
			[]string{"source"},
		),

		factory: factory,
	}
}

// ObserveCache matches the cache observer signature.
func (m *Metrics) ObserveCache(cache, event string) {
	m.CacheLookupsTotal.WithLabelValues(cache, event).Inc()
}

// ObserveProvider matches the provider observer signature.
func (m *Metrics) ObserveProvider(provider, outcome string, duration time.Duration) {
	m.ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) ObserveConversion(outcome string) {
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimit(source string) {
	m.RateLimitRejections.WithLabelValues(source).Inc()
}

// RegisterCacheSize exports the current size of a cache as a gauge.
func (m *Metrics) RegisterCacheSize(cache string, size func() int) {
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "cache_entries",
			Help:        "Number of entries currently held by a cache",
			ConstLabels: prometheus.Labels{"cache": cache},
		},
		func() float64 { return float64(size()) },
	)
}
