package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "waterlab"

// Metrics holds the Prometheus collectors for caches, upstream providers and the HTTP API.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec   // labels: cache, result={hit,miss,l2_hit}
	ProviderOutcomes *prometheus.CounterVec   // labels: source, outcome={found,empty,failed}
	UpstreamDuration *prometheus.HistogramVec // labels: upstream
	HTTPRequests     *prometheus.CounterVec   // labels: method, route, status
	NewsArticles     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CacheLookups,
		m.ProviderOutcomes,
		m.UpstreamDuration,
		m.HTTPRequests,
		m.NewsArticles,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result.",
		}, []string{"cache", "result"}),
		ProviderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_provider_outcomes_total",
			Help:      "Station provider attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream fetches in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"upstream"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		NewsArticles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "news_articles",
			Help:      "Number of articles in the last aggregated news list.",
		}),
	}
}

func (m *Metrics) CacheHit(cache string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(cache, "hit").Inc()
	}
}

func (m *Metrics) CacheMiss(cache string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(cache, "miss").Inc()
	}
}

func (m *Metrics) CacheSecondLevelHit(cache string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(cache, "l2_hit").Inc()
	}
}

func (m *Metrics) ProviderOutcome(source, outcome string) {
	if m != nil {
		m.ProviderOutcomes.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Metrics) ObserveUpstream(upstream string, seconds float64) {
	if m != nil {
		m.UpstreamDuration.WithLabelValues(upstream).Observe(seconds)
	}
}

func (m *Metrics) SetNewsArticles(n int) {
	if m != nil {
		m.NewsArticles.Set(float64(n))
	}
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}
