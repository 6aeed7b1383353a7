// Package metrics provides Prometheus metrics for the maimai ranking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Resolver metrics
	resolverQueries  *prometheus.CounterVec // outcome: resolved / not_found
	resolverLatency  prometheus.Histogram
	catalogSongs     prometheus.Gauge
	catalogAliases   prometheus.Gauge
	catalogRefreshes prometheus.Counter
	catalogRefreshMs prometheus.Histogram
	snapshotAge      prometheus.Gauge

	// Aggregation metrics
	leaderboardQueries *prometheus.CounterVec // kind: song / rating
	emptyPopulations   prometheus.Counter

	// Quota metrics
	quotaDenials prometheus.Counter
	quotaResets  prometheus.Counter

	// Upstream prober metrics
	proberRequests *prometheus.CounterVec // endpoint, outcome
	proberLatency  prometheus.Histogram

	// Refresh pool metrics
	refreshSucceeded prometheus.Counter
	refreshFailed    prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "maimai",
		subsystem:        "raking",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.resolverQueries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "resolver_queries_total",
			Help:      "Total number of song resolution attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.resolverLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolver_latency_milliseconds",
		Help:      "Histogram of song resolution latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.catalogSongs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_songs",
		Help:      "Number of songs in the current catalog snapshot",
	})

	m.catalogAliases = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_aliases",
		Help:      "Number of merged alias bindings in the current catalog snapshot",
	})

	m.catalogRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_refreshes_total",
		Help:      "Total number of catalog snapshot rebuilds",
	})

	m.catalogRefreshMs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_refresh_duration_milliseconds",
		Help:      "Histogram of catalog snapshot rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotAge = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_snapshot_age_seconds",
		Help:      "Age of the published catalog snapshot in seconds",
	})

	m.leaderboardQueries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "leaderboard_queries_total",
			Help:      "Total number of leaderboard aggregations by kind",
		},
		[]string{"kind"},
	)

	m.emptyPopulations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "leaderboard_empty_populations_total",
		Help:      "Total number of aggregations that produced an empty population",
	})

	m.quotaDenials = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "quota_denials_total",
		Help:      "Total number of refreshes denied by the daily quota",
	})

	m.quotaResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "quota_resets_total",
		Help:      "Total number of operator quota resets",
	})

	m.proberRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "prober_requests_total",
			Help:      "Total number of upstream prober requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	m.proberLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prober_latency_milliseconds",
		Help:      "Histogram of upstream prober request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.refreshSucceeded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_players_succeeded_total",
		Help:      "Total number of player record refreshes that succeeded",
	})

	m.refreshFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_players_failed_total",
		Help:      "Total number of player record refreshes that failed",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordResolverQuery records one resolution attempt.
func RecordResolverQuery(outcome string) {
	globalManager.resolverQueries.WithLabelValues(outcome).Inc()
}

// RecordResolverLatency records resolution latency in milliseconds.
func RecordResolverLatency(latencyMs float64) {
	globalManager.resolverLatency.Observe(latencyMs)
}

// UpdateCatalogSize records the size of the published snapshot.
func UpdateCatalogSize(songs, aliases int) {
	globalManager.catalogSongs.Set(float64(songs))
	globalManager.catalogAliases.Set(float64(aliases))
}

// RecordCatalogRefresh records one snapshot rebuild and its duration.
func RecordCatalogRefresh(durationMs float64) {
	globalManager.catalogRefreshes.Inc()
	globalManager.catalogRefreshMs.Observe(durationMs)
}

// UpdateSnapshotAge records the age of the published snapshot.
func UpdateSnapshotAge(age time.Duration) {
	globalManager.snapshotAge.Set(age.Seconds())
}

// RecordLeaderboardQuery records one aggregation by kind ("song" or "rating").
func RecordLeaderboardQuery(kind string) {
	globalManager.leaderboardQueries.WithLabelValues(kind).Inc()
}

// RecordEmptyPopulation records an aggregation with no qualifying rows.
func RecordEmptyPopulation() {
	globalManager.emptyPopulations.Inc()
}

// RecordQuotaDenial records a refresh denied by the daily quota.
func RecordQuotaDenial() {
	globalManager.quotaDenials.Inc()
}

// RecordQuotaReset records an operator quota reset.
func RecordQuotaReset() {
	globalManager.quotaResets.Inc()
}

// RecordProberRequest records one upstream request.
func RecordProberRequest(endpoint, outcome string) {
	globalManager.proberRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordProberLatency records upstream request latency in milliseconds.
func RecordProberLatency(latencyMs float64) {
	globalManager.proberLatency.Observe(latencyMs)
}

// RecordRefreshResult records the outcome counts of a refresh run.
func RecordRefreshResult(succeeded, failed int) {
	globalManager.refreshSucceeded.Add(float64(succeeded))
	globalManager.refreshFailed.Add(float64(failed))
}

// RecordHTTPRequest records one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
