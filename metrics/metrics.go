// Package metrics provides Prometheus metrics collection for the catalog server.
// HTTP traffic is tracked with:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Catalog traffic is tracked per operation with catalog_operation_total
// (operation and outcome labels). Catalog state is tracked with the other
// catalog_* collectors, refreshed by the data container after every mutation
// and reload.
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"github.com/giygas/pharmdb/catalog"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	CatalogOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_operation_total",
			Help: "Catalog operations served over HTTP by outcome",
		},
		[]string{"operation", "outcome"},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	CatalogDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_drugs",
			Help: "Number of drugs in the live catalog",
		},
	)

	CatalogSubstituteEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_substitute_edges",
			Help: "Number of substitute edges in the live catalog",
		},
	)

	LeaderboardPendingEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_leaderboard_pending_entries",
			Help: "Leaderboard entries still held across all disease heaps",
		},
	)

	LeaderboardStaleDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_leaderboard_stale_discarded_total",
			Help: "Stale leaderboard entries dropped during settling",
		},
	)

	CatalogReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reload_total",
			Help: "Catalog reload attempts by result",
		},
		[]string{"result"},
	)

	CatalogReloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_reload_duration_seconds",
			Help:    "Time spent loading and building a catalog",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(CatalogOperations)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(CatalogDrugs)
	prometheus.MustRegister(CatalogSubstituteEdges)
	prometheus.MustRegister(LeaderboardPendingEntries)
	prometheus.MustRegister(LeaderboardStaleDiscarded)
	prometheus.MustRegister(CatalogReloads)
	prometheus.MustRegister(CatalogReloadDuration)
}

// ObserveCatalog refreshes the catalog gauges from stats
func ObserveCatalog(stats catalog.Stats) {
	CatalogDrugs.Set(float64(stats.Drugs))
	CatalogSubstituteEdges.Set(float64(stats.SubstituteEdges))
	LeaderboardPendingEntries.Set(float64(stats.PendingLeaderEntries))
}

// ObserveReload records one reload attempt
func ObserveReload(seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	CatalogReloads.WithLabelValues(result).Inc()
	CatalogReloadDuration.Observe(seconds)
}
