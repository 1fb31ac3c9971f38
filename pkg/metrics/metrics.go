// Package metrics exposes the Prometheus registry of the API server.
// Metrics are defined in their own packages (cache, httpcache) with promauto
// and land in the default registry; this package serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the cache packages.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		Registry: Registry,
	})
}

// Metrics Documentation
//
// Store Metrics (pkg/cache):
//   - respcache_hits_total{backend} (Counter): Store hits by backend (redis, memory)
//   - respcache_misses_total{backend} (Counter): Store misses, expired entries included
//   - respcache_stored_total{backend} (Counter): Entries written
//   - respcache_invalidated_entries_total{backend} (Counter): Entries removed by tag invalidation
//   - respcache_errors_total{backend, operation} (Counter): Store errors by operation
//
// Middleware Metrics (pkg/httpcache):
//   - respcache_requests_total{outcome} (Counter): Requests by outcome
//     (hit, not_modified, stored, not_stored, bypass)
//   - respcache_invalidations_total{route, result} (Counter): Invalidations triggered by mutations
//   - respcache_lookup_duration_seconds (Histogram): Store lookup latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(respcache_requests_total{outcome=~"hit|not_modified"}[5m])) /
//   sum(rate(respcache_requests_total{outcome!="bypass"}[5m]))
//
//   # Store Error Rate
//   sum by (operation) (rate(respcache_errors_total[5m]))
//
//   # P95 Lookup Latency
//   histogram_quantile(0.95, rate(respcache_lookup_duration_seconds_bucket[5m]))
