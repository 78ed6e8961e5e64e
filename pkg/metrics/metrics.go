// Package metrics exposes the Prometheus registry and scrape handler for the
// response cache. Metrics are defined in their respective packages (cache,
// store) via promauto to keep those packages self-contained.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry Handler serves.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an http.Handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Middleware Metrics (pkg/cache):
//   - response_cache_requests_total{result} (Counter): Requests by outcome (hit, miss, bypass, not_modified)
//   - response_cache_entries_stored_total (Counter): Responses handed to the store
//   - response_cache_errors_total{operation} (Counter): Store get/set failures seen by the middleware
//
// Store Metrics (pkg/store):
//   - response_cache_store_operations_total{backend, operation, result} (Counter): Store calls by outcome
//   - response_cache_memory_occupancy (Gauge): Live entries in the in-process store
//   - response_cache_memory_rejected_total (Counter): Writes dropped because the in-process store was full
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(response_cache_requests_total{result=~"hit|not_modified"}[5m])) /
//   sum(rate(response_cache_requests_total{result!="bypass"}[5m]))
//
//   # Store Write Failures
//   rate(response_cache_errors_total{operation="set"}[5m])
//
//   # Memory Store Saturation
//   rate(response_cache_memory_rejected_total[5m]) > 0
