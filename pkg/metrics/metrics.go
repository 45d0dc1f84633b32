// Package metrics exposes the Prometheus metrics of the lawdesk client.
// Metrics are defined in their respective packages (client, cache,
// ratelimit, loading) and registered via promauto on the default registry,
// so this package only documents them and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer used by all lawdesk packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the Prometheus gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an http.Handler serving all registered metrics in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - lawdesk_requests_total{method, status} (Counter): Requests by method and HTTP status
//   - lawdesk_request_duration_seconds{method} (Histogram): Request duration by method
//   - lawdesk_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - lawdesk_retries_total{error_class} (Counter): Retry attempts by error class
//   - lawdesk_retry_backoff_seconds{error_class} (Histogram): Delay before each retry
//   - lawdesk_retry_exhausted_total{error_class} (Counter): Requests that exhausted their retries
//
// Cache Metrics (pkg/cache):
//   - lawdesk_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - lawdesk_cache_misses_total (Counter): Cache misses
//   - lawdesk_cache_entries (Gauge): Entries currently held in memory
//   - lawdesk_cache_invalidations_total{reason} (Counter): Removed entries by reason
//   - lawdesk_cache_errors_total{operation} (Counter): Shared store errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - lawdesk_rate_limit_waits_total (Counter): Requests delayed by the limiter
//   - lawdesk_rate_limit_pauses_total (Counter): Pauses after 429/503 responses
//
// Loading Metrics (pkg/loading):
//   - lawdesk_inflight_requests (Gauge): Requests currently in flight
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(lawdesk_cache_hits_total[5m])) /
//   (sum(rate(lawdesk_cache_hits_total[5m])) + sum(rate(lawdesk_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(lawdesk_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(lawdesk_request_duration_seconds_bucket[5m]))
//
//   # Backend Pressure
//   rate(lawdesk_rate_limit_pauses_total[5m]) > 0
