// Package metrics documents the Prometheus metrics exposed by the OData
// client. All metrics are defined in their respective packages (client,
// cache, transport, pagination) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the client.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - odata_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - odata_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - odata_decode_failures_total{kind} (Counter): Decode failures by kind
//     (message_body, missing_header, only_one_expected, wrapped)
//   - odata_batch_requests_total (Counter): $batch requests executed
//
// Retry Metrics (pkg/transport):
//   - odata_retries_total{error_class} (Counter): Retry attempts by error class
//   - odata_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - odata_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - odata_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - odata_cache_misses_total (Counter): Cache misses
//   - odata_cache_size_bytes{layer="redis"} (Gauge): Cache size in bytes
//   - odata_304_responses_total (Counter): 304 Not Modified responses
//   - odata_conditional_requests_total (Counter): Conditional requests sent
//   - odata_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/pagination):
//   - odata_pages_fetched_total (Counter): List pages fetched following nextLink
//   - odata_page_elements_total (Counter): Elements emitted from fetched pages
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(odata_cache_hits_total[5m])) /
//   (sum(rate(odata_cache_hits_total[5m])) + sum(rate(odata_cache_misses_total[5m])))
//
//   # Decode Failure Rate
//   rate(odata_decode_failures_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(odata_request_duration_seconds_bucket[5m]))
//
//   # Average Page Size
//   rate(odata_page_elements_total[5m]) / rate(odata_pages_fetched_total[5m])
