package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odata_cache_hits_total",
			Help: "Total number of OData cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "odata_cache_misses_total",
			Help: "Total number of OData cache misses",
		},
	)

	// CacheSize tracks cache size in bytes by layer.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odata_cache_size_bytes",
			Help: "Current size of OData cache in bytes",
		},
		[]string{"layer"}, // "redis"
	)

	// NotModifiedResponses tracks 304 Not Modified responses.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "odata_304_responses_total",
			Help: "Total number of OData 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with validators attached.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "odata_conditional_requests_total",
			Help: "Total number of conditional requests sent with If-None-Match or If-Modified-Since",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odata_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
