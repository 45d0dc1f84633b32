package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawdesk_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks in-memory cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lawdesk_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheEntries tracks the number of entries held in memory
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lawdesk_cache_entries",
			Help: "Current number of in-memory cache entries",
		},
	)

	// CacheInvalidations tracks removed entries by reason
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawdesk_cache_invalidations_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"}, // "key", "pattern", "clear", "expired", "error"
	)

	// CacheErrors tracks shared store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawdesk_cache_errors_total",
			Help: "Total number of shared cache store errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "scan"
	)
)
