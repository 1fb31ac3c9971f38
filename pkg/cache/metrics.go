package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (redis, memory)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses by backend, expired entries included
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"backend"},
	)

	// CacheStored tracks entries written by backend
	CacheStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_stored_total",
			Help: "Total number of responses written to the cache",
		},
		[]string{"backend"},
	)

	// CacheInvalidated tracks entries removed by tag invalidation
	CacheInvalidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_invalidated_entries_total",
			Help: "Total number of cache entries removed by tag invalidation",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "put", "invalidate", "delete"
	)
)
