package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	outcomeHit         = "hit"
	outcomeNotModified = "not_modified"
	outcomeStored      = "stored"
	outcomeNotStored   = "not_stored"
	outcomeBypass      = "bypass"
)

var (
	// RequestsTotal tracks requests seen by the middleware by outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_requests_total",
			Help: "Total number of requests handled by the cache middleware",
		},
		[]string{"outcome"}, // "hit", "not_modified", "stored", "not_stored", "bypass"
	)

	// InvalidationsTotal tracks tag invalidations triggered by mutations
	InvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respcache_invalidations_total",
			Help: "Total number of tag invalidations triggered by mutating requests",
		},
		[]string{"route", "result"}, // result: "ok", "error"
	)

	// LookupDuration tracks cache lookup latency
	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "respcache_lookup_duration_seconds",
			Help:    "Cache lookup duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 0.1ms to ~1.6s
		},
	)
)
