package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded in Requests.
const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultBypass      = "bypass"
	ResultNotModified = "not_modified"
)

var (
	// Requests tracks requests seen by the middleware by outcome
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_requests_total",
			Help: "Total number of requests handled by the response cache by result",
		},
		[]string{"result"}, // "hit", "miss", "bypass", "not_modified"
	)

	// EntriesStored tracks responses handed to the store
	EntriesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_entries_stored_total",
			Help: "Total number of responses persisted to the cache store",
		},
	)

	// Errors tracks store failures seen by the middleware
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_errors_total",
			Help: "Total number of cache store errors seen by the middleware",
		},
		[]string{"operation"}, // "get", "set"
	)
)
