package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations tracks store calls by backend, operation and result
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_store_operations_total",
			Help: "Total number of cache store operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"}, // result: "hit", "miss", "ok", "skipped", "error"
	)

	// MemoryOccupancy tracks live entries in memory stores
	MemoryOccupancy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_memory_occupancy",
			Help: "Current number of entries held by in-process cache stores",
		},
	)

	// MemoryRejected tracks new keys dropped because a memory store was full
	MemoryRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_memory_rejected_total",
			Help: "Total number of entries dropped because the in-process store was at capacity",
		},
	)
)

const (
	backendMemory    = "memory"
	backendRedis     = "redis"
	backendMemcached = "memcached"
)

func observe(backend, operation, result string) {
	Operations.WithLabelValues(backend, operation, result).Inc()
}
