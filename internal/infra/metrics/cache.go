package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(cacheRequestsTotal, cacheErrorsTotal)
}

var (
	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache name and result.",
		},
		[]string{"cache", "result"}, // hit|miss
	)

	cacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Redis errors during cache lookups, by cache name.",
		},
		[]string{"cache"},
	)
)

func IncCacheRequest(cache, result string) {
	cacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

func IncCacheError(cache string) {
	cacheErrorsTotal.WithLabelValues(cache).Inc()
}
