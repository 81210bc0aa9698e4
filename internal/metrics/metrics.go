package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TrendingRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_trending_requests_total",
		Help: "Total trending ranking requests by kind",
	}, []string{"kind"})
	FeedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_feed_requests_total",
		Help: "Total feed requests by mode",
	}, []string{"mode"})
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedrank_request_duration_seconds",
		Help:    "Request handling duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedrank_cache_hits_total",
		Help: "Trending cache hits",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedrank_cache_misses_total",
		Help: "Trending cache misses",
	})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedrank_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(TrendingRequests, FeedRequests, RequestDuration,
		CacheHits, CacheMisses, RateLimited)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records the duration of one request.
func ObserveRequest(endpoint string, start time.Time) {
	RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
