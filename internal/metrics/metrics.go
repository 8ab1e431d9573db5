package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rate limiter metrics, labelled with the limiter name
var (
	RateLimitWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratelimit_wait_seconds",
			Help:    "Time a task spent queued in the rate limiter before dispatch.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"limiter"},
	)

	RateLimitDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_dispatch_total",
			Help: "Total number of tasks dispatched by the rate limiter.",
		},
		[]string{"limiter"},
	)

	RateLimitQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_queue_depth",
			Help: "Number of tasks waiting for the rate limiter.",
		},
		[]string{"limiter"},
	)
)

// Upstream request metrics
var (
	AniDBRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anidb_requests_total",
			Help: "Total number of AniDB HTTP API requests by outcome.",
		},
		[]string{"status"},
	)

	RelationLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relation_lookups_total",
			Help: "Total number of relations service lookups by outcome.",
		},
		[]string{"status"},
	)
)

// ResolutionsTotal counts end-to-end resolutions by the stage that ended them.
var ResolutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resolutions_total",
		Help: "Total number of title resolutions by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(
		RateLimitWaitSeconds,
		RateLimitDispatchTotal,
		RateLimitQueueDepth,
		AniDBRequestsTotal,
		RelationLookupsTotal,
		ResolutionsTotal,
	)
}
