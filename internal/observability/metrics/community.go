package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommunityMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_mutations_total",
			Help: "Total number of community aggregate mutations by action and result",
		},
		[]string{"action", "result"},
	)

	CommunityMutationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_mutation_duration_seconds",
			Help:    "Duration of community aggregate mutations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"action"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"cache", "operation"},
	)

	FeedConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_websocket_connections_active",
			Help: "Number of active community feed WebSocket connections",
		},
	)

	FeedSnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_snapshots_published_total",
			Help: "Total number of community snapshots published to the feed hub",
		},
	)

	FeedDroppedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_dropped_messages_total",
			Help: "Total number of feed messages dropped due to slow subscribers",
		},
	)

	FeedDisconnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_websocket_disconnections_total",
			Help: "Total number of feed WebSocket disconnections",
		},
		[]string{"reason"},
	)
)

func ObserveCommunityMutation(action string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CommunityMutationsTotal.WithLabelValues(action, result).Inc()
	CommunityMutationDurationSeconds.WithLabelValues(action).Observe(time.Since(start).Seconds())
}
