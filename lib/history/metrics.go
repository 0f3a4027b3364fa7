package history

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	savesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revlog",
			Subsystem: "history",
			Name:      "saves_total",
			Help:      "Number of save operations by outcome",
		},
		[]string{"collection", "outcome"},
	)

	rollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revlog",
			Subsystem: "history",
			Name:      "rollbacks_total",
			Help:      "Number of rollback operations by strategy",
		},
		[]string{"collection", "strategy"},
	)

	replayLength = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "revlog",
			Subsystem: "history",
			Name:      "replay_change_sets",
			Help:      "Change sets replayed per snapshot reconstruction",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"collection"},
	)

	snapshotCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revlog",
			Subsystem: "history",
			Name:      "snapshot_cache_requests_total",
			Help:      "Snapshot cache lookups by result",
		},
		[]string{"collection", "result"},
	)
)

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		savesTotal,
		rollbacksTotal,
		replayLength,
		snapshotCacheRequests,
	}
}
