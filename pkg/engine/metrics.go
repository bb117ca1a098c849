package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PathRequestsTotal counts shortest-path requests by outcome
	// (ok, no_path, not_found, validation, error).
	PathRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathlord_path_requests_total",
			Help: "Total number of shortest-path requests",
		},
		[]string{"outcome"},
	)

	// PathComputeSeconds tracks time spent inside the path engine
	PathComputeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathlord_path_compute_seconds",
			Help:    "Time spent computing shortest paths",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	// GraphMutationsTotal counts graph mutations
	GraphMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathlord_graph_mutations_total",
			Help: "Total number of graph mutations",
		},
		[]string{"op", "outcome"},
	)

	// PathCacheTotal counts path cache lookups
	PathCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathlord_path_cache_total",
			Help: "Path cache lookups by result",
		},
		[]string{"result"},
	)

	// GraphSize tracks the node and edge counts seen by the last snapshot
	GraphSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pathlord_graph_size",
			Help: "Number of nodes and edges in the last graph snapshot",
		},
		[]string{"kind"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(PathRequestsTotal)
	prometheus.MustRegister(PathComputeSeconds)
	prometheus.MustRegister(GraphMutationsTotal)
	prometheus.MustRegister(PathCacheTotal)
	prometheus.MustRegister(GraphSize)
}
