package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "navigator",
			Name:      "searches_total",
			Help:      "Total number of retrieval queries",
		},
		[]string{"kind"}, // "query" / "programs"
	)

	ChunkCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "navigator",
			Name:      "chunk_cache_total",
			Help:      "Chunk payload loads by source",
		},
		[]string{"source"}, // "cache" / "network"
	)

	ReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "navigator",
			Name:      "dataset_reloads_total",
			Help:      "Dataset reload attempts",
		},
		[]string{"result"}, // "ok" / "error"
	)

	DatasetChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "navigator",
			Name:      "dataset_chunks",
			Help:      "Chunks in the active index after override application",
		},
	)

	OverrideIssues = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "navigator",
			Name:      "override_issues",
			Help:      "Validation issues in the current override document",
		},
		[]string{"severity"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(ChunkCacheTotal)
	prometheus.MustRegister(ReloadsTotal)
	prometheus.MustRegister(DatasetChunks)
	prometheus.MustRegister(OverrideIssues)
	retrievalMetricsRegistered = true
}
