package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval pipeline collectors, recorded by the retrieval use case.
var (
	RetrievalQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hopdex",
			Name:      "retrieval_questions_total",
			Help:      "Total number of questions processed",
		},
		[]string{"status"}, // "ok" / "error"
	)

	RetrievalSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hopdex",
			Name:      "retrieval_search_duration_seconds",
			Help:      "Top-k search duration in seconds, one observation per query batch",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend"},
	)

	RetrievalHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hopdex",
			Name:      "retrieval_hits_total",
			Help:      "Total hits returned across all queries",
		},
	)
)

var retrievalOnce sync.Once

// RegisterRetrievalMetrics registers the retrieval collector group.
func RegisterRetrievalMetrics() {
	registerAll(&retrievalOnce,
		RetrievalQuestionsTotal,
		RetrievalSearchDuration,
		RetrievalHitsTotal,
	)
}
