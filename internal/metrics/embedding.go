package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding collectors. The transport embedders record requests, latency
// and token counters; the metered wrapper owns the budget gauge; the cache
// decorator owns hit/miss counts.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hopdex",
			Name:      "embedding_requests_total",
			Help:      "Embedding API calls by provider, model and outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hopdex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding API round-trip latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hopdex",
			Name:      "embedding_tokens_total",
			Help:      "Tokens billed by the embedding provider, split prompt vs total",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hopdex",
			Name:      "embedding_errors_total",
			Help:      "Embedding failures by error class",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hopdex",
			Name:      "embedding_budget_tokens_remaining",
			Help:      "Tokens left in the daily and monthly budget windows",
		},
		[]string{"provider", "period"},
	)

	EmbeddingBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hopdex",
			Name:      "embedding_batch_size",
			Help:      "Number of texts per embedding API call",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"provider", "model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hopdex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var embeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding collector group.
func RegisterEmbeddingMetrics() {
	registerAll(&embeddingOnce,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingBatchSize,
		EmbeddingBudgetTokensRemaining,
		EmbeddingCacheTotal,
	)
}
