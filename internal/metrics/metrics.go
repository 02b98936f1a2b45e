// Package metrics defines the Prometheus instrumentation for the retrieval
// service: the HTTP transport, the embedding providers and the search
// pipeline each register their own collector group.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerAll is MustRegister guarded per collector group, keeping the
// Register* helpers idempotent across main and test setups.
func registerAll(once *sync.Once, collectors ...prometheus.Collector) {
	once.Do(func() {
		for _, c := range collectors {
			prometheus.MustRegister(c)
		}
	})
}
