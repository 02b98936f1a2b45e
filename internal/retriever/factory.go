package retriever

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Backend selects the retriever implementation.
type Backend string

// Backend constants.
const (
	// BackendAuto prefers the flat index and falls back to brute force.
	BackendAuto Backend = "auto"
	// BackendFlat forces the accelerated flat index.
	BackendFlat Backend = "flat"
	// BackendMatrix forces the brute-force matmul backend.
	BackendMatrix Backend = "matrix"
)

// IsValid checks if the backend is one of the supported values.
func (b Backend) IsValid() bool {
	return b == BackendAuto || b == BackendFlat || b == BackendMatrix
}

// New builds the configured backend over the corpus embedding matrix.
// Auto is a capability check at construction time: the flat index is tried
// first; a build failure logs a warning and falls back to the matrix
// backend. Callers see no behavioral difference between backends.
func New(backend Backend, corpus *domain.Matrix, log *zap.Logger) (Retriever, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch backend {
	case BackendFlat:
		return NewFlat(corpus)
	case BackendMatrix:
		return NewMatrixRetriever(corpus)
	case BackendAuto, Backend(""):
		r, err := NewFlat(corpus)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, domain.ErrRetrieverUnavailable) {
			return nil, err
		}
		log.Warn("flat index unavailable, falling back to matrix backend", zap.Error(err))
		return NewMatrixRetriever(corpus)
	default:
		return nil, fmt.Errorf("unknown retriever backend %q", backend)
	}
}
