package retrieval

import (
	"context"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/retriever"
)

// QueryEncoder turns query texts into a normalized query matrix.
type QueryEncoder interface {
	Encode(ctx context.Context, texts []string) (*domain.Matrix, error)
}

// Searcher runs exact nearest-neighbour search over the corpus embeddings.
type Searcher interface {
	Search(queries *domain.Matrix, topK int) (*retriever.Result, error)
	Name() string
}
