package batch

import (
	"context"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Retriever runs retrieval for one question.
type Retriever interface {
	Retrieve(ctx context.Context, item domain.QuestionItem) (domain.RetrievalResult, error)
}

// Merger collapses one result into the fixed-width candidate list.
type Merger interface {
	Merge(result domain.RetrievalResult) []domain.MergedCandidate
}

// Sink persists per-question outputs as they complete.
type Sink interface {
	WriteResult(res domain.RetrievalResult) (string, error)
	WriteError(qid, modelName string, cause error) (string, error)
}
