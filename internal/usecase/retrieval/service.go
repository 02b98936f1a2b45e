package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/metrics"
	"github.com/kailas-cloud/hopdex/internal/retriever"
)

// DefaultTopK is the per-query hit count when the configuration leaves it unset.
const DefaultTopK = 5

// Service runs the per-question retrieval pipeline: the original question
// and its single-hop sub-questions are encoded in one provider call and
// searched in one batched pass over the corpus.
type Service struct {
	store     *domain.VectorStore
	encoder   QueryEncoder
	searcher  Searcher
	modelName string
	topK      int
	log       *zap.Logger
}

// New creates a retrieval service.
func New(
	store *domain.VectorStore, encoder QueryEncoder, searcher Searcher,
	modelName string, topK int, log *zap.Logger,
) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		encoder:   encoder,
		searcher:  searcher,
		modelName: modelName,
		topK:      topK,
		log:       log,
	}
}

// TopK returns the configured per-query hit count.
func (s *Service) TopK() int { return s.topK }

// ModelName returns the embedding model identifier recorded in results.
func (s *Service) ModelName() string { return s.modelName }

// Backend returns the active search backend name.
func (s *Service) Backend() string { return s.searcher.Name() }

// Retrieve runs retrieval for one question and returns one ranked hit list
// per query, original question first.
func (s *Service) Retrieve(ctx context.Context, item domain.QuestionItem) (domain.RetrievalResult, error) {
	queries := domain.QueriesForQuestion(item)
	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Text()
	}

	qm, err := s.encoder.Encode(ctx, texts)
	if err != nil {
		metrics.RetrievalQuestionsTotal.WithLabelValues("error").Inc()
		return domain.RetrievalResult{}, fmt.Errorf("encode queries: %w", err)
	}

	res, err := s.search(qm, s.topK)
	if err != nil {
		metrics.RetrievalQuestionsTotal.WithLabelValues("error").Inc()
		return domain.RetrievalResult{}, fmt.Errorf("search: %w", err)
	}

	queryHits := make([]domain.QueryHits, len(queries))
	for qi, q := range queries {
		queryHits[qi] = domain.NewQueryHits(q, s.zipHits(res.Scores[qi], res.Indices[qi]))
	}
	metrics.RetrievalQuestionsTotal.WithLabelValues("ok").Inc()

	s.log.Debug("question retrieved",
		zap.String("qid", item.QID()),
		zap.Int("queries", len(queries)),
		zap.Int("top_k", s.topK),
	)
	return domain.NewRetrievalResult(item.QID(), s.modelName, queryHits, item.Meta()), nil
}

// Search answers one ad-hoc query text outside any question context.
// topK <= 0 falls back to the configured value.
func (s *Service) Search(ctx context.Context, text string, topK int) ([]domain.Hit, error) {
	lists, err := s.SearchBatch(ctx, []string{text}, topK)
	if err != nil {
		return nil, err
	}
	return lists[0], nil
}

// SearchBatch answers a batch of ad-hoc query texts: one encode call, one
// backend pass, one ranked hit list per query in input order.
func (s *Service) SearchBatch(ctx context.Context, texts []string, topK int) ([][]domain.Hit, error) {
	if topK <= 0 {
		topK = s.topK
	}

	qm, err := s.encoder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encode queries: %w", err)
	}

	res, err := s.search(qm, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	lists := make([][]domain.Hit, len(texts))
	for qi := range texts {
		lists[qi] = s.zipHits(res.Scores[qi], res.Indices[qi])
	}
	return lists, nil
}

// search runs the backend with timing and hit metrics.
func (s *Service) search(qm *domain.Matrix, topK int) (*retriever.Result, error) {
	start := time.Now()
	res, err := s.searcher.Search(qm, topK)
	metrics.RetrievalSearchDuration.WithLabelValues(s.searcher.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.RetrievalHitsTotal.Add(float64(len(res.Indices) * res.K()))
	return res, nil
}

// zipHits joins backend scores and corpus indexes into ranked hits.
func (s *Service) zipHits(scores []float32, indices []int) []domain.Hit {
	hits := make([]domain.Hit, len(indices))
	for j, idx := range indices {
		hits[j] = domain.NewHit(j+1, scores[j], s.store.DocID(idx), s.store.MetadataAt(idx))
	}
	return hits
}
