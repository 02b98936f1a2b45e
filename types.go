package hopdex

import (
	"context"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Embedding is one query vector with its token usage.
type Embedding struct {
	Vector      []float32
	TotalTokens int
}

// BatchEmbedding carries vectors for a whole query batch, in input order.
type BatchEmbedding struct {
	Vectors     [][]float32
	TotalTokens int
}

// Embedder vectorizes query texts. Implementations call the embedding
// provider of the caller's choice.
type Embedder interface {
	Embed(ctx context.Context, text string) (Embedding, error)
}

// BatchEmbedder is an optional Embedder extension: one provider call for a
// whole batch. The client uses it whenever the embedder implements it.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbedding, error)
}

// Question is one multi-hop question with its externally decomposed
// single-hop sub-questions.
type Question struct {
	ID        string // optional; generated when empty
	Text      string
	SingleHop []string
}

// Hit is one ranked corpus document.
type Hit struct {
	Rank     int
	Score    float32
	DocID    string
	Metadata map[string]any
}

// QueryResult is the ranked hit list of one query within a question.
type QueryResult struct {
	Query string
	Type  string // "original" or "single_hop"
	Hits  []Hit
}

// Candidate is one slot of the merged candidate list. Empty slots carry
// the padding sentinel.
type Candidate struct {
	Rank  int
	Text  string
	Empty bool
}

// Result is the full retrieval output for one question.
type Result struct {
	ID         string
	Model      string
	Queries    []QueryResult
	Candidates []Candidate
}

func hitsFromDomain(hits []domain.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{
			Rank:     h.Rank(),
			Score:    h.Score(),
			DocID:    h.DocID(),
			Metadata: recordToMap(h.Metadata()),
		}
	}
	return out
}

func recordToMap(r *domain.Record) map[string]any {
	if r == nil || r.Len() == 0 {
		return nil
	}
	out := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		out[k] = v
	}
	return out
}
