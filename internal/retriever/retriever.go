// Package retriever implements exact top-k inner-product search over the
// corpus embedding matrix, with two interchangeable backends.
package retriever

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Retriever is the exact top-k search contract shared by both backends.
// Queries and corpus rows are expected L2-normalized, so the inner product
// is the cosine similarity. Search is pure compute and safe for concurrent
// use once the backend is built.
type Retriever interface {
	// Search returns the k = min(topK, Len()) best corpus rows per query,
	// sorted by descending score.
	Search(queries *domain.Matrix, topK int) (*Result, error)
	// Len returns the corpus size.
	Len() int
	// Name identifies the backend for logs and metrics.
	Name() string
}

// Result holds top-k scores and corpus indices, one row per query.
// Scores[q][j] is the cosine similarity of hit j for query q, descending;
// Indices[q][j] is the corpus row that produced it.
type Result struct {
	Scores  [][]float32
	Indices [][]int
}

// K returns the per-query hit count.
func (r *Result) K() int {
	if len(r.Scores) == 0 {
		return 0
	}
	return len(r.Scores[0])
}

// candidate pairs a corpus index with its similarity score.
type candidate struct {
	index int
	score float32
}

// better reports whether a outranks b: higher score first, exact ties go to
// the lower corpus index. Both backends order through this comparator, so
// their output is identical even among tied scores.
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.index < b.index
}

// sortCandidates sorts best-first.
func sortCandidates(c []candidate) {
	sort.Slice(c, func(i, j int) bool { return better(c[i], c[j]) })
}

// validateSearch checks query shape against the corpus and caps k.
func validateSearch(queries *domain.Matrix, topK, corpusLen, corpusDim int) (int, error) {
	if queries == nil {
		return 0, fmt.Errorf("search: nil query matrix")
	}
	if topK < 1 {
		return 0, fmt.Errorf("search: top_k must be positive, got %d", topK)
	}
	if queries.Rows() > 0 && queries.Cols() != corpusDim {
		return 0, fmt.Errorf("search: %w: query dimension %d, corpus dimension %d",
			domain.ErrVectorDimMismatch, queries.Cols(), corpusDim)
	}
	k := topK
	if k > corpusLen {
		k = corpusLen
	}
	return k, nil
}

// fillRow writes sorted candidates into one result row.
func fillRow(r *Result, q int, cands []candidate) {
	scores := make([]float32, len(cands))
	indices := make([]int, len(cands))
	for j, c := range cands {
		scores[j] = c.score
		indices[j] = c.index
	}
	r.Scores[q] = scores
	r.Indices[q] = indices
}
