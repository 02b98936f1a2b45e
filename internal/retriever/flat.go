package retriever

import (
	"container/heap"
	"fmt"

	"github.com/viant/vec/search"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Flat is the accelerated exact-search backend: a flat inner-product index
// over the corpus matrix. Each query is scored against every row with the
// vec cosine kernel while a k-bounded heap keeps the running best. Row
// magnitudes are precomputed once at build time to spot zero rows, which
// the kernel cannot divide by.
type Flat struct {
	corpus *domain.Matrix
	mags   []float32
}

// NewFlat builds the flat index. O(N*D): one magnitude pass over the matrix.
func NewFlat(corpus *domain.Matrix) (*Flat, error) {
	if corpus == nil || corpus.Rows() == 0 || corpus.Cols() == 0 {
		return nil, fmt.Errorf("%w: flat index needs a non-empty embedding matrix", domain.ErrRetrieverUnavailable)
	}
	mags := make([]float32, corpus.Rows())
	for i := range mags {
		mags[i] = search.Float32s(corpus.Row(i)).Magnitude()
	}
	return &Flat{corpus: corpus, mags: mags}, nil
}

// Len returns the corpus size.
func (f *Flat) Len() int { return f.corpus.Rows() }

// Name identifies the backend.
func (f *Flat) Name() string { return "flat" }

// Search scans the index once per query, keeping the k best candidates in
// a bounded heap. O(N log k) per query.
func (f *Flat) Search(queries *domain.Matrix, topK int) (*Result, error) {
	k, err := validateSearch(queries, topK, f.corpus.Rows(), f.corpus.Cols())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Scores:  make([][]float32, queries.Rows()),
		Indices: make([][]int, queries.Rows()),
	}
	for q := 0; q < queries.Rows(); q++ {
		qv := search.Float32s(queries.Row(q))
		qmag := qv.Magnitude()

		kept := make(keepHeap, 0, k)
		for i := 0; i < f.corpus.Rows(); i++ {
			// CosineDistance is the one cosine kernel vec exports on
			// every GOARCH; zero vectors would make it divide by zero,
			// so they score 0 instead.
			var sim float32
			if qmag != 0 && f.mags[i] != 0 {
				sim = 1 - qv.CosineDistance(f.corpus.Row(i))
			}
			cand := candidate{index: i, score: sim}
			if len(kept) < k {
				heap.Push(&kept, cand)
			} else if better(cand, kept[0]) {
				kept[0] = cand
				heap.Fix(&kept, 0)
			}
		}

		cands := make([]candidate, len(kept))
		copy(cands, kept)
		sortCandidates(cands)
		fillRow(res, q, cands)
	}
	return res, nil
}

// keepHeap keeps the current k best candidates; the root is the worst of
// them, so replacement is a single Fix.
type keepHeap []candidate

func (h keepHeap) Len() int           { return len(h) }
func (h keepHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h keepHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *keepHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *keepHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
