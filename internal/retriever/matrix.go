package retriever

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Matrix is the brute-force backend, always available: one dense Q x N
// similarity matmul S = Q * Eᵗ, then per-row partial selection. The
// selection is two-phase: an O(N) quickselect partition pulls the k best
// forward, then only those k are sorted, avoiding a full O(N log N) sort
// when k is much smaller than N.
type Matrix struct {
	corpus  *domain.Matrix
	general blas32.General
}

// NewMatrixRetriever builds the brute-force backend.
func NewMatrixRetriever(corpus *domain.Matrix) (*Matrix, error) {
	if corpus == nil || corpus.Rows() == 0 || corpus.Cols() == 0 {
		return nil, fmt.Errorf("%w: matrix backend needs a non-empty embedding matrix", domain.ErrRetrieverUnavailable)
	}
	return &Matrix{
		corpus: corpus,
		general: blas32.General{
			Rows:   corpus.Rows(),
			Cols:   corpus.Cols(),
			Stride: corpus.Cols(),
			Data:   corpus.Data(),
		},
	}, nil
}

// Len returns the corpus size.
func (m *Matrix) Len() int { return m.corpus.Rows() }

// Name identifies the backend.
func (m *Matrix) Name() string { return "matrix" }

// Search computes the full similarity matrix in one Gemm call, then selects
// and sorts the top k per query row.
func (m *Matrix) Search(queries *domain.Matrix, topK int) (*Result, error) {
	k, err := validateSearch(queries, topK, m.corpus.Rows(), m.corpus.Cols())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Scores:  make([][]float32, queries.Rows()),
		Indices: make([][]int, queries.Rows()),
	}
	if queries.Rows() == 0 {
		return res, nil
	}

	n := m.corpus.Rows()
	sims := blas32.General{
		Rows:   queries.Rows(),
		Cols:   n,
		Stride: n,
		Data:   make([]float32, queries.Rows()*n),
	}
	qGen := blas32.General{
		Rows:   queries.Rows(),
		Cols:   queries.Cols(),
		Stride: queries.Cols(),
		Data:   queries.Data(),
	}
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, qGen, m.general, 0, sims)

	for q := 0; q < queries.Rows(); q++ {
		row := sims.Data[q*n : (q+1)*n]
		cands := make([]candidate, n)
		for i, s := range row {
			cands[i] = candidate{index: i, score: s}
		}
		selectTopK(cands, k)
		cands = cands[:k]
		sortCandidates(cands)
		fillRow(res, q, cands)
	}
	return res, nil
}

// selectTopK partially partitions cands so the k best under better() occupy
// cands[:k] in arbitrary order. Quickselect with a middle pivot; better()
// is a strict total order (indices are distinct), so the loop terminates.
func selectTopK(cands []candidate, k int) {
	if k >= len(cands) {
		return
	}
	lo, hi := 0, len(cands)-1
	for lo < hi {
		p := partition(cands, lo, hi)
		switch {
		case p == k:
			return
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition orders cands[lo..hi] around the middle element, best-first,
// and returns the pivot's final position.
func partition(cands []candidate, lo, hi int) int {
	mid := lo + (hi-lo)/2
	cands[mid], cands[hi] = cands[hi], cands[mid]
	pivot := cands[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if better(cands[j], pivot) {
			cands[i], cands[j] = cands[j], cands[i]
			i++
		}
	}
	cands[i], cands[hi] = cands[hi], cands[i]
	return i
}
