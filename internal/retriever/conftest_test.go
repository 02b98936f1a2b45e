package retriever

import (
	"testing"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// mustMatrix builds a matrix from rows or fails the test.
func mustMatrix(t *testing.T, rows [][]float32) *domain.Matrix {
	t.Helper()
	m, err := domain.MatrixFromRows(rows)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	return m
}

// threeDocCorpus is the canonical toy corpus: two axis documents and one
// diagonal between them.
func threeDocCorpus(t *testing.T) *domain.Matrix {
	t.Helper()
	return mustMatrix(t, [][]float32{
		{1, 0},
		{0, 1},
		{0.7071, 0.7071},
	})
}

// dyadicCorpus returns 4-D unit vectors whose norms and pairwise dot
// products are exactly representable in float32 (components 0, ±0.5, ±1),
// so both backends must produce bit-identical scores.
func dyadicCorpus(t *testing.T) *domain.Matrix {
	t.Helper()
	rows := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{-1, 0, 0, 0},
		{0, -1, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
		{0.5, 0.5, 0.5, -0.5},
		{0.5, 0.5, -0.5, 0.5},
		{0.5, -0.5, 0.5, 0.5},
		{-0.5, 0.5, 0.5, 0.5},
		{0.5, 0.5, -0.5, -0.5},
		{0.5, -0.5, 0.5, -0.5},
		{0.5, -0.5, -0.5, 0.5},
		{-0.5, -0.5, 0.5, 0.5},
		{-0.5, 0.5, -0.5, 0.5},
		{-0.5, 0.5, 0.5, -0.5},
		{0.5, -0.5, -0.5, -0.5},
		{-0.5, 0.5, -0.5, -0.5},
		{-0.5, -0.5, 0.5, -0.5},
		{-0.5, -0.5, -0.5, 0.5},
		{-0.5, -0.5, -0.5, -0.5},
	}
	return mustMatrix(t, rows)
}

// bothBackends builds the flat and matrix retrievers over one corpus.
func bothBackends(t *testing.T, corpus *domain.Matrix) []Retriever {
	t.Helper()
	flat, err := NewFlat(corpus)
	if err != nil {
		t.Fatalf("build flat: %v", err)
	}
	brute, err := NewMatrixRetriever(corpus)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	return []Retriever{flat, brute}
}
