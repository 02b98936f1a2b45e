package domain

import (
	"fmt"
	"math"
)

// NormEpsilon guards the division when normalizing a degenerate all-zero row.
const NormEpsilon = 1e-12

// Matrix is a dense row-major float32 matrix. It backs both the corpus
// embedding store and per-request query batches, so rows are exposed as
// views into the backing slice, never copies.
type Matrix struct {
	rows int
	cols int
	data []float32
}

// NewMatrix allocates a zero-filled rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// MatrixFromRows copies vectors into a new matrix. All vectors must share one
// dimension; the mismatch error numbers rows from 1.
func MatrixFromRows(vectors [][]float32) (*Matrix, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("matrix from rows: no vectors")
	}
	cols := len(vectors[0])
	if cols == 0 {
		return nil, fmt.Errorf("matrix from rows: zero-dimension vectors")
	}
	m := NewMatrix(len(vectors), cols)
	for i, v := range vectors {
		if len(v) != cols {
			return nil, NewDimensionMismatch(i+1, len(v), cols)
		}
		copy(m.Row(i), v)
	}
	return m, nil
}

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// Row returns row i as a view into the backing slice.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Data returns the backing slice in row-major order. Shared, not a copy;
// callers hand it to BLAS and parquet readers and must not resize it.
func (m *Matrix) Data() []float32 { return m.data }

// NormalizeRows scales every row to unit L2 norm in place:
// v' = v / (||v|| + NormEpsilon). All-zero rows stay all-zero.
func (m *Matrix) NormalizeRows() {
	for i := 0; i < m.rows; i++ {
		row := m.Row(i)
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		inv := 1 / (math.Sqrt(sum) + NormEpsilon)
		for j := range row {
			row[j] = float32(float64(row[j]) * inv)
		}
	}
}
