package domain

import (
	"errors"
	"math"
	"testing"
)

func TestMatrixFromRows_Valid(t *testing.T) {
	m, err := MatrixFromRows([][]float32{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Rows() != 3 || m.Cols() != 2 {
		t.Fatalf("shape = %dx%d, want 3x2", m.Rows(), m.Cols())
	}
	if got := m.Row(1); got[0] != 3 || got[1] != 4 {
		t.Errorf("Row(1) = %v, want [3 4]", got)
	}
}

func TestMatrixFromRows_DimensionMismatch(t *testing.T) {
	_, err := MatrixFromRows([][]float32{{1, 2}, {3, 4}, {5}})
	if err == nil {
		t.Fatal("expected error for ragged rows")
	}
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %T", err)
	}
	if dm.Row != 3 || dm.Got != 1 || dm.Want != 2 {
		t.Errorf("mismatch = row %d dim %d want %d", dm.Row, dm.Got, dm.Want)
	}
}

func TestMatrixFromRows_Empty(t *testing.T) {
	if _, err := MatrixFromRows(nil); err == nil {
		t.Error("expected error for no vectors")
	}
	if _, err := MatrixFromRows([][]float32{{}}); err == nil {
		t.Error("expected error for zero-dimension vectors")
	}
}

func TestNormalizeRows_UnitNorm(t *testing.T) {
	m, err := MatrixFromRows([][]float32{{3, 4}, {1, 0}, {-2, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.NormalizeRows()

	for i := 0; i < m.Rows(); i++ {
		var sum float64
		for _, v := range m.Row(i) {
			sum += float64(v) * float64(v)
		}
		if norm := math.Sqrt(sum); math.Abs(norm-1) > 1e-5 {
			t.Errorf("row %d norm = %f, want 1", i, norm)
		}
	}
	if got := m.Row(0); math.Abs(float64(got[0])-0.6) > 1e-6 || math.Abs(float64(got[1])-0.8) > 1e-6 {
		t.Errorf("Row(0) = %v, want [0.6 0.8]", got)
	}
}

func TestNormalizeRows_ZeroRowStaysZero(t *testing.T) {
	m := NewMatrix(1, 3)
	m.NormalizeRows()
	for _, v := range m.Row(0) {
		if v != 0 {
			t.Fatalf("zero row became %v", m.Row(0))
		}
	}
}

func TestRow_IsView(t *testing.T) {
	m := NewMatrix(2, 2)
	m.Row(0)[1] = 7
	if m.Data()[1] != 7 {
		t.Error("Row must be a view into the backing slice")
	}
}
