package retriever

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

func TestSearch_ThreeDocScenario(t *testing.T) {
	corpus := threeDocCorpus(t)
	queries := mustMatrix(t, [][]float32{{1, 0}})

	for _, r := range bothBackends(t, corpus) {
		res, err := r.Search(queries, 2)
		if err != nil {
			t.Fatalf("%s: %v", r.Name(), err)
		}
		if got := res.Indices[0]; len(got) != 2 || got[0] != 0 || got[1] != 2 {
			t.Errorf("%s: indices = %v, want [0 2]", r.Name(), got)
		}
		if s := res.Scores[0]; math.Abs(float64(s[0])-1.0) > 1e-3 || math.Abs(float64(s[1])-0.7071) > 1e-3 {
			t.Errorf("%s: scores = %v, want [1.0 0.7071]", r.Name(), s)
		}
	}
}

func TestSearch_BackendsAgreeExactly(t *testing.T) {
	corpus := dyadicCorpus(t)
	queries := mustMatrix(t, [][]float32{
		{1, 0, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
		{0, -1, 0, 0},
		{0.5, -0.5, 0.5, -0.5},
	})

	backends := bothBackends(t, corpus)
	for _, topK := range []int{1, 3, 7, corpus.Rows()} {
		flatRes, err := backends[0].Search(queries, topK)
		if err != nil {
			t.Fatalf("flat top_k=%d: %v", topK, err)
		}
		matRes, err := backends[1].Search(queries, topK)
		if err != nil {
			t.Fatalf("matrix top_k=%d: %v", topK, err)
		}

		for q := 0; q < queries.Rows(); q++ {
			for j := range flatRes.Indices[q] {
				if flatRes.Indices[q][j] != matRes.Indices[q][j] {
					t.Fatalf("top_k=%d query %d pos %d: flat index %d, matrix index %d",
						topK, q, j, flatRes.Indices[q][j], matRes.Indices[q][j])
				}
				diff := math.Abs(float64(flatRes.Scores[q][j]) - float64(matRes.Scores[q][j]))
				if diff > 1e-6 {
					t.Fatalf("top_k=%d query %d pos %d: score diff %g", topK, q, j, diff)
				}
			}
		}
	}
}

func TestSearch_TieBreaksByLowestIndex(t *testing.T) {
	// three byte-identical documents tie exactly; order must be corpus order
	corpus := mustMatrix(t, [][]float32{
		{0, 1},
		{1, 0},
		{1, 0},
		{1, 0},
	})
	queries := mustMatrix(t, [][]float32{{1, 0}})

	for _, r := range bothBackends(t, corpus) {
		res, err := r.Search(queries, 3)
		if err != nil {
			t.Fatalf("%s: %v", r.Name(), err)
		}
		want := []int{1, 2, 3}
		for j, idx := range res.Indices[0] {
			if idx != want[j] {
				t.Errorf("%s: indices = %v, want %v", r.Name(), res.Indices[0], want)
				break
			}
		}
	}
}

func TestSearch_KCappedAtCorpusSize(t *testing.T) {
	corpus := threeDocCorpus(t)
	queries := mustMatrix(t, [][]float32{{0.6, 0.8}})

	for _, r := range bothBackends(t, corpus) {
		res, err := r.Search(queries, 10)
		if err != nil {
			t.Fatalf("%s: %v", r.Name(), err)
		}
		if res.K() != 3 {
			t.Errorf("%s: k = %d, want 3", r.Name(), res.K())
		}
	}
}

func TestSearch_ScoresDescending(t *testing.T) {
	corpus := dyadicCorpus(t)
	queries := mustMatrix(t, [][]float32{{0.5, 0.5, -0.5, 0.5}})

	for _, r := range bothBackends(t, corpus) {
		res, err := r.Search(queries, corpus.Rows())
		if err != nil {
			t.Fatalf("%s: %v", r.Name(), err)
		}
		scores := res.Scores[0]
		for j := 1; j < len(scores); j++ {
			if scores[j] > scores[j-1] {
				t.Errorf("%s: scores not descending at %d: %v", r.Name(), j, scores)
				break
			}
		}
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	corpus := threeDocCorpus(t)
	queries := mustMatrix(t, [][]float32{{1, 0, 0}})

	for _, r := range bothBackends(t, corpus) {
		_, err := r.Search(queries, 2)
		if err == nil {
			t.Fatalf("%s: expected error for 3-D query against 2-D corpus", r.Name())
		}
		if !errors.Is(err, domain.ErrVectorDimMismatch) {
			t.Errorf("%s: expected ErrVectorDimMismatch, got %v", r.Name(), err)
		}
	}
}

func TestSearch_InvalidTopK(t *testing.T) {
	corpus := threeDocCorpus(t)
	queries := mustMatrix(t, [][]float32{{1, 0}})

	for _, r := range bothBackends(t, corpus) {
		if _, err := r.Search(queries, 0); err == nil {
			t.Errorf("%s: expected error for top_k=0", r.Name())
		}
	}
}

func TestBuild_EmptyMatrix(t *testing.T) {
	if _, err := NewFlat(nil); !errors.Is(err, domain.ErrRetrieverUnavailable) {
		t.Errorf("flat: expected ErrRetrieverUnavailable, got %v", err)
	}
	if _, err := NewMatrixRetriever(nil); !errors.Is(err, domain.ErrRetrieverUnavailable) {
		t.Errorf("matrix: expected ErrRetrieverUnavailable, got %v", err)
	}
	empty := domain.NewMatrix(0, 4)
	if _, err := NewFlat(empty); err == nil {
		t.Error("flat: expected error for zero-row matrix")
	}
}

func TestFlat_CosineIsScaleInvariant(t *testing.T) {
	// the flat backend normalizes inside the kernel, so scaling a query or
	// a corpus row must not change any score
	unit, err := NewFlat(threeDocCorpus(t))
	if err != nil {
		t.Fatal(err)
	}
	scaled, err := NewFlat(mustMatrix(t, [][]float32{
		{3, 0},
		{0, 0.25},
		{7.071, 7.071},
	}))
	if err != nil {
		t.Fatal(err)
	}

	unitRes, err := unit.Search(mustMatrix(t, [][]float32{{0.6, 0.8}}), 3)
	if err != nil {
		t.Fatal(err)
	}
	scaledRes, err := scaled.Search(mustMatrix(t, [][]float32{{6, 8}}), 3)
	if err != nil {
		t.Fatal(err)
	}

	for j := range unitRes.Scores[0] {
		if unitRes.Indices[0][j] != scaledRes.Indices[0][j] {
			t.Fatalf("pos %d: unit index %d, scaled index %d",
				j, unitRes.Indices[0][j], scaledRes.Indices[0][j])
		}
		diff := math.Abs(float64(unitRes.Scores[0][j]) - float64(scaledRes.Scores[0][j]))
		if diff > 1e-5 {
			t.Errorf("pos %d: score diff %g between unit and scaled inputs", j, diff)
		}
	}
}

func TestSearch_ZeroQueryVector(t *testing.T) {
	// a degenerate all-zero query scores 0 everywhere in both backends
	corpus := threeDocCorpus(t)
	queries := domain.NewMatrix(1, 2)

	for _, r := range bothBackends(t, corpus) {
		res, err := r.Search(queries, 2)
		if err != nil {
			t.Fatalf("%s: %v", r.Name(), err)
		}
		for _, s := range res.Scores[0] {
			if s != 0 {
				t.Errorf("%s: zero query produced score %v", r.Name(), s)
			}
		}
		// ties at zero resolve to the lowest indices
		if res.Indices[0][0] != 0 || res.Indices[0][1] != 1 {
			t.Errorf("%s: indices = %v, want [0 1]", r.Name(), res.Indices[0])
		}
	}
}
