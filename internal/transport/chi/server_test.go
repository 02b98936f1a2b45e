package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/retriever"
	healthuc "github.com/kailas-cloud/hopdex/internal/usecase/health"
	mergeuc "github.com/kailas-cloud/hopdex/internal/usecase/merge"
	retrievaluc "github.com/kailas-cloud/hopdex/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/hopdex/internal/usecase/usage"
)

// --- Mocks ---

type mockEncoder struct {
	err error
}

func (m *mockEncoder) Encode(_ context.Context, texts []string) (*domain.Matrix, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows := make([][]float32, len(texts))
	for i := range texts {
		rows[i] = []float32{1, 0}
	}
	mat, err := domain.MatrixFromRows(rows)
	if err != nil {
		panic(err)
	}
	return mat, nil
}

type mockSearcher struct {
	err error
}

func (m *mockSearcher) Search(queries *domain.Matrix, topK int) (*retriever.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	res := &retriever.Result{
		Scores:  make([][]float32, queries.Rows()),
		Indices: make([][]int, queries.Rows()),
	}
	for q := 0; q < queries.Rows(); q++ {
		for j := 0; j < topK && j < 2; j++ {
			res.Scores[q] = append(res.Scores[q], 1.0-float32(j)*0.1)
			res.Indices[q] = append(res.Indices[q], j)
		}
	}
	return res, nil
}

func (m *mockSearcher) Name() string { return "flat" }

func newTestStore(t *testing.T) *domain.VectorStore {
	t.Helper()
	emb, err := domain.MatrixFromRows([][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	meta := make([]*domain.Record, 2)
	for i, title := range []string{"Paper A", "Paper B"} {
		r := domain.NewRecord()
		r.Set("title", title)
		meta[i] = r
	}
	store, err := domain.NewVectorStore([]string{"doc-1", "doc-2"}, emb, meta)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return store
}

func newTestServer(t *testing.T, enc *mockEncoder, srch *mockSearcher) http.Handler {
	t.Helper()
	svc := retrievaluc.New(newTestStore(t), enc, srch, "test-model", 2, zap.NewNop())
	srv := NewServer(svc, mergeuc.New(5, "-"), usageuc.New(nil), healthuc.New(nil, nil), zap.NewNop())
	r := chirouter.NewRouter()
	srv.Register(r)
	return r
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{"queries": ["what is attention?", "what is a transformer?"]}`)
	req := httptest.NewRequest("POST", "/api/v1/search", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Backend != "flat" {
		t.Errorf("backend: got %q, want %q", resp.Backend, "flat")
	}
	if resp.Model != "test-model" {
		t.Errorf("model: got %q, want %q", resp.Model, "test-model")
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Query != "what is attention?" {
		t.Errorf("first result query: got %q", resp.Results[0].Query)
	}
	hits := resp.Results[0].Hits
	if len(hits) != 2 {
		t.Fatalf("hits: got %d, want 2", len(hits))
	}
	if hits[0].DocID != "doc-1" || hits[0].Rank != 1 {
		t.Errorf("first hit: got %+v", hits[0])
	}
	if hits[1].Score >= hits[0].Score {
		t.Error("hits should be sorted by descending score")
	}
}

func TestSearch_NoQueries_400(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	req := httptest.NewRequest("POST", "/api/v1/search", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != CodeValidationFailed {
		t.Errorf("error code: got %s, want %s", errResp.Code, CodeValidationFailed)
	}
}

func TestSearch_BlankQuery_400(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{"queries": ["ok", ""]}`)
	req := httptest.NewRequest("POST", "/api/v1/search", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_InvalidTopK_400(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{"queries": ["q"], "top_k": 0}`)
	req := httptest.NewRequest("POST", "/api/v1/search", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_ProviderError_502(t *testing.T) {
	h := newTestServer(t, &mockEncoder{err: domain.ErrEmbeddingProviderError}, &mockSearcher{})

	body := strings.NewReader(`{"queries": ["q"]}`)
	req := httptest.NewRequest("POST", "/api/v1/search", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != CodeEmbeddingProviderError {
		t.Errorf("error code: got %s, want %s", errResp.Code, CodeEmbeddingProviderError)
	}
}

func TestSearch_QuotaExceeded_402(t *testing.T) {
	h := newTestServer(t, &mockEncoder{err: domain.ErrEmbeddingQuotaExceeded}, &mockSearcher{})

	body := strings.NewReader(`{"queries": ["q"]}`)
	req := httptest.NewRequest("POST", "/api/v1/search", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusPaymentRequired)
	}
}

func TestSearch_DimMismatch_400WithRow(t *testing.T) {
	h := newTestServer(t, &mockEncoder{err: domain.NewDimensionMismatch(3, 768, 384)}, &mockSearcher{})

	body := strings.NewReader(`{"queries": ["q"]}`)
	req := httptest.NewRequest("POST", "/api/v1/search", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["code"] != string(CodeVectorDimMismatch) {
		t.Errorf("code: got %v", resp["code"])
	}
	if resp["row"] != float64(3) {
		t.Errorf("row: got %v, want 3", resp["row"])
	}
}

func TestRetrieve_OK(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{
		"id": "q-1",
		"question": "who supervised the author of paper A?",
		"single_hop_questions": ["who wrote paper A?", "who supervised them?"]
	}`)
	req := httptest.NewRequest("POST", "/api/v1/retrieve", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp RetrieveResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "q-1" {
		t.Errorf("id: got %q", resp.ID)
	}
	if len(resp.Queries) != 3 {
		t.Fatalf("queries: got %d, want 3", len(resp.Queries))
	}
	if resp.Queries[0].Type != "original" {
		t.Errorf("first query type: got %q, want original", resp.Queries[0].Type)
	}
	if resp.Queries[1].Type != "single_hop" {
		t.Errorf("second query type: got %q, want single_hop", resp.Queries[1].Type)
	}
	if len(resp.Candidates) != 5 {
		t.Fatalf("candidates: got %d, want 5", len(resp.Candidates))
	}
	// both corpus docs retrieved, remaining slots padded
	if resp.Candidates[0].Empty {
		t.Error("first candidate should not be empty")
	}
	last := resp.Candidates[4]
	if !last.Empty || last.Text != "-" {
		t.Errorf("last candidate: got %+v, want sentinel padding", last)
	}
}

func TestRetrieve_NCapOverride(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{"id": "q-1", "question": "q?", "n_cap": 3}`)
	req := httptest.NewRequest("POST", "/api/v1/retrieve", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp RetrieveResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Candidates) != 3 {
		t.Errorf("candidates: got %d, want 3", len(resp.Candidates))
	}
}

func TestRetrieve_OmittedIDGetsGenerated(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{"question": "what is x?"}`)
	req := httptest.NewRequest("POST", "/api/v1/retrieve", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp RetrieveResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("response id should be assigned when the request omits it")
	}
}

func TestRetrieve_MissingQuestion_400(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	body := strings.NewReader(`{"id": "q-1"}`)
	req := httptest.NewRequest("POST", "/api/v1/retrieve", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetUsage_DefaultPeriod(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	req := httptest.NewRequest("GET", "/api/v1/usage", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp UsageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Period != "month" {
		t.Errorf("period: got %q, want month", resp.Period)
	}
}

func TestGetUsage_InvalidPeriod_400(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	req := httptest.NewRequest("GET", "/api/v1/usage?period=week", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHealthCheck_OK(t *testing.T) {
	h := newTestServer(t, &mockEncoder{}, &mockSearcher{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
}
