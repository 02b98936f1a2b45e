package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
	domusage "github.com/kailas-cloud/hopdex/internal/domain/usage"
	logpkg "github.com/kailas-cloud/hopdex/internal/logger"
	healthuc "github.com/kailas-cloud/hopdex/internal/usecase/health"
	mergeuc "github.com/kailas-cloud/hopdex/internal/usecase/merge"
	retrievaluc "github.com/kailas-cloud/hopdex/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/hopdex/internal/usecase/usage"
)

// Per-request bounds.
const (
	maxTopK          = 500
	maxSearchQueries = 64
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the retrieval pipeline over HTTP.
type Server struct {
	retrieval     *retrievaluc.Service
	merger        *mergeuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	merger *mergeuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		merger:    merger,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		dimensionMismatchHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEncodingFailed, http.StatusBadGateway, CodeEncodingFailed),
		sentinelHandler(domain.ErrRetrieverUnavailable, http.StatusServiceUnavailable, CodeRetrieverUnavailable),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// Register mounts every route on the router.
func (s *Server) Register(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/search", s.Search)
		r.Post("/retrieve", s.Retrieve)
		r.Get("/usage", s.GetUsage)
	})
}

// Search handles POST /api/v1/search: a batch of ad-hoc query texts.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "queries must not be empty")
		return
	}
	if len(req.Queries) > maxSearchQueries {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"at most "+strconv.Itoa(maxSearchQueries)+" queries per request")
		return
	}
	for i, q := range req.Queries {
		if q == "" {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"queries["+strconv.Itoa(i)+"] is empty")
			return
		}
	}

	topK := s.retrieval.TopK()
	if req.TopK != nil {
		if *req.TopK <= 0 || *req.TopK > maxTopK {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"top_k must be between 1 and "+strconv.Itoa(maxTopK))
			return
		}
		topK = *req.TopK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	lists, err := s.retrieval.SearchBatch(ctx, req.Queries, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := make([]SearchQueryResult, len(lists))
	for i, hits := range lists {
		results[i] = SearchQueryResult{Query: req.Queries[i], Hits: hitsToDTO(hits)}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Backend: s.retrieval.Backend(),
		Model:   s.retrieval.ModelName(),
		TopK:    topK,
		Results: results,
	})
}

// Retrieve handles POST /api/v1/retrieve: one multi-hop question with its
// sub-questions, answered with per-query hits and the merged candidate list.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// id is optional on the wire; assign one so the response and logs can
	// still refer to the question
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	item, err := domain.NewQuestionItem(id, req.Question, req.SingleHopQuestions, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	merger := s.merger
	if req.NCap != nil {
		if *req.NCap <= 0 || *req.NCap > maxTopK {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"n_cap must be between 1 and "+strconv.Itoa(maxTopK))
			return
		}
		merger = mergeuc.New(*req.NCap, s.merger.Sentinel())
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	result, err := s.retrieval.Retrieve(ctx, item)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	queries := make([]QueryHitsItem, len(result.QueryHits()))
	for i, qh := range result.QueryHits() {
		queries[i] = QueryHitsItem{
			Query: qh.Query().Text(),
			Type:  string(qh.Query().Provenance().Type()),
			Hits:  hitsToDTO(qh.Hits()),
		}
	}

	candidates := merger.Merge(result)
	items := make([]CandidateItem, len(candidates))
	for i, c := range candidates {
		items[i] = CandidateItem{Rank: c.Rank(), Text: c.Text(), Empty: c.IsEmpty()}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, RetrieveResponse{
		ID:         result.QID(),
		Model:      result.ModelName(),
		Backend:    s.retrieval.Backend(),
		Queries:    queries,
		Candidates: items,
	})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid period parameter")
		return
	}
	switch raw {
	case "", string(domusage.PeriodMonth):
	case string(domusage.PeriodDay):
		period = domusage.PeriodDay
	case string(domusage.PeriodTotal):
		period = domusage.PeriodTotal
	default:
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"period must be one of day, month, total")
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	isExhausted := report.Budget().IsExhausted()
	resp := UsageResponse{
		Period: string(report.Period()),
		Usage: UsageMetrics{
			EmbeddingRequests: report.Metrics().EmbeddingRequests(),
			Tokens:            report.Metrics().Tokens(),
		},
		Budget: BudgetStatus{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     &isExhausted,
		},
	}

	if report.Metrics().HasCost() {
		cost := report.Metrics().CostMillidollars()
		resp.Usage.CostMillidollars = &cost
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func hitsToDTO(hits []domain.Hit) []SearchHit {
	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{
			Rank:  h.Rank(),
			Score: h.Score(),
			DocID: h.DocID(),
		}
		if h.Metadata() != nil && h.Metadata().Len() > 0 {
			out[i].Metadata = h.Metadata()
		}
	}
	return out
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidSchema,
		domain.ErrVectorDimMismatch,
		domain.ErrEncodingFailed,
		domain.ErrRetrieverUnavailable,
		domain.ErrRateLimited,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// dimensionMismatchHandler handles ErrVectorDimMismatch with the offending
// row detail when available.
func dimensionMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		return false
	}
	var dme *domain.DimensionMismatchError
	if errors.As(err, &dme) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    CodeVectorDimMismatch,
			"message": msg,
			"row":     dme.Row,
			"got":     dme.Got,
			"want":    dme.Want,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, CodeVectorDimMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
