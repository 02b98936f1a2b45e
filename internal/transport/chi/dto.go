package chi

import "time"

// ErrorCode is the machine-readable error discriminator in error responses.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeNotFound               ErrorCode = "not_found"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeEncodingFailed         ErrorCode = "encoding_failed"
	CodeRetrieverUnavailable   ErrorCode = "retriever_unavailable"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingQuotaExceeded ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the error body shared by every endpoint.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /api/v1/search: a batch of ad-hoc query
// texts answered in one encode + search pass.
type SearchRequest struct {
	Queries []string `json:"queries"`
	TopK    *int     `json:"top_k,omitempty"`
}

// SearchHit is one ranked corpus document.
type SearchHit struct {
	Rank     int     `json:"rank"`
	Score    float32 `json:"score"`
	DocID    string  `json:"doc_id"`
	Metadata any     `json:"metadata,omitempty"`
}

// SearchQueryResult is the ranked hit list of one query in a search response.
type SearchQueryResult struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

// SearchResponse is the body of a successful POST /api/v1/search, one entry per
// request query in input order.
type SearchResponse struct {
	Backend string              `json:"backend"`
	Model   string              `json:"model"`
	TopK    int                 `json:"top_k"`
	Results []SearchQueryResult `json:"results"`
}

// RetrieveRequest is the body of POST /api/v1/retrieve: one multi-hop question
// with its decomposed sub-questions.
type RetrieveRequest struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	SingleHopQuestions []string `json:"single_hop_questions,omitempty"`
	NCap               *int     `json:"n_cap,omitempty"`
}

// QueryHitsItem is the per-query hit list inside a retrieve response.
type QueryHitsItem struct {
	Query string      `json:"query"`
	Type  string      `json:"type"`
	Hits  []SearchHit `json:"hits"`
}

// CandidateItem is one slot of the merged candidate list.
type CandidateItem struct {
	Rank  int    `json:"rank"`
	Text  string `json:"text"`
	Empty bool   `json:"empty,omitempty"`
}

// RetrieveResponse is the body of a successful POST /api/v1/retrieve.
type RetrieveResponse struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	Backend    string          `json:"backend"`
	Queries    []QueryHitsItem `json:"queries"`
	Candidates []CandidateItem `json:"candidates"`
}

// UsageMetrics mirrors the aggregated embedding counters.
type UsageMetrics struct {
	EmbeddingRequests int  `json:"embedding_requests"`
	Tokens            int  `json:"tokens"`
	CostMillidollars  *int `json:"cost_millidollars,omitempty"`
}

// BudgetStatus mirrors the token budget state.
type BudgetStatus struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     *bool      `json:"is_exhausted,omitempty"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /api/v1/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
