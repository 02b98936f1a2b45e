package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/metrics"
)

// maxProviderBatch caps how many texts go to the provider in one request;
// remote embedding APIs reject input arrays well above this.
const maxProviderBatch = 256

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// MeteredEmbedder wraps an Embedder with token budget accounting. The
// retrieval pipeline embeds a question and its sub-questions as one batch,
// so the batch path is primary and Embed funnels through it. Transport
// metrics (request counts, latency, token counters) belong to the transport
// embedders; this layer owns the budget only.
type MeteredEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewMeteredEmbedder wraps an embedder with budget accounting. A nil budget
// disables all gating.
func NewMeteredEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *MeteredEmbedder {
	return &MeteredEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Embed runs a single text through the batch path.
func (m *MeteredEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	batch, err := m.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if len(batch.Embeddings) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: provider returned no vector", domain.ErrEmbeddingProviderError)
	}
	return domain.EmbeddingResult{
		Embedding:    batch.Embeddings[0],
		PromptTokens: batch.PromptTokens,
		TotalTokens:  batch.TotalTokens,
	}, nil
}

// BatchEmbed splits texts into provider-sized chunks. The budget is gated
// before every chunk and settled right after it, so a long batch cannot
// overrun a nearly spent budget by more than one chunk.
func (m *MeteredEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	var out domain.BatchEmbeddingResult
	for off := 0; off < len(texts); off += maxProviderBatch {
		chunk := texts[off:min(off+maxProviderBatch, len(texts))]

		if err := m.gate(ctx, off, len(chunk)); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		res, err := m.dispatch(ctx, chunk)
		if err != nil {
			m.logger.Error("embedding chunk failed",
				zap.String("provider", m.provider),
				zap.String("model", m.model),
				zap.Int("offset", off),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, err
		}
		m.settle(res.TotalTokens)

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	m.logger.Debug("embedding batch done",
		zap.String("provider", m.provider),
		zap.String("model", m.model),
		zap.Int("texts", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// gate refuses the next chunk once the tracker reports the budget spent.
func (m *MeteredEmbedder) gate(ctx context.Context, offset, size int) error {
	if m.budget == nil {
		return nil
	}
	if err := m.budget.Check(ctx); err != nil {
		m.logger.Warn("embedding budget refused chunk",
			zap.String("provider", m.provider),
			zap.String("model", m.model),
			zap.Int("offset", offset),
			zap.Int("chunk_size", size),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

// dispatch sends one chunk to the inner embedder, falling back to per-text
// calls when the provider has no batch endpoint.
func (m *MeteredEmbedder) dispatch(ctx context.Context, chunk []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := m.inner.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, chunk)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, m.inner, chunk)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch fallback: %w", err)
	}
	return res, nil
}

// settle books consumed tokens and refreshes the remaining-budget gauges.
func (m *MeteredEmbedder) settle(tokens int) {
	if m.budget == nil || tokens <= 0 {
		return
	}
	m.budget.Record(int64(tokens))
	remaining := metrics.EmbeddingBudgetTokensRemaining
	remaining.WithLabelValues(m.provider, "daily").Set(float64(m.budget.RemainingDaily()))
	remaining.WithLabelValues(m.provider, "monthly").Set(float64(m.budget.RemainingMonthly()))
}
