package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Encoder vectorizes query batches through a BatchEmbedder and shapes the
// result into a normalized matrix ready for similarity search.
type Encoder struct {
	embed domain.BatchEmbedder
}

// NewEncoder creates a query encoder.
func NewEncoder(embed domain.BatchEmbedder) *Encoder {
	return &Encoder{embed: embed}
}

// Encode embeds texts in one provider call and returns the row-per-query
// matrix, L2-normalized. Any provider failure or shape violation surfaces
// as ErrEncodingFailed; the batch is all-or-nothing.
func (e *Encoder) Encode(ctx context.Context, texts []string) (*domain.Matrix, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty query batch", domain.ErrEncodingFailed)
	}

	res, err := e.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncodingFailed, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d embeddings for %d texts",
			domain.ErrEncodingFailed, len(res.Embeddings), len(texts))
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	m, err := domain.MatrixFromRows(res.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncodingFailed, err)
	}
	m.NormalizeRows()
	return m, nil
}
