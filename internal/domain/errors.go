package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchema signals an invalid or unsatisfied schema declaration.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrVectorDimMismatch signals inconsistent embedding dimensions.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEncodingFailed signals a query encoding failure.
	ErrEncodingFailed = errors.New("query encoding failed")
	// ErrRetrieverUnavailable signals that a retriever backend cannot be built.
	ErrRetrieverUnavailable = errors.New("retriever backend unavailable")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// DimensionMismatchError wraps ErrVectorDimMismatch with the offending data row.
// Row is 1-based and counts data rows only, the header line is excluded.
type DimensionMismatchError struct {
	Row  int
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: row %d has dimension %d, expected %d",
		ErrVectorDimMismatch.Error(), e.Row, e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionMismatch creates a dimension mismatch error for one data row.
func NewDimensionMismatch(row, got, want int) error {
	return &DimensionMismatchError{Row: row, Got: got, Want: want}
}
