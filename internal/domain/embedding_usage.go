package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for one unit of work: an HTTP request
// or a whole batch run. The caller puts a mutable pointer into the context
// before invoking the pipeline; embedding decorators write into it; the
// caller reads it back for response headers or the run summary. Never
// ambient global state.
type EmbeddingUsage struct {
	TotalTokens int
	Calls       int
	Used        bool // true if embedding was invoked, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens for one embedding call.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Calls++
		u.Used = true
	}
}
