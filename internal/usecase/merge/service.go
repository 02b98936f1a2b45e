// Package merge collapses the per-query hit lists of one question into the
// fixed-width candidate list handed to the answer generator.
package merge

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Defaults for the candidate list shape.
const (
	// DefaultCap is the fixed candidate list length.
	DefaultCap = 50
	// DefaultSentinel fills slots when fewer unique documents exist.
	// The downstream generator treats it as "no document".
	DefaultSentinel = "없음"
)

// Service merges, dedupes and caps retrieval results.
type Service struct {
	nCap     int
	sentinel string
}

// New creates a merger. nCap <= 0 and an empty sentinel fall back to the
// defaults.
func New(nCap int, sentinel string) *Service {
	if nCap <= 0 {
		nCap = DefaultCap
	}
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &Service{nCap: nCap, sentinel: sentinel}
}

// Cap returns the fixed output length.
func (s *Service) Cap() int { return s.nCap }

// Sentinel returns the padding text.
func (s *Service) Sentinel() string { return s.sentinel }

// Merge flattens every hit of every query, orders them by per-query rank
// (rank 1 of every sub-query before any rank 2), dedupes on the rendered
// text first-seen-wins and pads to exactly the configured length. The
// input result is never mutated.
func (s *Service) Merge(result domain.RetrievalResult) []domain.MergedCandidate {
	var flat []domain.Hit
	for _, qh := range result.QueryHits() {
		flat = append(flat, qh.Hits()...)
	}

	// Stable: равные ранги сохраняют порядок запросов в батче.
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].Rank() < flat[j].Rank()
	})

	candidates := make([]domain.MergedCandidate, 0, s.nCap)
	seen := make(map[string]struct{}, len(flat))
	for _, h := range flat {
		if len(candidates) == s.nCap {
			break
		}
		text := RenderHit(h)
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		candidates = append(candidates, domain.NewMergedCandidate(len(candidates)+1, text))
	}

	for len(candidates) < s.nCap {
		candidates = append(candidates, domain.NewEmptyCandidate(len(candidates)+1, s.sentinel))
	}
	return candidates
}

// RenderHit builds the canonical text form of a retrieved document. Two
// hits rendering identically are the same document as far as dedup and the
// downstream generator are concerned.
func RenderHit(h domain.Hit) string {
	return fmt.Sprintf("Title: %s\nAbstract: %s\nSource: %s",
		metaString(h.Metadata(), "title"),
		metaString(h.Metadata(), "abstract"),
		metaString(h.Metadata(), "source"),
	)
}

// metaString reads one metadata value as text. Missing and null cells
// render empty rather than "<nil>".
func metaString(r *domain.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
