package domain

// Hit is a single retrieved document for one query.
type Hit struct {
	rank     int
	score    float32
	docID    string
	metadata *Record
}

// NewHit creates a hit. Rank is 1-based within its query's result list.
func NewHit(rank int, score float32, docID string, metadata *Record) Hit {
	if metadata == nil {
		metadata = NewRecord()
	}
	return Hit{rank: rank, score: score, docID: docID, metadata: metadata}
}

// Rank returns the 1-based rank within the query's result list.
func (h Hit) Rank() int { return h.rank }

// Score returns the cosine similarity.
func (h Hit) Score() float32 { return h.score }

// DocID returns the document identifier.
func (h Hit) DocID() string { return h.docID }

// Metadata returns the document metadata record.
func (h Hit) Metadata() *Record { return h.metadata }

// QueryHits pairs one query with its ranked hits.
type QueryHits struct {
	query Query
	hits  []Hit
}

// NewQueryHits creates a query-hits pair.
func NewQueryHits(query Query, hits []Hit) QueryHits {
	return QueryHits{query: query, hits: hits}
}

// Query returns the query.
func (q QueryHits) Query() Query { return q.query }

// Hits returns the ranked hits.
func (q QueryHits) Hits() []Hit { return q.hits }

// RetrievalResult is everything retrieved for one question: one hit list
// per query, in query batch order.
type RetrievalResult struct {
	qid       string
	modelName string
	queryHits []QueryHits
	meta      *Record
}

// NewRetrievalResult creates a retrieval result.
func NewRetrievalResult(qid, modelName string, queryHits []QueryHits, meta *Record) RetrievalResult {
	if meta == nil {
		meta = NewRecord()
	}
	return RetrievalResult{qid: qid, modelName: modelName, queryHits: queryHits, meta: meta}
}

// QID returns the question identifier.
func (r *RetrievalResult) QID() string { return r.qid }

// ModelName returns the embedding model that produced the query vectors.
func (r *RetrievalResult) ModelName() string { return r.modelName }

// QueryHits returns the per-query hit lists.
func (r *RetrievalResult) QueryHits() []QueryHits { return r.queryHits }

// Meta returns the question metadata carried through from the input.
func (r *RetrievalResult) Meta() *Record { return r.meta }

// MergedCandidate is one slot of the fixed-width candidate list handed to
// the answer generator. Empty slots carry the configured sentinel text.
type MergedCandidate struct {
	rank  int
	text  string
	empty bool
}

// NewMergedCandidate creates a filled candidate slot.
func NewMergedCandidate(rank int, text string) MergedCandidate {
	return MergedCandidate{rank: rank, text: text}
}

// NewEmptyCandidate creates a padding slot carrying the sentinel text.
func NewEmptyCandidate(rank int, sentinel string) MergedCandidate {
	return MergedCandidate{rank: rank, text: sentinel, empty: true}
}

// Rank returns the 1-based slot position.
func (c MergedCandidate) Rank() int { return c.rank }

// Text returns the rendered document text, or the sentinel for padding.
func (c MergedCandidate) Text() string { return c.text }

// IsEmpty reports whether the slot is sentinel padding.
func (c MergedCandidate) IsEmpty() bool { return c.empty }
