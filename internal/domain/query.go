package domain

// QueryType tags where a retrieval query came from.
type QueryType string

// Query provenance constants.
const (
	// QueryOriginal marks the undecomposed multi-hop question itself.
	QueryOriginal QueryType = "original"
	// QuerySingleHop marks one decomposed sub-question.
	QuerySingleHop QueryType = "single_hop"
)

// IsValid checks if the query type is one of the supported values.
func (t QueryType) IsValid() bool {
	return t == QueryOriginal || t == QuerySingleHop
}

// Provenance identifies the source of one query within a question.
type Provenance struct {
	queryType QueryType
	index     int
}

// OriginalProvenance tags the original question.
func OriginalProvenance() Provenance {
	return Provenance{queryType: QueryOriginal}
}

// SingleHopProvenance tags the i-th single-hop sub-question, 0-based.
func SingleHopProvenance(index int) Provenance {
	return Provenance{queryType: QuerySingleHop, index: index}
}

// Type returns the provenance kind.
func (p Provenance) Type() QueryType { return p.queryType }

// Index returns the sub-question position. Meaningful only for single-hop.
func (p Provenance) Index() int { return p.index }

// Query is one text to encode and search, tagged with its provenance.
type Query struct {
	text       string
	provenance Provenance
}

// NewQuery creates a query.
func NewQuery(text string, provenance Provenance) Query {
	return Query{text: text, provenance: provenance}
}

// Text returns the query text.
func (q Query) Text() string { return q.text }

// Provenance returns the query provenance.
func (q Query) Provenance() Provenance { return q.provenance }

// QueriesForQuestion builds the search batch for a question: the original
// question first, then every single-hop sub-question in decomposition order.
func QueriesForQuestion(item QuestionItem) []Query {
	hops := item.SingleHopQuestions()
	queries := make([]Query, 0, 1+len(hops))
	queries = append(queries, NewQuery(item.OriginalQuestion(), OriginalProvenance()))
	for i, hop := range hops {
		queries = append(queries, NewQuery(hop, SingleHopProvenance(i)))
	}
	return queries
}
