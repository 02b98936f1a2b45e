package metrics

// Metrics is a snapshot of embedding API consumption over a period.
type Metrics struct {
	embeddingRequests int
	tokens            int
	costMillidollars  int
}

// New creates a Metrics snapshot.
func New(requests, tokens, costMillidollars int) Metrics {
	return Metrics{embeddingRequests: requests, tokens: tokens, costMillidollars: costMillidollars}
}

// EmbeddingRequests returns the number of embedding API calls made.
func (m Metrics) EmbeddingRequests() int { return m.embeddingRequests }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }

// CostMillidollars returns cost in thousandths of a dollar.
func (m Metrics) CostMillidollars() int { return m.costMillidollars }

// HasCost reports whether cost accounting produced a non-zero figure.
func (m Metrics) HasCost() bool { return m.costMillidollars > 0 }
