package budget

// Budget is a snapshot of the embedding token budget for one period.
// A zero limit means no cap is configured.
type Budget struct {
	tokensLimit     int
	tokensRemaining int
	resetsAt        int64 // unix millis, rendered as ISO 8601 at the transport layer
}

// New creates a Budget snapshot. Exhaustion is derived: a capped budget
// with nothing remaining is exhausted, an uncapped one never is.
func New(limit, remaining int, resetsAt int64) Budget {
	return Budget{
		tokensLimit:     limit,
		tokensRemaining: remaining,
		resetsAt:        resetsAt,
	}
}

// TokensLimit returns the token cap, 0 when uncapped.
func (b Budget) TokensLimit() int { return b.tokensLimit }

// TokensRemaining returns tokens left in the period.
func (b Budget) TokensRemaining() int { return b.tokensRemaining }

// Unlimited reports whether no cap is configured.
func (b Budget) Unlimited() bool { return b.tokensLimit == 0 }

// IsExhausted reports whether a capped budget is spent.
func (b Budget) IsExhausted() bool { return b.tokensLimit > 0 && b.tokensRemaining <= 0 }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
