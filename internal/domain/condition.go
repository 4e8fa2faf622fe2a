package domain

// TokenMapping maps an outcome token to its condition and outcome slot.
// Lookups may miss: an unmapped token excludes its events from position
// tracking and is surfaced through confidence flags instead.
type TokenMapping struct {
	TokenID      string
	ConditionID  string
	OutcomeIndex int   // 0-based outcome slot within the condition
	OutcomeCount int   // number of outcomes of the condition (2 for binary)
	CreatedAt    int64 // record creation timestamp (ms)
}

// IsBinary reports whether the mapped condition has exactly two outcomes.
func (m *TokenMapping) IsBinary() bool {
	return m.OutcomeCount == 2
}

// Resolution is the final payout vector of a condition. Absent entries in
// the resolution source mean the condition is still open, which is the
// expected steady state for active markets.
type Resolution struct {
	ConditionID string
	Payouts     []float64 // payout fraction in [0,1] per outcome index
	ResolvedAt  int64     // Unix milliseconds
}

// PayoutFor returns the payout fraction for an outcome index.
// The second return is false when the index is outside the vector.
func (r *Resolution) PayoutFor(outcomeIndex int) (float64, bool) {
	if outcomeIndex < 0 || outcomeIndex >= len(r.Payouts) {
		return 0, false
	}
	return r.Payouts[outcomeIndex], true
}

// MarkPrice is an explicitly supplied current price for an outcome token,
// used only for unrealized PnL of unresolved conditions.
type MarkPrice struct {
	TokenID string
	Price   float64
	AsOf    int64 // Unix milliseconds
}
