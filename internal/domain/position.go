package domain

// Position is the per-(wallet, token) ledger state produced by replay.
// Created on first acquisition, mutated only by the position tracker,
// never deleted: a zero-amount position persists as closed history.
type Position struct {
	Wallet       string
	TokenID      string
	ConditionID  string
	OutcomeIndex int

	Amount      float64 // current held quantity, >= 0 by invariant
	AvgCost     float64 // weighted-average acquisition price
	RealizedPnL float64 // cumulative, includes phantom and settlement adjustments

	// UnrealizedPnL is set only when an explicit mark price was supplied
	// for an unresolved condition. nil means "not reported".
	UnrealizedPnL *float64

	// Cumulative tracked volume, kept for conservation checks and
	// diagnostic output.
	Acquired float64
	Disposed float64

	Resolved bool
	Flags    []string
}

// Key returns the (wallet, token) identity of the position.
func (p *Position) Key() string {
	return p.Wallet + "|" + p.TokenID
}

// HasFlag reports whether the position carries the given confidence flag.
func (p *Position) HasFlag(flag string) bool {
	for _, f := range p.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends a confidence flag if not already present.
func (p *Position) AddFlag(flag string) {
	if !p.HasFlag(flag) {
		p.Flags = append(p.Flags, flag)
	}
}

// Closed reports whether the position has no residual holdings.
func (p *Position) Closed() bool {
	return p.Amount == 0
}

// PnLDelta records one realized-PnL change with its triggering event.
type PnLDelta struct {
	Wallet    string
	TokenID   string
	Kind      EventKind
	Quantity  float64 // disposed quantity the delta applies to
	Price     float64 // disposal price
	AvgCost   float64 // cost basis at the time of disposal
	Delta     float64 // quantity * (price - avgCost)
	Timestamp int64
	Seq       int64
}

// OversellSignal is emitted when a disposal exceeds tracked holdings.
// The excess is never credited with PnL by the tracker; it is resolved
// by the phantom inventory resolver after the full wallet replay.
type OversellSignal struct {
	Wallet       string
	TokenID      string
	ConditionID  string
	OutcomeIndex int
	Excess       float64 // untracked disposed quantity, > 0
	Price        float64 // disposal price
	TxGroupID    string
	Timestamp    int64
	Seq          int64
}

// AttributionRule identifies how a phantom-inventory excess was costed.
type AttributionRule string

// Attribution rule constants, in default priority order.
const (
	AttributionCorrelatedMint   AttributionRule = "CORRELATED_MINT"
	AttributionConditionDeficit AttributionRule = "CONDITION_DEFICIT"
	AttributionNone             AttributionRule = "UNATTRIBUTED"
)

// OversellDiagnostic retains quantity and price of an unattributable
// oversell for diagnostic reporting.
type OversellDiagnostic struct {
	Wallet    string
	TokenID   string
	Quantity  float64
	Price     float64
	TxGroupID string
	Timestamp int64
	Rule      AttributionRule
}
