package domain

// EventKind classifies a raw exchange or chain event.
type EventKind string

// Event kind constants.
const (
	EventKindTrade      EventKind = "trade"
	EventKindSplit      EventKind = "split"
	EventKindMerge      EventKind = "merge"
	EventKindRedemption EventKind = "redemption"
	EventKindTransfer   EventKind = "transfer"
)

// Role is the counterparty role of the wallet in an order-book fill.
type Role string

// Role constants. RoleNone is used for non-fill events.
const (
	RoleMaker Role = "maker"
	RoleTaker Role = "taker"
	RoleNone  Role = ""
)

// RawEvent is one record from the upstream event source, before
// normalization. Records are imperfect: duplicated, partially ordered,
// and occasionally self-matched.
type RawEvent struct {
	Seq            int64     // ingestion order, tie-breaker for identical timestamps
	Wallet         string    // wallet address
	TokenID        string    // outcome token identifier
	Kind           EventKind // trade | split | merge | redemption | transfer
	TokenQty       float64   // signed token quantity (> 0 acquires)
	CurrencyAmount float64   // signed currency amount (< 0 pays out of the wallet)
	Timestamp      int64     // Unix timestamp in milliseconds
	ExternalID     string    // upstream event identifier
	TxGroupID      string    // originating transaction hash
	Role           Role      // maker | taker for fills, empty otherwise
}

// Side returns the economic direction of the raw event.
func (e *RawEvent) Side() LedgerAction {
	if e.TokenQty >= 0 {
		return ActionAcquire
	}
	return ActionDispose
}

// AbsQty returns the unsigned token quantity.
func (e *RawEvent) AbsQty() float64 {
	if e.TokenQty < 0 {
		return -e.TokenQty
	}
	return e.TokenQty
}

// LedgerAction is the effect of a normalized event on a position.
type LedgerAction string

// Ledger action constants.
const (
	ActionAcquire LedgerAction = "acquire"
	ActionDispose LedgerAction = "dispose"
)

// LedgerEvent is a canonical, deduplicated, typed event ready for
// chronological replay. Split and merge records are expanded into one
// LedgerEvent per outcome token before replay.
type LedgerEvent struct {
	Seq          int64 // ingestion order of the originating raw record
	Wallet       string
	TokenID      string
	ConditionID  string
	OutcomeIndex int
	Kind         EventKind
	Action       LedgerAction
	Quantity     float64 // unsigned, > 0
	Price        float64 // unit price in denominating currency
	Timestamp    int64   // Unix milliseconds
	ExternalID   string
	TxGroupID    string
	Flags        []string
}

// HasFlag reports whether the event carries the given confidence flag.
func (e *LedgerEvent) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends a confidence flag if not already present.
func (e *LedgerEvent) AddFlag(flag string) {
	if !e.HasFlag(flag) {
		e.Flags = append(e.Flags, flag)
	}
}

// Confidence flag constants shared by events, positions and aggregates.
const (
	FlagAmbiguousDedup      = "ambiguous_dedup"
	FlagUnmappedToken       = "unmapped_token"
	FlagLowConfidence       = "low_confidence"
	FlagUnattributedVolume  = "unattributed_oversell"
	FlagMultiOutcome        = "multi_outcome_condition"
	FlagMissingPrice        = "missing_price"
	FlagTransferCostUnknown = "transfer_cost_unknown"
)
