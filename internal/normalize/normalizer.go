// Package normalize canonicalizes raw trade, split, merge, redemption and
// transfer records into a deduplicated, time-ordered stream of typed
// ledger events for one wallet.
package normalize

import (
	"sort"

	"prediction-pnl-lab/internal/domain"
)

// ExclusionReasonZeroQuantity marks records carrying no token quantity.
const ExclusionReasonZeroQuantity = "zero_quantity"

// Normalizer converts raw events into ledger events using a pre-fetched
// token map and resolution snapshot. It performs no I/O: the bounded
// working set is supplied up front so normalization stays a pure function
// of its inputs.
type Normalizer struct {
	policy      domain.EnginePolicy
	mappings    map[string]*domain.TokenMapping
	byCondition map[string][]*domain.TokenMapping
	resolutions map[string]*domain.Resolution
}

// NewNormalizer creates a normalizer over a mapping and resolution snapshot.
func NewNormalizer(mappings []*domain.TokenMapping, resolutions []*domain.Resolution, policy domain.EnginePolicy) *Normalizer {
	n := &Normalizer{
		policy:      policy,
		mappings:    make(map[string]*domain.TokenMapping, len(mappings)),
		byCondition: make(map[string][]*domain.TokenMapping),
		resolutions: make(map[string]*domain.Resolution, len(resolutions)),
	}
	for _, m := range mappings {
		n.mappings[m.TokenID] = m
		n.byCondition[m.ConditionID] = append(n.byCondition[m.ConditionID], m)
	}
	for _, cond := range n.byCondition {
		sortMappingsByOutcome(cond)
	}
	for _, r := range resolutions {
		n.resolutions[r.ConditionID] = r
	}
	return n
}

// Result is the outcome of normalizing one wallet's raw events.
type Result struct {
	// Events is the deduplicated, time-ordered ledger event sequence.
	Events []*domain.LedgerEvent

	// Excluded holds raw events that cannot enter position tracking,
	// keyed back to a reason. Never silently dropped.
	Excluded        []*domain.RawEvent
	ExclusionReason map[int64]string

	// UnmappedTokens is the set of distinct token ids excluded for a
	// missing token -> condition mapping.
	UnmappedTokens map[string]bool

	DuplicatesRemoved  int
	SelfFillsCollapsed int
	AmbiguousDedups    int
}

// Normalize canonicalizes one wallet's raw event collection.
func (n *Normalizer) Normalize(raw []*domain.RawEvent) *Result {
	result := &Result{
		ExclusionReason: make(map[int64]string),
		UnmappedTokens:  make(map[string]bool),
	}

	events := make([]*domain.RawEvent, len(raw))
	copy(events, raw)
	SortRawEvents(events)

	dedup := Deduplicate(events)
	result.DuplicatesRemoved = dedup.Removed
	result.AmbiguousDedups = len(dedup.Ambiguous)

	kept, collapsed := CollapseSelfFills(dedup.Kept)
	result.SelfFillsCollapsed = collapsed

	for _, e := range kept {
		legs, reason := n.convert(e)
		if reason != "" {
			result.Excluded = append(result.Excluded, e)
			result.ExclusionReason[e.Seq] = reason
			if reason == domain.FlagUnmappedToken {
				result.UnmappedTokens[e.TokenID] = true
			}
			continue
		}
		if dedup.Ambiguous[e.Seq] {
			for _, leg := range legs {
				leg.AddFlag(domain.FlagAmbiguousDedup)
			}
		}
		result.Events = append(result.Events, legs...)
	}

	SortLedgerEvents(result.Events)
	return result
}

// convert expands one surviving raw event into ledger event legs.
// A non-empty reason means the event is excluded from tracking.
func (n *Normalizer) convert(e *domain.RawEvent) ([]*domain.LedgerEvent, string) {
	qty := e.AbsQty()
	if qty == 0 {
		return nil, ExclusionReasonZeroQuantity
	}

	mapping, mapped := n.mappings[e.TokenID]
	if !mapped {
		return nil, domain.FlagUnmappedToken
	}

	switch e.Kind {
	case domain.EventKindSplit, domain.EventKindMerge:
		return n.convertPairedSet(e, mapping, qty)
	case domain.EventKindRedemption:
		return n.convertRedemption(e, mapping, qty)
	default:
		return n.convertSingle(e, mapping, qty), ""
	}
}

// convertSingle builds the one-leg form used by trades and transfers.
func (n *Normalizer) convertSingle(e *domain.RawEvent, mapping *domain.TokenMapping, qty float64) []*domain.LedgerEvent {
	leg := n.newLeg(e, mapping, qty)
	leg.Action = e.Side()

	currency := e.CurrencyAmount
	if currency < 0 {
		currency = -currency
	}
	if currency > 0 {
		leg.Price = currency / qty
	} else if e.Kind == domain.EventKindTransfer {
		// Transfers move tokens without consideration; the tracker keeps
		// transfer disposals cost-neutral, acquisitions enter at zero basis.
		leg.AddFlag(domain.FlagTransferCostUnknown)
	} else {
		leg.AddFlag(domain.FlagMissingPrice)
	}
	if !mapping.IsBinary() {
		leg.AddFlag(domain.FlagMultiOutcome)
	}
	return []*domain.LedgerEvent{leg}
}

// convertPairedSet expands a split or merge into symmetric legs across
// every outcome token of the condition at the nominal split price. The
// combined pair is worth exactly one unit of the denominating currency.
func (n *Normalizer) convertPairedSet(e *domain.RawEvent, mapping *domain.TokenMapping, qty float64) ([]*domain.LedgerEvent, string) {
	if !mapping.IsBinary() {
		// N-outcome conversion pricing is out of scope; excluded and flagged.
		return nil, domain.FlagMultiOutcome
	}

	action := domain.ActionAcquire
	if e.Kind == domain.EventKindMerge {
		action = domain.ActionDispose
	}

	outcomes := n.byCondition[mapping.ConditionID]
	legs := make([]*domain.LedgerEvent, 0, len(outcomes))
	for _, out := range outcomes {
		leg := n.newLeg(e, out, qty)
		leg.Action = action
		leg.Price = n.policy.SplitPrice
		legs = append(legs, leg)
	}
	return legs, ""
}

// convertRedemption builds the disposal leg of a post-resolution redemption.
func (n *Normalizer) convertRedemption(e *domain.RawEvent, mapping *domain.TokenMapping, qty float64) ([]*domain.LedgerEvent, string) {
	leg := n.newLeg(e, mapping, qty)
	leg.Action = domain.ActionDispose

	currency := e.CurrencyAmount
	if currency < 0 {
		currency = -currency
	}
	switch {
	case currency > 0:
		leg.Price = currency / qty
	default:
		res, resolved := n.resolutions[mapping.ConditionID]
		if !resolved {
			// A redemption against an unresolved condition has no price
			// source at all; a data gap, not an error.
			return nil, domain.FlagMissingPrice
		}
		payout, ok := res.PayoutFor(mapping.OutcomeIndex)
		if !ok {
			return nil, domain.FlagMissingPrice
		}
		leg.Price = payout
	}
	if !mapping.IsBinary() {
		leg.AddFlag(domain.FlagMultiOutcome)
	}
	return []*domain.LedgerEvent{leg}, ""
}

// newLeg copies the shared raw-event attributes into a ledger event.
func (n *Normalizer) newLeg(e *domain.RawEvent, mapping *domain.TokenMapping, qty float64) *domain.LedgerEvent {
	return &domain.LedgerEvent{
		Seq:          e.Seq,
		Wallet:       e.Wallet,
		TokenID:      mapping.TokenID,
		ConditionID:  mapping.ConditionID,
		OutcomeIndex: mapping.OutcomeIndex,
		Kind:         e.Kind,
		Quantity:     qty,
		Timestamp:    e.Timestamp,
		ExternalID:   e.ExternalID,
		TxGroupID:    e.TxGroupID,
	}
}

// sortMappingsByOutcome orders a condition's outcome tokens by index.
func sortMappingsByOutcome(mappings []*domain.TokenMapping) {
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].OutcomeIndex < mappings[j].OutcomeIndex
	})
}
