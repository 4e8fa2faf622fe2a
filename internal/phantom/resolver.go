// Package phantom attributes a synthetic acquisition cost to disposals
// that exceed tracked holdings. A wallet can legitimately dispose of more
// than the event log shows it acquiring (bundled mint-and-dispose, or a
// transfer the source never captured); treating the excess as free profit
// overstates PnL, capping it silently understates it.
package phantom

import (
	"sort"

	"prediction-pnl-lab/internal/domain"
)

// Resolver applies the configured attribution policy to oversell signals.
// It must run after a full single-wallet replay, because both rules need
// the complete picture of acquisitions and disposals per condition.
type Resolver struct {
	policy domain.EnginePolicy
}

// NewResolver creates a resolver with the given policy.
func NewResolver(policy domain.EnginePolicy) *Resolver {
	return &Resolver{policy: policy}
}

// Outcome summarizes one attribution pass.
type Outcome struct {
	// AttributedByRule counts signals resolved per rule.
	AttributedByRule map[domain.AttributionRule]int

	// AttributedQty is the total excess quantity that received a cost basis.
	AttributedQty float64

	// Diagnostics retains every unattributable oversell with its quantity
	// and price for diagnostic reporting.
	Diagnostics []*domain.OversellDiagnostic
}

// Resolve walks the oversell signals in replay order and mutates the
// affected positions: attributed excess realizes PnL against the nominal
// split price, unattributable excess flags the position low-confidence.
func (r *Resolver) Resolve(positions []*domain.Position, signals []*domain.OversellSignal, events []*domain.LedgerEvent) *Outcome {
	outcome := &Outcome{
		AttributedByRule: make(map[domain.AttributionRule]int),
	}
	if len(signals) == 0 {
		return outcome
	}

	byToken := make(map[string]*domain.Position, len(positions))
	for _, p := range positions {
		byToken[p.TokenID] = p
	}

	mints := indexMints(events)
	surpluses := conditionSurpluses(events)

	ordered := make([]*domain.OversellSignal, len(signals))
	copy(ordered, signals)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	for _, sig := range ordered {
		pos := byToken[sig.TokenID]
		if pos == nil {
			// Tracker emits a signal only after touching the position;
			// a missing one means the caller passed mismatched inputs.
			continue
		}

		rule := r.attribute(sig, mints, surpluses)
		if rule == domain.AttributionNone {
			pos.AddFlag(domain.FlagLowConfidence)
			pos.AddFlag(domain.FlagUnattributedVolume)
			outcome.Diagnostics = append(outcome.Diagnostics, &domain.OversellDiagnostic{
				Wallet:    sig.Wallet,
				TokenID:   sig.TokenID,
				Quantity:  sig.Excess,
				Price:     sig.Price,
				TxGroupID: sig.TxGroupID,
				Timestamp: sig.Timestamp,
				Rule:      domain.AttributionNone,
			})
			outcome.AttributedByRule[domain.AttributionNone]++
			continue
		}

		// Synthetic acquisition at the split price, disposed in full at
		// the signal's disposal price.
		pos.RealizedPnL += sig.Excess * (sig.Price - r.policy.SplitPrice)
		pos.Acquired += sig.Excess
		pos.Disposed += sig.Excess
		outcome.AttributedQty += sig.Excess
		outcome.AttributedByRule[rule]++
	}

	return outcome
}

// attribute picks the first applicable rule in configured priority order.
func (r *Resolver) attribute(sig *domain.OversellSignal, mints map[string]bool, surpluses map[string]map[string]float64) domain.AttributionRule {
	for _, rule := range r.policy.AttributionOrder {
		switch rule {
		case domain.AttributionCorrelatedMint:
			if sig.ConditionID != "" && mints[mintKey(sig.TxGroupID, sig.ConditionID)] {
				return domain.AttributionCorrelatedMint
			}
		case domain.AttributionConditionDeficit:
			if sig.ConditionID != "" && hasSiblingSurplus(surpluses[sig.ConditionID], sig.TokenID) {
				return domain.AttributionConditionDeficit
			}
		}
	}
	return domain.AttributionNone
}

// hasSiblingSurplus reports whether any other outcome of the condition
// retains more acquired than disposed quantity. Surplus on a sibling is
// the residue of a paired-set mint whose other side was sold off.
func hasSiblingSurplus(byToken map[string]float64, tokenID string) bool {
	for token, surplus := range byToken {
		if token != tokenID && surplus > 0 {
			return true
		}
	}
	return false
}

// indexMints records the (transaction, condition) pairs in which the
// wallet minted a paired outcome set.
func indexMints(events []*domain.LedgerEvent) map[string]bool {
	mints := make(map[string]bool)
	for _, ev := range events {
		if ev.Kind == domain.EventKindSplit && ev.Action == domain.ActionAcquire {
			mints[mintKey(ev.TxGroupID, ev.ConditionID)] = true
		}
	}
	return mints
}

// conditionSurpluses nets acquired minus disposed quantity per token,
// grouped by condition. The signal's own token always runs a deficit by
// construction, so attribution looks at its siblings only.
func conditionSurpluses(events []*domain.LedgerEvent) map[string]map[string]float64 {
	surpluses := make(map[string]map[string]float64)
	for _, ev := range events {
		if ev.ConditionID == "" {
			continue
		}
		byToken, ok := surpluses[ev.ConditionID]
		if !ok {
			byToken = make(map[string]float64)
			surpluses[ev.ConditionID] = byToken
		}
		if ev.Action == domain.ActionAcquire {
			byToken[ev.TokenID] += ev.Quantity
		} else {
			byToken[ev.TokenID] -= ev.Quantity
		}
	}
	return surpluses
}

// mintKey correlates a disposal with a paired-set mint.
func mintKey(txGroupID, conditionID string) string {
	return txGroupID + "|" + conditionID
}
