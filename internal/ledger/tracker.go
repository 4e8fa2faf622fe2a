// Package ledger replays one wallet's normalized event sequence in
// chronological order and maintains per-token holdings with a
// weighted-average cost basis, realizing PnL on each disposal.
package ledger

import (
	"fmt"

	"prediction-pnl-lab/internal/domain"
)

// Tracker is the per-wallet position state machine. It is exclusively
// owned by a single replay; nothing else mutates its positions.
type Tracker struct {
	wallet    string
	positions map[string]*domain.Position
	deltas    []*domain.PnLDelta
	oversells []*domain.OversellSignal

	lastTimestamp int64
	lastSeq       int64
	started       bool
}

// NewTracker creates an empty tracker for one wallet.
func NewTracker(wallet string) *Tracker {
	return &Tracker{
		wallet:    wallet,
		positions: make(map[string]*domain.Position),
	}
}

// Apply replays a single event. Events must arrive in non-decreasing
// (timestamp, seq) order; a violation is fatal for the wallet.
func (t *Tracker) Apply(ev *domain.LedgerEvent) error {
	if ev.Wallet != t.wallet {
		return fmt.Errorf("%w: got %s, replaying %s", ErrWalletMismatch, ev.Wallet, t.wallet)
	}
	if t.started {
		if ev.Timestamp < t.lastTimestamp ||
			(ev.Timestamp == t.lastTimestamp && ev.Seq < t.lastSeq) {
			return fmt.Errorf("%w: event seq %d at %d after seq %d at %d",
				ErrOrderingViolation, ev.Seq, ev.Timestamp, t.lastSeq, t.lastTimestamp)
		}
	}
	t.started = true
	t.lastTimestamp = ev.Timestamp
	t.lastSeq = ev.Seq

	pos := t.position(ev)
	for _, f := range ev.Flags {
		switch f {
		case domain.FlagAmbiguousDedup:
			pos.AddFlag(f)
		case domain.FlagMultiOutcome:
			// Binary split pricing does not cover these conditions; the
			// position is tracked but never trusted.
			pos.AddFlag(f)
			pos.AddFlag(domain.FlagLowConfidence)
		}
	}

	switch ev.Action {
	case domain.ActionAcquire:
		t.acquire(pos, ev)
	case domain.ActionDispose:
		t.dispose(pos, ev)
	default:
		return fmt.Errorf("unknown ledger action %q", ev.Action)
	}
	return nil
}

// acquire folds a buy or split-credit into the weighted-average cost basis.
func (t *Tracker) acquire(pos *domain.Position, ev *domain.LedgerEvent) {
	price := ev.Price
	total := pos.Amount + ev.Quantity
	pos.AvgCost = (pos.AvgCost*pos.Amount + price*ev.Quantity) / total
	pos.Amount = total
	pos.Acquired += ev.Quantity
}

// dispose realizes PnL on a sell, merge-debit or redemption. Tracked
// disposals never exceed tracked holdings; the untracked remainder is
// forwarded as an oversell signal, never credited with PnL here.
func (t *Tracker) dispose(pos *domain.Position, ev *domain.LedgerEvent) {
	price := ev.Price
	if ev.Kind == domain.EventKindTransfer {
		// A transfer out moves tokens at cost: no realized PnL effect.
		price = pos.AvgCost
	}

	adjusted := ev.Quantity
	if adjusted > pos.Amount {
		adjusted = pos.Amount
	}

	if adjusted > 0 {
		delta := adjusted * (price - pos.AvgCost)
		pos.RealizedPnL += delta
		pos.Amount -= adjusted
		t.deltas = append(t.deltas, &domain.PnLDelta{
			Wallet:    ev.Wallet,
			TokenID:   ev.TokenID,
			Kind:      ev.Kind,
			Quantity:  adjusted,
			Price:     price,
			AvgCost:   pos.AvgCost,
			Delta:     delta,
			Timestamp: ev.Timestamp,
			Seq:       ev.Seq,
		})
	}
	pos.Disposed += adjusted

	if excess := ev.Quantity - adjusted; excess > 0 {
		t.oversells = append(t.oversells, &domain.OversellSignal{
			Wallet:       ev.Wallet,
			TokenID:      ev.TokenID,
			ConditionID:  ev.ConditionID,
			OutcomeIndex: ev.OutcomeIndex,
			Excess:       excess,
			Price:        ev.Price,
			TxGroupID:    ev.TxGroupID,
			Timestamp:    ev.Timestamp,
			Seq:          ev.Seq,
		})
	}
}

// position returns the (wallet, token) position, creating it on first touch.
func (t *Tracker) position(ev *domain.LedgerEvent) *domain.Position {
	pos, ok := t.positions[ev.TokenID]
	if !ok {
		pos = &domain.Position{
			Wallet:       ev.Wallet,
			TokenID:      ev.TokenID,
			ConditionID:  ev.ConditionID,
			OutcomeIndex: ev.OutcomeIndex,
		}
		t.positions[ev.TokenID] = pos
	}
	return pos
}

// Position returns the current state for a token, or nil if never touched.
func (t *Tracker) Position(tokenID string) *domain.Position {
	return t.positions[tokenID]
}
