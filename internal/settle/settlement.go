// Package settle converts residual holdings of resolved conditions into
// realized PnL using the final payout vector, and reports unrealized PnL
// for open positions only against an explicitly supplied mark price.
package settle

import (
	"prediction-pnl-lab/internal/domain"
)

// Outcome summarizes one settlement pass over a wallet's positions.
type Outcome struct {
	Settled    int // positions closed at resolution
	Unresolved int // open positions left untouched
	Marked     int // open positions with an unrealized PnL mark
}

// Settle applies resolutions and mark prices to final position states.
//
// Resolved condition: settlementPnL = amount * (payout - avgCost) is added
// to realized PnL and the position closes at resolution. Missing
// resolution data is the expected steady state for active markets and
// never blocks other positions. Unrealized PnL is reported only when a
// mark price was explicitly supplied; it is never defaulted to a
// resolution value.
func Settle(positions []*domain.Position, resolutions map[string]*domain.Resolution, marks map[string]*domain.MarkPrice) *Outcome {
	outcome := &Outcome{}

	for _, pos := range positions {
		res := resolutions[pos.ConditionID]
		if res != nil {
			payout, ok := res.PayoutFor(pos.OutcomeIndex)
			if ok {
				if pos.Amount > 0 {
					pos.RealizedPnL += pos.Amount * (payout - pos.AvgCost)
					pos.Disposed += pos.Amount
					pos.Amount = 0
				}
				pos.Resolved = true
				// Closed at resolution: unrealized contribution is exactly zero.
				zero := 0.0
				pos.UnrealizedPnL = &zero
				outcome.Settled++
				continue
			}
			// Payout vector does not cover this outcome slot; treat as a
			// data gap rather than guessing a payout.
			pos.AddFlag(domain.FlagLowConfidence)
		}

		outcome.Unresolved++
		if pos.Amount > 0 {
			if mark, ok := marks[pos.TokenID]; ok {
				unrealized := pos.Amount * (mark.Price - pos.AvgCost)
				pos.UnrealizedPnL = &unrealized
				outcome.Marked++
			}
		}
	}

	return outcome
}
