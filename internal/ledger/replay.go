package ledger

import (
	"sort"

	"prediction-pnl-lab/internal/domain"
)

// ReplayResult is the complete outcome of one wallet replay: final
// position state per token plus the realized-PnL log and any oversell
// signals for the phantom inventory resolver.
type ReplayResult struct {
	Wallet    string
	Positions []*domain.Position
	Deltas    []*domain.PnLDelta
	Oversells []*domain.OversellSignal
}

// Replay runs one wallet's normalized event sequence through a fresh
// tracker. It either completes the full replay or returns an error with
// no partial state exposed; a failed wallet is reported, never half-mutated.
func Replay(wallet string, events []*domain.LedgerEvent) (*ReplayResult, error) {
	tracker := NewTracker(wallet)
	for _, ev := range events {
		if err := tracker.Apply(ev); err != nil {
			return nil, err
		}
	}

	positions := make([]*domain.Position, 0, len(tracker.positions))
	for _, pos := range tracker.positions {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].TokenID < positions[j].TokenID
	})

	return &ReplayResult{
		Wallet:    wallet,
		Positions: positions,
		Deltas:    tracker.deltas,
		Oversells: tracker.oversells,
	}, nil
}
