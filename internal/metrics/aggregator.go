// Package metrics rolls settled positions up into wallet-level realized
// and unrealized PnL and derives risk-adjusted ranking metrics.
package metrics

import (
	"sort"

	"prediction-pnl-lab/internal/domain"
)

// Aggregator computes wallet aggregates from finalized positions. It only
// reads positions; the position tracker remains their sole mutator.
type Aggregator struct {
	policy domain.EnginePolicy
}

// NewAggregator creates an aggregator with the given policy.
func NewAggregator(policy domain.EnginePolicy) *Aggregator {
	return &Aggregator{policy: policy}
}

// Aggregate sums position-level results into the wallet-level record.
// unmappedTokens is the count of distinct tokens excluded during
// normalization for a missing condition mapping.
func (a *Aggregator) Aggregate(wallet string, positions []*domain.Position, unmappedTokens int) *domain.WalletAggregate {
	agg := &domain.WalletAggregate{
		Wallet:         wallet,
		Positions:      len(positions),
		UnmappedTokens: unmappedTokens,
	}

	ordered := make([]*domain.Position, len(positions))
	copy(ordered, positions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].TokenID < ordered[j].TokenID
	})

	var unrealizedSum float64
	var haveUnrealized bool
	var returns []float64

	for _, pos := range ordered {
		lowConfidence := pos.HasFlag(domain.FlagLowConfidence)
		if lowConfidence {
			agg.LowConfidencePositions++
		}

		// Low-confidence positions are excluded from high-confidence
		// totals but retained in the diagnostic surfaces.
		if !lowConfidence {
			agg.RealizedPnL += pos.RealizedPnL
			if pos.UnrealizedPnL != nil {
				unrealizedSum += *pos.UnrealizedPnL
				haveUnrealized = true
			}
		}

		if pos.Closed() && !lowConfidence {
			agg.ClosedPositions++
			returns = append(returns, pos.RealizedPnL)
		}
	}

	if haveUnrealized {
		agg.UnrealizedPnL = &unrealizedSum
	}
	agg.Risk = ComputeRiskMetrics(returns, a.policy.MinRiskSample)
	agg.ConfidenceTier = a.tier(agg)
	return agg
}

// tier derives the confidence label from the proportion of low-confidence
// positions and the proportion of unmapped tokens. High confidence needs
// both below their bounds; twice a bound drops the result to low.
func (a *Aggregator) tier(agg *domain.WalletAggregate) domain.ConfidenceTier {
	lowShare := agg.LowConfidenceShare()
	unmappedShare := agg.UnmappedShare()

	if lowShare >= 2*a.policy.LowConfidenceMaxShare || unmappedShare >= 2*a.policy.UnmappedMaxShare {
		return domain.TierLow
	}
	if lowShare < a.policy.LowConfidenceMaxShare && unmappedShare < a.policy.UnmappedMaxShare {
		return domain.TierHigh
	}
	return domain.TierMedium
}
