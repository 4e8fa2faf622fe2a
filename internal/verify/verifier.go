// Package verify re-runs the per-wallet pipeline against stored results.
// A stored position or aggregate that cannot be reproduced bit-for-bit
// from the same inputs means either the inputs changed under the run or
// the pipeline lost determinism; both are reportable defects.
package verify

import (
	"context"
	"math"

	"prediction-pnl-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name, prefixed with the token for positions
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single wallet.
type VerificationResult struct {
	Wallet      string
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalWallets     int
	MatchedWallets   int
	DivergentWallets int
	Results          []VerificationResult
}

// Verifier re-runs wallets against stored results.
type Verifier interface {
	// VerifyWallet verifies a single wallet by replaying its events and
	// comparing positions and the aggregate against stored rows.
	VerifyWallet(ctx context.Context, wallet string) (*VerificationResult, error)

	// VerifyAll verifies every wallet with a stored aggregate.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// floatsEqual compares floats within FloatTolerance.
func floatsEqual(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// optFloatsEqual compares optional floats; nil only equals nil.
func optFloatsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return floatsEqual(*a, *b)
}

// ComparePositions compares stored and replayed positions keyed by token.
func ComparePositions(stored, replayed []*domain.Position) []FieldDivergence {
	var divergences []FieldDivergence

	storedByToken := make(map[string]*domain.Position, len(stored))
	for _, p := range stored {
		storedByToken[p.TokenID] = p
	}
	replayedByToken := make(map[string]*domain.Position, len(replayed))
	for _, p := range replayed {
		replayedByToken[p.TokenID] = p
	}

	for _, s := range stored {
		r, ok := replayedByToken[s.TokenID]
		if !ok {
			divergences = append(divergences, FieldDivergence{
				Field: s.TokenID + ".present", Expected: true, Actual: false,
			})
			continue
		}
		divergences = append(divergences, comparePosition(s, r)...)
	}
	for _, r := range replayed {
		if _, ok := storedByToken[r.TokenID]; !ok {
			divergences = append(divergences, FieldDivergence{
				Field: r.TokenID + ".present", Expected: false, Actual: true,
			})
		}
	}

	return divergences
}

func comparePosition(stored, replayed *domain.Position) []FieldDivergence {
	var divergences []FieldDivergence
	prefix := stored.TokenID + "."

	if !floatsEqual(stored.Amount, replayed.Amount) {
		divergences = append(divergences, FieldDivergence{prefix + "Amount", stored.Amount, replayed.Amount})
	}
	if !floatsEqual(stored.AvgCost, replayed.AvgCost) {
		divergences = append(divergences, FieldDivergence{prefix + "AvgCost", stored.AvgCost, replayed.AvgCost})
	}
	if !floatsEqual(stored.RealizedPnL, replayed.RealizedPnL) {
		divergences = append(divergences, FieldDivergence{prefix + "RealizedPnL", stored.RealizedPnL, replayed.RealizedPnL})
	}
	if !optFloatsEqual(stored.UnrealizedPnL, replayed.UnrealizedPnL) {
		divergences = append(divergences, FieldDivergence{prefix + "UnrealizedPnL", stored.UnrealizedPnL, replayed.UnrealizedPnL})
	}
	if !floatsEqual(stored.Acquired, replayed.Acquired) {
		divergences = append(divergences, FieldDivergence{prefix + "Acquired", stored.Acquired, replayed.Acquired})
	}
	if !floatsEqual(stored.Disposed, replayed.Disposed) {
		divergences = append(divergences, FieldDivergence{prefix + "Disposed", stored.Disposed, replayed.Disposed})
	}
	if stored.Resolved != replayed.Resolved {
		divergences = append(divergences, FieldDivergence{prefix + "Resolved", stored.Resolved, replayed.Resolved})
	}

	return divergences
}

// CompareAggregates compares stored and replayed wallet aggregates.
func CompareAggregates(stored, replayed *domain.WalletAggregate) []FieldDivergence {
	var divergences []FieldDivergence

	if !floatsEqual(stored.RealizedPnL, replayed.RealizedPnL) {
		divergences = append(divergences, FieldDivergence{"Aggregate.RealizedPnL", stored.RealizedPnL, replayed.RealizedPnL})
	}
	if !optFloatsEqual(stored.UnrealizedPnL, replayed.UnrealizedPnL) {
		divergences = append(divergences, FieldDivergence{"Aggregate.UnrealizedPnL", stored.UnrealizedPnL, replayed.UnrealizedPnL})
	}
	if stored.Positions != replayed.Positions {
		divergences = append(divergences, FieldDivergence{"Aggregate.Positions", stored.Positions, replayed.Positions})
	}
	if stored.ClosedPositions != replayed.ClosedPositions {
		divergences = append(divergences, FieldDivergence{"Aggregate.ClosedPositions", stored.ClosedPositions, replayed.ClosedPositions})
	}
	if stored.LowConfidencePositions != replayed.LowConfidencePositions {
		divergences = append(divergences, FieldDivergence{"Aggregate.LowConfidencePositions", stored.LowConfidencePositions, replayed.LowConfidencePositions})
	}
	if stored.Risk.SampleSize != replayed.Risk.SampleSize {
		divergences = append(divergences, FieldDivergence{"Aggregate.Risk.SampleSize", stored.Risk.SampleSize, replayed.Risk.SampleSize})
	}
	if !optFloatsEqual(stored.Risk.Sortino, replayed.Risk.Sortino) {
		divergences = append(divergences, FieldDivergence{"Aggregate.Risk.Sortino", stored.Risk.Sortino, replayed.Risk.Sortino})
	}
	if !optFloatsEqual(stored.Risk.Omega, replayed.Risk.Omega) {
		divergences = append(divergences, FieldDivergence{"Aggregate.Risk.Omega", stored.Risk.Omega, replayed.Risk.Omega})
	}
	if !optFloatsEqual(stored.Risk.Consistency, replayed.Risk.Consistency) {
		divergences = append(divergences, FieldDivergence{"Aggregate.Risk.Consistency", stored.Risk.Consistency, replayed.Risk.Consistency})
	}
	if stored.ConfidenceTier != replayed.ConfidenceTier {
		divergences = append(divergences, FieldDivergence{"Aggregate.ConfidenceTier", stored.ConfidenceTier, replayed.ConfidenceTier})
	}

	return divergences
}
