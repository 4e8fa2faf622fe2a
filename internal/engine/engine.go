// Package engine wires the full per-wallet pipeline:
// normalize -> replay -> phantom attribution -> settlement -> aggregation.
// Each wallet's computation is a pure function of its pre-fetched inputs,
// which makes re-computation trivially parallel and bit-reproducible.
package engine

import (
	"fmt"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/ledger"
	"prediction-pnl-lab/internal/metrics"
	"prediction-pnl-lab/internal/normalize"
	"prediction-pnl-lab/internal/phantom"
	"prediction-pnl-lab/internal/settle"
)

// Anomaly category constants, reported per batch run so systematic
// data-quality regressions show up in aggregate.
const (
	AnomalyDuplicateCollapsed   = "duplicate_collapsed"
	AnomalyAmbiguousDedup       = "ambiguous_dedup"
	AnomalySelfFillCollapsed    = "self_fill_collapsed"
	AnomalyUnmappedToken        = "unmapped_token"
	AnomalyOversellAttributed   = "oversell_attributed"
	AnomalyOversellUnattributed = "oversell_unattributed"
	AnomalyUnresolvedCondition  = "unresolved_condition"
)

// WalletInput is the bounded working set for one wallet replay. All
// inputs are pre-fetched; nothing blocks on external services mid-replay.
type WalletInput struct {
	Wallet      string
	Events      []*domain.RawEvent
	Mappings    []*domain.TokenMapping
	Resolutions []*domain.Resolution
	MarkPrices  []*domain.MarkPrice
}

// WalletResult is the complete outcome for one wallet.
type WalletResult struct {
	Wallet      string
	Positions   []*domain.Position
	Aggregate   *domain.WalletAggregate
	Deltas      []*domain.PnLDelta
	Diagnostics []*domain.OversellDiagnostic
	Anomalies   map[string]int
}

// Engine executes the per-wallet pipeline under a single policy set.
type Engine struct {
	policy domain.EnginePolicy
}

// New creates an engine with the given policy.
func New(policy domain.EnginePolicy) *Engine {
	return &Engine{policy: policy}
}

// ProcessWallet runs the full pipeline for one wallet. An ordering
// violation aborts the wallet with no partial state; every other data
// imperfection degrades to flags and anomaly counters instead of failing.
func (e *Engine) ProcessWallet(in WalletInput) (*WalletResult, error) {
	normalizer := normalize.NewNormalizer(in.Mappings, in.Resolutions, e.policy)
	norm := normalizer.Normalize(in.Events)

	replayed, err := ledger.Replay(in.Wallet, norm.Events)
	if err != nil {
		return nil, fmt.Errorf("replay wallet %s: %w", in.Wallet, err)
	}

	resolver := phantom.NewResolver(e.policy)
	attribution := resolver.Resolve(replayed.Positions, replayed.Oversells, norm.Events)

	resolutions := make(map[string]*domain.Resolution, len(in.Resolutions))
	for _, r := range in.Resolutions {
		resolutions[r.ConditionID] = r
	}
	marks := make(map[string]*domain.MarkPrice, len(in.MarkPrices))
	for _, m := range in.MarkPrices {
		marks[m.TokenID] = m
	}
	settled := settle.Settle(replayed.Positions, resolutions, marks)

	aggregator := metrics.NewAggregator(e.policy)
	aggregate := aggregator.Aggregate(in.Wallet, replayed.Positions, len(norm.UnmappedTokens))

	anomalies := map[string]int{}
	record := func(category string, n int) {
		if n > 0 {
			anomalies[category] += n
		}
	}
	record(AnomalyDuplicateCollapsed, norm.DuplicatesRemoved)
	record(AnomalyAmbiguousDedup, norm.AmbiguousDedups)
	record(AnomalySelfFillCollapsed, norm.SelfFillsCollapsed)
	record(AnomalyUnmappedToken, len(norm.UnmappedTokens))
	record(AnomalyOversellUnattributed, attribution.AttributedByRule[domain.AttributionNone])
	record(AnomalyOversellAttributed,
		attribution.AttributedByRule[domain.AttributionCorrelatedMint]+
			attribution.AttributedByRule[domain.AttributionConditionDeficit])
	record(AnomalyUnresolvedCondition, settled.Unresolved)

	return &WalletResult{
		Wallet:      in.Wallet,
		Positions:   replayed.Positions,
		Aggregate:   aggregate,
		Deltas:      replayed.Deltas,
		Diagnostics: attribution.Diagnostics,
		Anomalies:   anomalies,
	}, nil
}
