// Package reporting renders batch run results for operators: a markdown
// summary and CSV exports of the wallet leaderboard.
package reporting

import (
	"context"
	"sort"
	"time"

	"prediction-pnl-lab/internal/engine"
	"prediction-pnl-lab/internal/storage"
)

// Generator produces reports from stored aggregates and a batch report.
type Generator struct {
	aggregateStore storage.WalletAggregateStore
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(aggregateStore storage.WalletAggregateStore) *Generator {
	return &Generator{
		aggregateStore: aggregateStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the full report. The batch report may be nil when
// summarizing previously persisted results without a fresh run.
func (g *Generator) Generate(ctx context.Context, batch *engine.BatchReport) (*Report, error) {
	aggs, err := g.aggregateStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
	}

	if batch != nil {
		report.RunID = batch.RunID
		report.Batch = BatchSection{
			TotalWallets:  batch.Wallets(),
			Succeeded:     batch.Succeeded,
			LowConfidence: batch.LowConfidence,
			Failed:        batch.Failed,
			Deferred:      batch.Deferred,
			StartedAt:     batch.StartedAt,
			FinishedAt:    batch.FinishedAt,
		}

		for category, count := range batch.Anomalies {
			report.Anomalies = append(report.Anomalies, AnomalyRow{Category: category, Count: count})
		}
		sort.Slice(report.Anomalies, func(i, j int) bool {
			return report.Anomalies[i].Category < report.Anomalies[j].Category
		})

		for _, f := range batch.Failures {
			report.Failures = append(report.Failures, FailureRow{Wallet: f.Wallet, Reason: f.Reason})
		}
	}

	for _, a := range aggs {
		report.Wallets = append(report.Wallets, WalletRow{
			Wallet:                 a.Wallet,
			RealizedPnL:            a.RealizedPnL,
			UnrealizedPnL:          a.UnrealizedPnL,
			Positions:              a.Positions,
			ClosedPositions:        a.ClosedPositions,
			LowConfidencePositions: a.LowConfidencePositions,
			UnmappedTokens:         a.UnmappedTokens,
			SampleSize:             a.Risk.SampleSize,
			Sortino:                a.Risk.Sortino,
			Omega:                  a.Risk.Omega,
			Consistency:            a.Risk.Consistency,
			ConfidenceTier:         string(a.ConfidenceTier),
		})
	}
	sort.Slice(report.Wallets, func(i, j int) bool {
		if report.Wallets[i].RealizedPnL != report.Wallets[j].RealizedPnL {
			return report.Wallets[i].RealizedPnL > report.Wallets[j].RealizedPnL
		}
		return report.Wallets[i].Wallet < report.Wallets[j].Wallet
	})

	return report, nil
}
