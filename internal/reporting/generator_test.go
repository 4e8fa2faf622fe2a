package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/engine"
	"prediction-pnl-lab/internal/storage/memory"
)

func ptr(v float64) *float64 { return &v }

func seedAggregates(t *testing.T, store *memory.WalletAggregateStore) {
	t.Helper()
	ctx := context.Background()

	aggs := []*domain.WalletAggregate{
		{
			Wallet:          "wallet-b",
			RealizedPnL:     50,
			Positions:       3,
			ClosedPositions: 3,
			Risk: domain.RiskMetrics{
				SampleSize:  3,
				Sortino:     ptr(1.2),
				Omega:       ptr(2.0),
				Consistency: ptr(0.66),
			},
			ConfidenceTier: domain.TierHigh,
		},
		{
			Wallet:         "wallet-a",
			RealizedPnL:    120,
			UnrealizedPnL:  ptr(10),
			Positions:      2,
			Risk:           domain.RiskMetrics{SampleSize: 1},
			ConfidenceTier: domain.TierMedium,
		},
	}
	if err := store.InsertBulk(ctx, aggs); err != nil {
		t.Fatalf("seed aggregates: %v", err)
	}
}

func TestGenerator_Generate(t *testing.T) {
	store := memory.NewWalletAggregateStore()
	seedAggregates(t, store)

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(store).WithClock(func() time.Time { return fixed })

	batch := &engine.BatchReport{
		RunID:         "run-1",
		Succeeded:     1,
		LowConfidence: 1,
		Anomalies: map[string]int{
			engine.AnomalyUnmappedToken:      2,
			engine.AnomalyDuplicateCollapsed: 5,
		},
		Failures:   []engine.WalletFailure{{Wallet: "wallet-c", Reason: "ordering violation"}},
		StartedAt:  fixed.Add(-time.Minute),
		FinishedAt: fixed,
	}

	report, err := gen.Generate(context.Background(), batch)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.GeneratedAt != fixed {
		t.Errorf("Expected fixed clock, got %v", report.GeneratedAt)
	}
	if report.RunID != "run-1" {
		t.Errorf("Expected run id run-1, got %s", report.RunID)
	}

	// Wallets sorted by realized PnL DESC.
	if len(report.Wallets) != 2 {
		t.Fatalf("Expected 2 wallet rows, got %d", len(report.Wallets))
	}
	if report.Wallets[0].Wallet != "wallet-a" || report.Wallets[1].Wallet != "wallet-b" {
		t.Errorf("Expected order [wallet-a, wallet-b], got [%s, %s]",
			report.Wallets[0].Wallet, report.Wallets[1].Wallet)
	}

	// Anomalies sorted by category.
	if len(report.Anomalies) != 2 {
		t.Fatalf("Expected 2 anomaly rows, got %d", len(report.Anomalies))
	}
	if report.Anomalies[0].Category != engine.AnomalyDuplicateCollapsed {
		t.Errorf("Expected duplicate_collapsed first, got %s", report.Anomalies[0].Category)
	}
}

func TestRenderMarkdown(t *testing.T) {
	store := memory.NewWalletAggregateStore()
	seedAggregates(t, store)

	gen := NewGenerator(store).WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	report, err := gen.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Batch Reconciliation Report",
		"wallet-a",
		"wallet-b",
		"| 120.0000 |",
		"n/a", // nil risk metrics of the sparse wallet
		"high",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	rows := []WalletRow{
		{
			Wallet:      "wallet-a",
			RealizedPnL: 120,
			Positions:   2,
			SampleSize:  1,
		},
		{
			Wallet:         "wallet-b",
			RealizedPnL:    50.5,
			Sortino:        ptr(1.25),
			ConfidenceTier: "high",
		},
	}

	csv := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "wallet,realized_pnl,") {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	// nil metrics render as empty cells
	if !strings.Contains(lines[1], ",,") {
		t.Errorf("Expected empty cells for nil metrics: %s", lines[1])
	}
	if !strings.Contains(lines[2], "1.250000") {
		t.Errorf("Expected sortino cell: %s", lines[2])
	}
}
