package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Batch Reconciliation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	}

	// Batch outcome
	sb.WriteString("## Batch Outcome\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Wallets | %d |\n", r.Batch.TotalWallets))
	sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", r.Batch.Succeeded))
	sb.WriteString(fmt.Sprintf("| Low Confidence | %d |\n", r.Batch.LowConfidence))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Batch.Failed))
	sb.WriteString(fmt.Sprintf("| Deferred | %d |\n", r.Batch.Deferred))
	if !r.Batch.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("| Duration | %s |\n", r.Batch.FinishedAt.Sub(r.Batch.StartedAt).Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	// Anomalies
	sb.WriteString("## Anomalies\n\n")
	if len(r.Anomalies) > 0 {
		sb.WriteString("| Category | Count |\n")
		sb.WriteString("|----------|-------|\n")
		for _, a := range r.Anomalies {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", a.Category, a.Count))
		}
	} else {
		sb.WriteString("No anomalies recorded.\n")
	}
	sb.WriteString("\n")

	// Wallet leaderboard
	sb.WriteString("## Wallets\n\n")
	if len(r.Wallets) > 0 {
		sb.WriteString("| Wallet | Realized | Unrealized | Positions | Closed | LowConf | Unmapped | Sortino | Omega | Consistency | Tier |\n")
		sb.WriteString("|--------|----------|------------|-----------|--------|---------|----------|---------|-------|-------------|------|\n")
		for _, w := range r.Wallets {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %s | %d | %d | %d | %d | %s | %s | %s | %s |\n",
				w.Wallet, w.RealizedPnL, fmtPtr(w.UnrealizedPnL),
				w.Positions, w.ClosedPositions, w.LowConfidencePositions, w.UnmappedTokens,
				fmtPtr(w.Sortino), fmtPtr(w.Omega), fmtPtr(w.Consistency), w.ConfidenceTier))
		}
	} else {
		sb.WriteString("No wallet aggregates available.\n")
	}
	sb.WriteString("\n")

	// Failures
	if len(r.Failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Wallet, f.Reason))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// fmtPtr renders an optional metric, "n/a" when undefined.
func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
