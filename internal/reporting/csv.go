package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders wallet rows as CSV string.
func RenderCSV(wallets []WalletRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("wallet,realized_pnl,unrealized_pnl,positions,closed_positions,")
	sb.WriteString("low_confidence_positions,unmapped_tokens,sample_size,")
	sb.WriteString("sortino,omega,consistency,confidence_tier\n")

	// Rows
	for _, w := range wallets {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%s,%d,%d,%d,%d,%d,%s,%s,%s,%s\n",
			w.Wallet,
			w.RealizedPnL,
			csvPtr(w.UnrealizedPnL),
			w.Positions,
			w.ClosedPositions,
			w.LowConfidencePositions,
			w.UnmappedTokens,
			w.SampleSize,
			csvPtr(w.Sortino),
			csvPtr(w.Omega),
			csvPtr(w.Consistency),
			w.ConfidenceTier,
		))
	}

	return sb.String()
}

// csvPtr renders an optional metric as an empty CSV cell when undefined.
func csvPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}
