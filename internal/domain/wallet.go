package domain

// ConfidenceTier labels how trustworthy a wallet-level result is.
type ConfidenceTier string

// Confidence tier constants.
const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// RiskMetrics are risk-adjusted ranking metrics over the sequence of
// per-position realized returns. Every metric is nil below the configured
// minimum sample size: undefined beats misleadingly noisy.
type RiskMetrics struct {
	SampleSize        int
	MeanReturn        *float64
	DownsideDeviation *float64
	Sortino           *float64 // mean return / downside deviation
	Omega             *float64 // summed gains / summed losses
	Consistency       *float64 // fraction of closed positions with positive net return
}

// WalletAggregate is the wallet-level roll-up of all settled positions.
type WalletAggregate struct {
	Wallet      string
	RealizedPnL float64

	// UnrealizedPnL is nil when no open position had a mark price.
	UnrealizedPnL *float64

	Positions              int
	ClosedPositions        int
	LowConfidencePositions int
	UnmappedTokens         int // distinct tokens excluded for missing condition mapping

	Risk           RiskMetrics
	ConfidenceTier ConfidenceTier
}

// LowConfidenceShare returns the proportion of low-confidence positions.
func (a *WalletAggregate) LowConfidenceShare() float64 {
	if a.Positions == 0 {
		return 0
	}
	return float64(a.LowConfidencePositions) / float64(a.Positions)
}

// UnmappedShare returns the proportion of excluded, unmapped tokens
// relative to everything the wallet touched.
func (a *WalletAggregate) UnmappedShare() float64 {
	total := a.Positions + a.UnmappedTokens
	if total == 0 {
		return 0
	}
	return float64(a.UnmappedTokens) / float64(total)
}
