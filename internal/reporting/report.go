package reporting

import "time"

// Report is the operator-facing summary of a batch reconciliation run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Batch outcome
	Batch BatchSection

	// Wallet rows (sorted by realized PnL DESC, wallet ASC)
	Wallets []WalletRow

	// Anomaly counts by category (sorted by category ASC)
	Anomalies []AnomalyRow

	// Per-wallet failures (sorted by wallet ASC)
	Failures []FailureRow
}

// BatchSection summarizes wallet-level outcomes of one run.
type BatchSection struct {
	TotalWallets  int
	Succeeded     int
	LowConfidence int
	Failed        int
	Deferred      int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// WalletRow is one row of the wallet leaderboard.
type WalletRow struct {
	Wallet                 string
	RealizedPnL            float64
	UnrealizedPnL          *float64 // nil when no open position had a mark
	Positions              int
	ClosedPositions        int
	LowConfidencePositions int
	UnmappedTokens         int
	SampleSize             int
	Sortino                *float64
	Omega                  *float64
	Consistency            *float64
	ConfidenceTier         string
}

// AnomalyRow is one anomaly category count.
type AnomalyRow struct {
	Category string
	Count    int
}

// FailureRow is one isolated wallet failure.
type FailureRow struct {
	Wallet string
	Reason string
}
