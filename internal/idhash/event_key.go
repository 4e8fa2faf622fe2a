package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"prediction-pnl-lab/internal/domain"
)

// ComputeEventKey computes the event-level dedup key using SHA256.
// Formula: SHA256(wallet|external_event_id)
// Returns hex-encoded hash (64 characters).
func ComputeEventKey(wallet, externalID string) string {
	data := fmt.Sprintf("%s|%s", wallet, externalID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTxKey computes the transaction-level dedup key used to collapse
// the upstream re-ingestion duplication pattern, where the same fill
// reappears under a fresh external id.
// Formula: SHA256(wallet|tx_group|side|token|qty)
func ComputeTxKey(wallet, txGroupID string, side domain.LedgerAction, tokenID string, qty float64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%.9f", wallet, txGroupID, side, tokenID, qty)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputePositionID computes a deterministic id for a per-position record.
// Formula: SHA256(wallet|token_id)
func ComputePositionID(wallet, tokenID string) string {
	data := fmt.Sprintf("%s|%s", wallet, tokenID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
