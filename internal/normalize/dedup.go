package normalize

import (
	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/idhash"
)

// DedupResult is the outcome of the two-level deduplication pass.
type DedupResult struct {
	// Kept holds surviving events in input order.
	Kept []*domain.RawEvent

	// Removed is the number of records collapsed as duplicates.
	Removed int

	// Ambiguous is the set of surviving Seqs where the event-level and
	// transaction-level dedup keys disagreed. Such events are retained
	// under the stricter event-level key and flagged, never dropped.
	Ambiguous map[int64]bool
}

// Deduplicate collapses duplicate raw records for one wallet.
//
// Level 1 collapses exact redeliveries: records sharing
// (wallet, external_event_id) are one logical event.
//
// Level 2 collapses the upstream re-ingestion pattern: the same fill
// reappearing under a fresh external id. The key there is
// (transaction, side, token, quantity). Records grouped by that key are
// collapsed only when their remaining payload (timestamp, currency
// amount, kind) is identical; otherwise the two keys disagree and every
// record in the group survives flagged ambiguous.
//
// Input must be sorted by (timestamp, seq); output preserves that order.
func Deduplicate(events []*domain.RawEvent) *DedupResult {
	result := &DedupResult{
		Ambiguous: make(map[int64]bool),
	}

	// Level 1: (wallet, external_event_id)
	seen := make(map[string]struct{}, len(events))
	var survivors []*domain.RawEvent
	for _, e := range events {
		key := idhash.ComputeEventKey(e.Wallet, e.ExternalID)
		if _, dup := seen[key]; dup {
			result.Removed++
			continue
		}
		seen[key] = struct{}{}
		survivors = append(survivors, e)
	}

	// Level 2: (transaction, side, token, quantity)
	groups := make(map[string][]*domain.RawEvent)
	order := make([]string, 0, len(survivors))
	for _, e := range survivors {
		key := idhash.ComputeTxKey(e.Wallet, e.TxGroupID, e.Side(), e.TokenID, e.AbsQty())
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			result.Kept = append(result.Kept, group[0])
			continue
		}

		if payloadsIdentical(group) {
			// Known re-ingestion duplication: keep the earliest record.
			result.Kept = append(result.Kept, group[0])
			result.Removed += len(group) - 1
			continue
		}

		// Candidate keys disagree: retain everything under the stricter
		// event-level key and flag for downstream confidence scoring.
		for _, e := range group {
			result.Ambiguous[e.Seq] = true
			result.Kept = append(result.Kept, e)
		}
	}

	SortRawEvents(result.Kept)
	return result
}

// payloadsIdentical reports whether all records in a transaction-key group
// agree on every field except the external id and ingestion order.
func payloadsIdentical(group []*domain.RawEvent) bool {
	first := group[0]
	for _, e := range group[1:] {
		if e.Timestamp != first.Timestamp ||
			e.CurrencyAmount != first.CurrencyAmount ||
			e.Kind != first.Kind ||
			e.Role != first.Role {
			return false
		}
	}
	return true
}
