package normalize

import (
	"errors"
	"sort"

	"prediction-pnl-lab/internal/domain"
)

// ErrInvalidOrdering is returned when events are not in deterministic order.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortRawEvents orders raw events by (timestamp ASC, seq ASC).
// Ties at identical timestamps are broken by ingestion order so that
// replay results are reproducible.
func SortRawEvents(events []*domain.RawEvent) {
	sort.Slice(events, func(i, j int) bool {
		return compareRawEvents(events[i], events[j]) < 0
	})
}

// SortLedgerEvents orders normalized events by (timestamp ASC, seq ASC,
// outcome_index ASC, token_id ASC). The trailing keys order the legs a
// split or merge expansion produced from a single raw record.
func SortLedgerEvents(events []*domain.LedgerEvent) {
	sort.Slice(events, func(i, j int) bool {
		return compareLedgerEvents(events[i], events[j]) < 0
	})
}

// ValidateLedgerOrdering checks that events are properly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateLedgerOrdering(events []*domain.LedgerEvent) error {
	for i := 1; i < len(events); i++ {
		if compareLedgerEvents(events[i-1], events[i]) > 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareRawEvents returns negative if a < b, zero if equal, positive if a > b.
// Order: (timestamp ASC, seq ASC)
func compareRawEvents(a, b *domain.RawEvent) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	return 0
}

// compareLedgerEvents returns comparison result for normalized events.
// Order: (timestamp ASC, seq ASC, outcome_index ASC, token_id ASC)
func compareLedgerEvents(a, b *domain.LedgerEvent) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	if a.OutcomeIndex != b.OutcomeIndex {
		if a.OutcomeIndex < b.OutcomeIndex {
			return -1
		}
		return 1
	}
	if a.TokenID != b.TokenID {
		if a.TokenID < b.TokenID {
			return -1
		}
		return 1
	}
	return 0
}
