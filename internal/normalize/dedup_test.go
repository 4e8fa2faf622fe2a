package normalize

import (
	"testing"

	"prediction-pnl-lab/internal/domain"
)

func rawTrade(seq int64, qty, currency float64, ts int64, extID, tx string) *domain.RawEvent {
	return &domain.RawEvent{
		Seq:            seq,
		Wallet:         "w1",
		TokenID:        "tok-yes",
		Kind:           domain.EventKindTrade,
		TokenQty:       qty,
		CurrencyAmount: currency,
		Timestamp:      ts,
		ExternalID:     extID,
		TxGroupID:      tx,
		Role:           domain.RoleTaker,
	}
}

func TestDeduplicate_ExactRedelivery(t *testing.T) {
	events := []*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, 100, -40, 1000, "e1", "tx1"),
	}

	result := Deduplicate(events)

	if len(result.Kept) != 1 {
		t.Fatalf("Expected 1 survivor, got %d", len(result.Kept))
	}
	if result.Kept[0].Seq != 1 {
		t.Errorf("Expected first record kept, got seq %d", result.Kept[0].Seq)
	}
	if result.Removed != 1 {
		t.Errorf("Expected 1 removed, got %d", result.Removed)
	}
	if len(result.Ambiguous) != 0 {
		t.Errorf("Expected no ambiguity, got %v", result.Ambiguous)
	}
}

func TestDeduplicate_ReingestedFill(t *testing.T) {
	// Same fill redelivered under a fresh external id, payload identical.
	events := []*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, 100, -40, 1000, "e2", "tx1"),
	}

	result := Deduplicate(events)

	if len(result.Kept) != 1 {
		t.Fatalf("Expected 1 survivor, got %d", len(result.Kept))
	}
	if result.Kept[0].Seq != 1 {
		t.Errorf("Expected earliest record kept, got seq %d", result.Kept[0].Seq)
	}
	if result.Removed != 1 {
		t.Errorf("Expected 1 removed, got %d", result.Removed)
	}
}

func TestDeduplicate_DisagreeingKeysFlaggedAmbiguous(t *testing.T) {
	// Same transaction-level key, different timestamps: event-level and
	// transaction-level dedup disagree, so both records survive flagged.
	events := []*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, 100, -42, 2000, "e2", "tx1"),
	}

	result := Deduplicate(events)

	if len(result.Kept) != 2 {
		t.Fatalf("Expected both records kept, got %d", len(result.Kept))
	}
	if result.Removed != 0 {
		t.Errorf("Expected nothing removed, got %d", result.Removed)
	}
	if !result.Ambiguous[1] || !result.Ambiguous[2] {
		t.Errorf("Expected both seqs flagged ambiguous, got %v", result.Ambiguous)
	}
}

func TestDeduplicate_DistinctEventsSurvive(t *testing.T) {
	events := []*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, -100, 70, 2000, "e2", "tx2"),
		rawTrade(3, 50, -20, 3000, "e3", "tx3"),
	}

	result := Deduplicate(events)

	if len(result.Kept) != 3 {
		t.Fatalf("Expected 3 survivors, got %d", len(result.Kept))
	}
	if result.Removed != 0 {
		t.Errorf("Expected nothing removed, got %d", result.Removed)
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	events := []*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, 100, -40, 1000, "e1", "tx1"),
		rawTrade(3, 100, -40, 1000, "e3", "tx1"),
	}

	first := Deduplicate(events)
	second := Deduplicate(first.Kept)

	if second.Removed != 0 {
		t.Errorf("Expected second pass to remove nothing, got %d", second.Removed)
	}
	if len(second.Kept) != len(first.Kept) {
		t.Errorf("Expected stable survivor set, got %d then %d", len(first.Kept), len(second.Kept))
	}
}

func TestDeduplicate_OutputSorted(t *testing.T) {
	events := []*domain.RawEvent{
		rawTrade(3, 50, -20, 3000, "e3", "tx3"),
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, -100, 70, 2000, "e2", "tx2"),
	}
	SortRawEvents(events)

	result := Deduplicate(events)

	for i := 1; i < len(result.Kept); i++ {
		if compareRawEvents(result.Kept[i-1], result.Kept[i]) > 0 {
			t.Fatalf("Survivors out of order at %d: %+v", i, result.Kept)
		}
	}
}
