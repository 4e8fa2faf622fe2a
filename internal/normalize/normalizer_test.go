package normalize

import (
	"math"
	"testing"

	"prediction-pnl-lab/internal/domain"
)

func binaryMappings() []*domain.TokenMapping {
	return []*domain.TokenMapping{
		{TokenID: "tok-yes", ConditionID: "cond1", OutcomeIndex: 0, OutcomeCount: 2},
		{TokenID: "tok-no", ConditionID: "cond1", OutcomeIndex: 1, OutcomeCount: 2},
	}
}

func newTestNormalizer(resolutions []*domain.Resolution) *Normalizer {
	return NewNormalizer(binaryMappings(), resolutions, domain.DefaultEnginePolicy())
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestNormalize_TradePricing(t *testing.T) {
	n := newTestNormalizer(nil)

	result := n.Normalize([]*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
	})

	if len(result.Events) != 1 {
		t.Fatalf("Expected 1 ledger event, got %d", len(result.Events))
	}
	ev := result.Events[0]
	if ev.Action != domain.ActionAcquire {
		t.Errorf("Expected acquire, got %s", ev.Action)
	}
	if !approx(ev.Price, 0.4) {
		t.Errorf("Expected unit price 0.4, got %f", ev.Price)
	}
	if !approx(ev.Quantity, 100) {
		t.Errorf("Expected quantity 100, got %f", ev.Quantity)
	}
	if ev.ConditionID != "cond1" || ev.OutcomeIndex != 0 {
		t.Errorf("Expected condition mapping applied, got %s/%d", ev.ConditionID, ev.OutcomeIndex)
	}
}

func TestNormalize_ZeroQuantityExcluded(t *testing.T) {
	n := newTestNormalizer(nil)

	result := n.Normalize([]*domain.RawEvent{
		rawTrade(1, 0, -40, 1000, "e1", "tx1"),
	})

	if len(result.Events) != 0 {
		t.Fatalf("Expected no ledger events, got %d", len(result.Events))
	}
	if len(result.Excluded) != 1 {
		t.Fatalf("Expected 1 excluded record, got %d", len(result.Excluded))
	}
	if result.ExclusionReason[1] != ExclusionReasonZeroQuantity {
		t.Errorf("Expected zero_quantity reason, got %q", result.ExclusionReason[1])
	}
}

func TestNormalize_UnmappedTokenExcluded(t *testing.T) {
	n := newTestNormalizer(nil)

	ev := rawTrade(1, 100, -40, 1000, "e1", "tx1")
	ev.TokenID = "tok-unknown"
	result := n.Normalize([]*domain.RawEvent{ev})

	if len(result.Events) != 0 {
		t.Fatalf("Expected no ledger events, got %d", len(result.Events))
	}
	if result.ExclusionReason[1] != domain.FlagUnmappedToken {
		t.Errorf("Expected unmapped_token reason, got %q", result.ExclusionReason[1])
	}
	if !result.UnmappedTokens["tok-unknown"] {
		t.Errorf("Expected tok-unknown in unmapped set, got %v", result.UnmappedTokens)
	}
}

func TestNormalize_SplitExpandsBinaryCondition(t *testing.T) {
	n := newTestNormalizer(nil)

	split := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-yes", Kind: domain.EventKindSplit,
		TokenQty: 50, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{split})

	if len(result.Events) != 2 {
		t.Fatalf("Expected one leg per outcome, got %d", len(result.Events))
	}
	if result.Events[0].TokenID != "tok-yes" || result.Events[1].TokenID != "tok-no" {
		t.Errorf("Expected legs in outcome order, got [%s, %s]",
			result.Events[0].TokenID, result.Events[1].TokenID)
	}
	for _, leg := range result.Events {
		if leg.Action != domain.ActionAcquire {
			t.Errorf("Expected acquire legs, got %s", leg.Action)
		}
		if !approx(leg.Price, 0.5) {
			t.Errorf("Expected split price 0.5, got %f", leg.Price)
		}
		if !approx(leg.Quantity, 50) {
			t.Errorf("Expected quantity 50, got %f", leg.Quantity)
		}
	}
}

func TestNormalize_MergeDisposesBothOutcomes(t *testing.T) {
	n := newTestNormalizer(nil)

	merge := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-no", Kind: domain.EventKindMerge,
		TokenQty: -30, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{merge})

	if len(result.Events) != 2 {
		t.Fatalf("Expected one leg per outcome, got %d", len(result.Events))
	}
	for _, leg := range result.Events {
		if leg.Action != domain.ActionDispose {
			t.Errorf("Expected dispose legs, got %s", leg.Action)
		}
		if !approx(leg.Price, 0.5) {
			t.Errorf("Expected split price 0.5, got %f", leg.Price)
		}
	}
}

func TestNormalize_MultiOutcomeSplitExcluded(t *testing.T) {
	mappings := []*domain.TokenMapping{
		{TokenID: "tok-a", ConditionID: "cond9", OutcomeIndex: 0, OutcomeCount: 3},
		{TokenID: "tok-b", ConditionID: "cond9", OutcomeIndex: 1, OutcomeCount: 3},
		{TokenID: "tok-c", ConditionID: "cond9", OutcomeIndex: 2, OutcomeCount: 3},
	}
	n := NewNormalizer(mappings, nil, domain.DefaultEnginePolicy())

	split := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-a", Kind: domain.EventKindSplit,
		TokenQty: 10, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{split})

	if len(result.Events) != 0 {
		t.Fatalf("Expected multi-outcome split excluded, got %d events", len(result.Events))
	}
	if result.ExclusionReason[1] != domain.FlagMultiOutcome {
		t.Errorf("Expected multi_outcome reason, got %q", result.ExclusionReason[1])
	}
}

func TestNormalize_RedemptionPricedFromCurrency(t *testing.T) {
	n := newTestNormalizer(nil)

	red := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-yes", Kind: domain.EventKindRedemption,
		TokenQty: -100, CurrencyAmount: 80, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{red})

	if len(result.Events) != 1 {
		t.Fatalf("Expected 1 leg, got %d", len(result.Events))
	}
	if !approx(result.Events[0].Price, 0.8) {
		t.Errorf("Expected price 0.8 from currency, got %f", result.Events[0].Price)
	}
	if result.Events[0].Action != domain.ActionDispose {
		t.Errorf("Expected dispose, got %s", result.Events[0].Action)
	}
}

func TestNormalize_RedemptionFallsBackToPayout(t *testing.T) {
	n := newTestNormalizer([]*domain.Resolution{
		{ConditionID: "cond1", Payouts: []float64{1, 0}, ResolvedAt: 500},
	})

	red := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-yes", Kind: domain.EventKindRedemption,
		TokenQty: -100, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{red})

	if len(result.Events) != 1 {
		t.Fatalf("Expected 1 leg, got %d", len(result.Events))
	}
	if !approx(result.Events[0].Price, 1.0) {
		t.Errorf("Expected resolution payout price 1.0, got %f", result.Events[0].Price)
	}
}

func TestNormalize_RedemptionWithoutPriceSourceExcluded(t *testing.T) {
	n := newTestNormalizer(nil)

	red := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-yes", Kind: domain.EventKindRedemption,
		TokenQty: -100, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{red})

	if len(result.Events) != 0 {
		t.Fatalf("Expected exclusion, got %d events", len(result.Events))
	}
	if result.ExclusionReason[1] != domain.FlagMissingPrice {
		t.Errorf("Expected missing_price reason, got %q", result.ExclusionReason[1])
	}
}

func TestNormalize_TransferWithoutCurrencyFlagged(t *testing.T) {
	n := newTestNormalizer(nil)

	tr := &domain.RawEvent{
		Seq: 1, Wallet: "w1", TokenID: "tok-yes", Kind: domain.EventKindTransfer,
		TokenQty: -25, Timestamp: 1000, ExternalID: "e1", TxGroupID: "tx1",
	}
	result := n.Normalize([]*domain.RawEvent{tr})

	if len(result.Events) != 1 {
		t.Fatalf("Expected 1 leg, got %d", len(result.Events))
	}
	if !result.Events[0].HasFlag(domain.FlagTransferCostUnknown) {
		t.Errorf("Expected transfer_cost_unknown flag, got %v", result.Events[0].Flags)
	}
}

func TestNormalize_AmbiguousSurvivorsFlagged(t *testing.T) {
	n := newTestNormalizer(nil)

	result := n.Normalize([]*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, 100, -42, 2000, "e2", "tx1"),
	})

	if len(result.Events) != 2 {
		t.Fatalf("Expected both survivors converted, got %d", len(result.Events))
	}
	if result.AmbiguousDedups != 2 {
		t.Errorf("Expected 2 ambiguous records counted, got %d", result.AmbiguousDedups)
	}
	for _, ev := range result.Events {
		if !ev.HasFlag(domain.FlagAmbiguousDedup) {
			t.Errorf("Expected ambiguous_dedup flag on seq %d, got %v", ev.Seq, ev.Flags)
		}
	}
}

func TestNormalize_CountsDuplicatesAndSelfFills(t *testing.T) {
	n := newTestNormalizer(nil)

	self1 := fillLeg(3, "tok-yes", 50, 3000, "tx2", domain.RoleMaker)
	self2 := fillLeg(4, "tok-yes", -50, 3000, "tx2", domain.RoleTaker)
	result := n.Normalize([]*domain.RawEvent{
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, 100, -40, 1000, "e1", "tx1"),
		self1,
		self2,
	})

	if result.DuplicatesRemoved != 1 {
		t.Errorf("Expected 1 duplicate removed, got %d", result.DuplicatesRemoved)
	}
	if result.SelfFillsCollapsed != 1 {
		t.Errorf("Expected 1 self-fill collapsed, got %d", result.SelfFillsCollapsed)
	}
	if len(result.Events) != 1 {
		t.Errorf("Expected only the real trade to survive, got %d events", len(result.Events))
	}
}

func TestNormalize_OutputOrdered(t *testing.T) {
	n := newTestNormalizer(nil)

	result := n.Normalize([]*domain.RawEvent{
		rawTrade(3, 50, -30, 3000, "e3", "tx3"),
		rawTrade(1, 100, -40, 1000, "e1", "tx1"),
		rawTrade(2, -100, 70, 2000, "e2", "tx2"),
	})

	if err := ValidateLedgerOrdering(result.Events); err != nil {
		t.Fatalf("Expected ordered output: %v", err)
	}
	if len(result.Events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(result.Events))
	}
	if result.Events[0].Seq != 1 || result.Events[2].Seq != 3 {
		t.Errorf("Expected chronological order, got %d..%d", result.Events[0].Seq, result.Events[2].Seq)
	}
}
