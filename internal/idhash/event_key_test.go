package idhash

import (
	"testing"

	"prediction-pnl-lab/internal/domain"
)

func TestComputeEventKey_Deterministic(t *testing.T) {
	k1 := ComputeEventKey("0xabc", "evt-1")
	k2 := ComputeEventKey("0xabc", "evt-1")

	if k1 != k2 {
		t.Errorf("same inputs produced different keys: %s vs %s", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("expected 64-char hex hash, got %d chars", len(k1))
	}
}

func TestComputeEventKey_DistinctWallets(t *testing.T) {
	k1 := ComputeEventKey("0xabc", "evt-1")
	k2 := ComputeEventKey("0xdef", "evt-1")

	if k1 == k2 {
		t.Error("different wallets must not share an event key")
	}
}

func TestComputeTxKey_SideSensitive(t *testing.T) {
	buy := ComputeTxKey("0xabc", "tx-1", domain.ActionAcquire, "tok-1", 100)
	sell := ComputeTxKey("0xabc", "tx-1", domain.ActionDispose, "tok-1", 100)

	if buy == sell {
		t.Error("acquire and dispose legs must not collide")
	}
}

func TestComputeTxKey_QuantityPrecision(t *testing.T) {
	a := ComputeTxKey("0xabc", "tx-1", domain.ActionAcquire, "tok-1", 100.000000001)
	b := ComputeTxKey("0xabc", "tx-1", domain.ActionAcquire, "tok-1", 100.000000002)

	if a == b {
		t.Error("quantities differing at the 9th decimal must produce distinct keys")
	}
}

func TestComputePositionID_Deterministic(t *testing.T) {
	p1 := ComputePositionID("0xabc", "tok-1")
	p2 := ComputePositionID("0xabc", "tok-1")
	p3 := ComputePositionID("0xabc", "tok-2")

	if p1 != p2 {
		t.Error("position id must be deterministic")
	}
	if p1 == p3 {
		t.Error("different tokens must produce different position ids")
	}
}
