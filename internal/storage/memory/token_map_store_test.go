package memory

import (
	"context"
	"errors"
	"testing"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

func TestTokenMapStore_InsertAndGet(t *testing.T) {
	store := NewTokenMapStore()
	ctx := context.Background()

	m := &domain.TokenMapping{
		TokenID:      "token-yes",
		ConditionID:  "cond1",
		OutcomeIndex: 0,
		OutcomeCount: 2,
	}
	if err := store.Insert(ctx, m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTokenID(ctx, "token-yes")
	if err != nil {
		t.Fatalf("GetByTokenID failed: %v", err)
	}
	if got.ConditionID != "cond1" {
		t.Errorf("ConditionID mismatch: got %s, want cond1", got.ConditionID)
	}
}

func TestTokenMapStore_NotFound(t *testing.T) {
	store := NewTokenMapStore()
	ctx := context.Background()

	_, err := store.GetByTokenID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTokenMapStore_DuplicateKey(t *testing.T) {
	store := NewTokenMapStore()
	ctx := context.Background()

	m := &domain.TokenMapping{TokenID: "t", ConditionID: "c", OutcomeCount: 2}
	if err := store.Insert(ctx, m); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, m); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTokenMapStore_GetByConditionIDOrdering(t *testing.T) {
	store := NewTokenMapStore()
	ctx := context.Background()

	mappings := []*domain.TokenMapping{
		{TokenID: "token-no", ConditionID: "cond1", OutcomeIndex: 1, OutcomeCount: 2},
		{TokenID: "token-yes", ConditionID: "cond1", OutcomeIndex: 0, OutcomeCount: 2},
		{TokenID: "other", ConditionID: "cond2", OutcomeIndex: 0, OutcomeCount: 2},
	}
	for _, m := range mappings {
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByConditionID(ctx, "cond1")
	if err != nil {
		t.Fatalf("GetByConditionID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 mappings, got %d", len(got))
	}
	if got[0].OutcomeIndex != 0 || got[1].OutcomeIndex != 1 {
		t.Errorf("Expected outcome_index order [0, 1], got [%d, %d]", got[0].OutcomeIndex, got[1].OutcomeIndex)
	}
}

func TestResolutionStore_InsertAndGet(t *testing.T) {
	store := NewResolutionStore()
	ctx := context.Background()

	r := &domain.Resolution{
		ConditionID: "cond1",
		Payouts:     []float64{1, 0},
		ResolvedAt:  1704067200000,
	}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByConditionID(ctx, "cond1")
	if err != nil {
		t.Fatalf("GetByConditionID failed: %v", err)
	}
	if len(got.Payouts) != 2 || got.Payouts[0] != 1 {
		t.Errorf("Payouts mismatch: got %v", got.Payouts)
	}

	// Payout slice must be an independent copy.
	got.Payouts[0] = 99
	again, _ := store.GetByConditionID(ctx, "cond1")
	if again.Payouts[0] != 1 {
		t.Errorf("Store leaked payout slice: got %f, want 1", again.Payouts[0])
	}
}

func TestResolutionStore_UnresolvedIsNotFound(t *testing.T) {
	store := NewResolutionStore()
	ctx := context.Background()

	_, err := store.GetByConditionID(ctx, "unresolved")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMarkPriceStore_GetLatest(t *testing.T) {
	store := NewMarkPriceStore()
	ctx := context.Background()

	marks := []*domain.MarkPrice{
		{TokenID: "t1", Price: 0.40, AsOf: 1000},
		{TokenID: "t1", Price: 0.55, AsOf: 3000},
		{TokenID: "t1", Price: 0.48, AsOf: 2000},
		{TokenID: "t2", Price: 0.10, AsOf: 500},
	}
	for _, m := range marks {
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetLatest(ctx, "t1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if got.Price != 0.55 {
		t.Errorf("Expected latest price 0.55, got %f", got.Price)
	}

	all, err := store.GetAllLatest(ctx)
	if err != nil {
		t.Fatalf("GetAllLatest failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 latest marks, got %d", len(all))
	}
	if all[0].TokenID != "t1" || all[1].TokenID != "t2" {
		t.Errorf("Expected token order [t1, t2], got [%s, %s]", all[0].TokenID, all[1].TokenID)
	}
}

func TestMarkPriceStore_NotFound(t *testing.T) {
	store := NewMarkPriceStore()
	ctx := context.Background()

	_, err := store.GetLatest(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
