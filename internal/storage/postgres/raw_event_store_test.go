package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

func TestRawEventStore_InsertAndGetByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawEventStore(pool)
	ctx := context.Background()

	e := &domain.RawEvent{
		Seq:            1,
		Wallet:         "0xwallet1",
		TokenID:        "token-yes",
		Kind:           domain.EventKindTrade,
		TokenQty:       100,
		CurrencyAmount: -40,
		Timestamp:      1704067200000,
		ExternalID:     "ext-1",
		TxGroupID:      "0xtx1",
		Role:           domain.RoleTaker,
	}
	require.NoError(t, store.Insert(ctx, e))

	got, err := store.GetByWallet(ctx, "0xwallet1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "token-yes", got[0].TokenID)
	require.Equal(t, domain.EventKindTrade, got[0].Kind)
	require.Equal(t, domain.RoleTaker, got[0].Role)
	require.Equal(t, float64(100), got[0].TokenQty)
}

func TestRawEventStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawEventStore(pool)
	ctx := context.Background()

	e := &domain.RawEvent{Seq: 1, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade}
	require.NoError(t, store.Insert(ctx, e))

	err := store.Insert(ctx, e)
	require.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)
}

func TestRawEventStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.RawEvent{Seq: 2, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade}))

	batch := []*domain.RawEvent{
		{Seq: 1, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade},
		{Seq: 2, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade},
	}
	err := store.InsertBulk(ctx, batch)
	require.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)

	// Transaction rollback: nothing from the failed batch should persist.
	got, err := store.GetByWallet(ctx, "w")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRawEventStore_OrderingAndTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawEventStore(pool)
	ctx := context.Background()

	events := []*domain.RawEvent{
		{Seq: 3, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade, Timestamp: 3000},
		{Seq: 2, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade, Timestamp: 1000},
		{Seq: 1, Wallet: "w", TokenID: "t", Kind: domain.EventKindTrade, Timestamp: 1000},
	}
	require.NoError(t, store.InsertBulk(ctx, events))

	got, err := store.GetByWallet(ctx, "w")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, int64(1), got[0].Seq)
	require.Equal(t, int64(2), got[1].Seq)
	require.Equal(t, int64(3), got[2].Seq)

	ranged, err := store.GetByWalletTimeRange(ctx, "w", 1000, 1000)
	require.NoError(t, err)
	require.Len(t, ranged, 2)
}

func TestRawEventStore_ListWallets(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRawEventStore(pool)
	ctx := context.Background()

	for i, w := range []string{"bob", "alice", "bob"} {
		e := &domain.RawEvent{Seq: int64(i), Wallet: w, TokenID: "t", Kind: domain.EventKindTrade}
		require.NoError(t, store.Insert(ctx, e))
	}

	wallets, err := store.ListWallets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, wallets)
}
