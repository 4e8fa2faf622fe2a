package engine

import (
	"context"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// FixtureSet is a synthetic multi-wallet data set covering every pipeline
// path: clean round trips, paired-set mints, oversells with and without an
// attribution source, self-fills, duplicate deliveries, unmapped tokens,
// resolved conditions and marked open positions. It backs the fixture run
// mode and the end-to-end tests.
type FixtureSet struct {
	Events      []*domain.RawEvent
	Mappings    []*domain.TokenMapping
	Resolutions []*domain.Resolution
	MarkPrices  []*domain.MarkPrice
}

// Fixture wallet names.
const (
	FixtureWalletRoundTrip    = "wallet-round-trip"
	FixtureWalletMint         = "wallet-mint"
	FixtureWalletDeficit      = "wallet-deficit"
	FixtureWalletUnattributed = "wallet-unattributed"
	FixtureWalletNoisy        = "wallet-noisy"
	FixtureWalletUnmapped     = "wallet-unmapped"
	FixtureWalletResolved     = "wallet-resolved"
	FixtureWalletOpen         = "wallet-open"
)

// DefaultFixtures builds the synthetic data set. Sequence numbers are
// globally unique so the set can be bulk-loaded into one event store.
func DefaultFixtures() *FixtureSet {
	f := &FixtureSet{
		Mappings: []*domain.TokenMapping{
			{TokenID: "fx-yes-1", ConditionID: "fx-cond-1", OutcomeIndex: 0, OutcomeCount: 2},
			{TokenID: "fx-no-1", ConditionID: "fx-cond-1", OutcomeIndex: 1, OutcomeCount: 2},
			{TokenID: "fx-yes-2", ConditionID: "fx-cond-2", OutcomeIndex: 0, OutcomeCount: 2},
			{TokenID: "fx-no-2", ConditionID: "fx-cond-2", OutcomeIndex: 1, OutcomeCount: 2},
			{TokenID: "fx-yes-3", ConditionID: "fx-cond-3", OutcomeIndex: 0, OutcomeCount: 2},
			{TokenID: "fx-no-3", ConditionID: "fx-cond-3", OutcomeIndex: 1, OutcomeCount: 2},
			{TokenID: "fx-yes-4", ConditionID: "fx-cond-4", OutcomeIndex: 0, OutcomeCount: 2},
			{TokenID: "fx-no-4", ConditionID: "fx-cond-4", OutcomeIndex: 1, OutcomeCount: 2},
			{TokenID: "fx-yes-5", ConditionID: "fx-cond-5", OutcomeIndex: 0, OutcomeCount: 2},
			{TokenID: "fx-no-5", ConditionID: "fx-cond-5", OutcomeIndex: 1, OutcomeCount: 2},
		},
		Resolutions: []*domain.Resolution{
			{ConditionID: "fx-cond-4", Payouts: []float64{1, 0}, ResolvedAt: 9000},
		},
		MarkPrices: []*domain.MarkPrice{
			{TokenID: "fx-yes-5", Price: 0.55, AsOf: 9000},
		},
	}

	seq := int64(0)
	next := func() int64 { seq++; return seq }
	add := func(ev *domain.RawEvent) {
		ev.Seq = next()
		f.Events = append(f.Events, ev)
	}

	// Clean round trip: buy 100 at 0.40, sell 100 at 0.70.
	add(&domain.RawEvent{Wallet: FixtureWalletRoundTrip, TokenID: "fx-yes-1", Kind: domain.EventKindTrade,
		TokenQty: 100, CurrencyAmount: -40, Timestamp: 1000, ExternalID: "rt-1", TxGroupID: "rt-tx1", Role: domain.RoleTaker})
	add(&domain.RawEvent{Wallet: FixtureWalletRoundTrip, TokenID: "fx-yes-1", Kind: domain.EventKindTrade,
		TokenQty: -100, CurrencyAmount: 70, Timestamp: 2000, ExternalID: "rt-2", TxGroupID: "rt-tx2", Role: domain.RoleTaker})

	// Mint-and-dump in one transaction: split 100 pairs, sell 140 of the
	// yes side at 0.80. The 40 excess correlates with the mint.
	add(&domain.RawEvent{Wallet: FixtureWalletMint, TokenID: "fx-yes-2", Kind: domain.EventKindSplit,
		TokenQty: 100, Timestamp: 1000, ExternalID: "mt-1", TxGroupID: "mt-tx1"})
	add(&domain.RawEvent{Wallet: FixtureWalletMint, TokenID: "fx-yes-2", Kind: domain.EventKindTrade,
		TokenQty: -140, CurrencyAmount: 112, Timestamp: 1000, ExternalID: "mt-2", TxGroupID: "mt-tx1", Role: domain.RoleMaker})

	// Same shape, but the sale happens in a later transaction: only the
	// retained sibling surplus ties the excess back to the mint.
	add(&domain.RawEvent{Wallet: FixtureWalletDeficit, TokenID: "fx-yes-3", Kind: domain.EventKindSplit,
		TokenQty: 100, Timestamp: 1000, ExternalID: "df-1", TxGroupID: "df-tx1"})
	add(&domain.RawEvent{Wallet: FixtureWalletDeficit, TokenID: "fx-yes-3", Kind: domain.EventKindTrade,
		TokenQty: -140, CurrencyAmount: 112, Timestamp: 2000, ExternalID: "df-2", TxGroupID: "df-tx2", Role: domain.RoleTaker})

	// Disposal with no acquisition anywhere: unattributable.
	add(&domain.RawEvent{Wallet: FixtureWalletUnattributed, TokenID: "fx-yes-1", Kind: domain.EventKindTrade,
		TokenQty: -50, CurrencyAmount: 30, Timestamp: 1000, ExternalID: "ua-1", TxGroupID: "ua-tx1", Role: domain.RoleTaker})

	// Noisy wallet: a duplicated delivery, a self-matched fill pair and one
	// real trade that must survive both cleanups.
	add(&domain.RawEvent{Wallet: FixtureWalletNoisy, TokenID: "fx-yes-1", Kind: domain.EventKindTrade,
		TokenQty: 100, CurrencyAmount: -40, Timestamp: 1000, ExternalID: "ny-1", TxGroupID: "ny-tx1", Role: domain.RoleTaker})
	add(&domain.RawEvent{Wallet: FixtureWalletNoisy, TokenID: "fx-yes-1", Kind: domain.EventKindTrade,
		TokenQty: 100, CurrencyAmount: -40, Timestamp: 1000, ExternalID: "ny-1", TxGroupID: "ny-tx1", Role: domain.RoleTaker})
	add(&domain.RawEvent{Wallet: FixtureWalletNoisy, TokenID: "fx-no-1", Kind: domain.EventKindTrade,
		TokenQty: 30, CurrencyAmount: -18, Timestamp: 2000, ExternalID: "ny-2", TxGroupID: "ny-tx2", Role: domain.RoleMaker})
	add(&domain.RawEvent{Wallet: FixtureWalletNoisy, TokenID: "fx-no-1", Kind: domain.EventKindTrade,
		TokenQty: -30, CurrencyAmount: 18, Timestamp: 2000, ExternalID: "ny-3", TxGroupID: "ny-tx2", Role: domain.RoleTaker})

	// Trade on a token the mapping source does not know.
	add(&domain.RawEvent{Wallet: FixtureWalletUnmapped, TokenID: "fx-ghost", Kind: domain.EventKindTrade,
		TokenQty: 10, CurrencyAmount: -5, Timestamp: 1000, ExternalID: "um-1", TxGroupID: "um-tx1", Role: domain.RoleTaker})

	// Held to resolution: buy 100 at 0.30, condition resolves to the yes side.
	add(&domain.RawEvent{Wallet: FixtureWalletResolved, TokenID: "fx-yes-4", Kind: domain.EventKindTrade,
		TokenQty: 100, CurrencyAmount: -30, Timestamp: 1000, ExternalID: "rs-1", TxGroupID: "rs-tx1", Role: domain.RoleTaker})

	// Open position with an explicit mark price.
	add(&domain.RawEvent{Wallet: FixtureWalletOpen, TokenID: "fx-yes-5", Kind: domain.EventKindTrade,
		TokenQty: 100, CurrencyAmount: -40, Timestamp: 1000, ExternalID: "op-1", TxGroupID: "op-tx1", Role: domain.RoleTaker})

	return f
}

// Load bulk-inserts the fixture set into the given stores.
func (f *FixtureSet) Load(
	ctx context.Context,
	eventStore storage.RawEventStore,
	tokenMapStore storage.TokenMapStore,
	resolutionStore storage.ResolutionStore,
	markPriceStore storage.MarkPriceStore,
) error {
	if err := eventStore.InsertBulk(ctx, f.Events); err != nil {
		return err
	}
	for _, m := range f.Mappings {
		if err := tokenMapStore.Insert(ctx, m); err != nil {
			return err
		}
	}
	for _, r := range f.Resolutions {
		if err := resolutionStore.Insert(ctx, r); err != nil {
			return err
		}
	}
	for _, mp := range f.MarkPrices {
		if err := markPriceStore.Insert(ctx, mp); err != nil {
			return err
		}
	}
	return nil
}

// WalletEvents returns the fixture events of one wallet.
func (f *FixtureSet) WalletEvents(wallet string) []*domain.RawEvent {
	var events []*domain.RawEvent
	for _, ev := range f.Events {
		if ev.Wallet == wallet {
			events = append(events, ev)
		}
	}
	return events
}
