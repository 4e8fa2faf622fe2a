package verify

import (
	"context"
	"errors"

	"prediction-pnl-lab/internal/engine"
	"prediction-pnl-lab/internal/storage"
)

// ErrWalletNotFound is returned when a wallet has no stored aggregate.
var ErrWalletNotFound = errors.New("wallet not found")

// ReplayVerifier re-runs the engine pipeline against stored results.
type ReplayVerifier struct {
	engine *engine.Engine

	eventStore     storage.RawEventStore
	tokenMapStore  storage.TokenMapStore
	resolutionStor storage.ResolutionStore
	markPriceStore storage.MarkPriceStore
	positionStore  storage.PositionStore
	aggregateStore storage.WalletAggregateStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Engine          *engine.Engine
	EventStore      storage.RawEventStore
	TokenMapStore   storage.TokenMapStore
	ResolutionStore storage.ResolutionStore
	MarkPriceStore  storage.MarkPriceStore
	PositionStore   storage.PositionStore
	AggregateStore  storage.WalletAggregateStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		engine:         opts.Engine,
		eventStore:     opts.EventStore,
		tokenMapStore:  opts.TokenMapStore,
		resolutionStor: opts.ResolutionStore,
		markPriceStore: opts.MarkPriceStore,
		positionStore:  opts.PositionStore,
		aggregateStore: opts.AggregateStore,
	}
}

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// VerifyWallet replays one wallet from its raw events and compares the
// result against stored positions and the stored aggregate.
func (v *ReplayVerifier) VerifyWallet(ctx context.Context, wallet string) (*VerificationResult, error) {
	storedAggregate, err := v.aggregateStore.GetByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	storedPositions, err := v.positionStore.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	events, err := v.eventStore.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	mappings, err := v.tokenMapStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	resolutions, err := v.resolutionStor.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	marks, err := v.markPriceStore.GetAllLatest(ctx)
	if err != nil {
		return nil, err
	}

	replayed, err := v.engine.ProcessWallet(engine.WalletInput{
		Wallet:      wallet,
		Events:      events,
		Mappings:    mappings,
		Resolutions: resolutions,
		MarkPrices:  marks,
	})
	if err != nil {
		return &VerificationResult{
			Wallet: wallet,
			Match:  false,
			Divergences: []FieldDivergence{
				{Field: "Error", Expected: nil, Actual: err.Error()},
			},
		}, nil
	}

	divergences := ComparePositions(storedPositions, replayed.Positions)
	divergences = append(divergences, CompareAggregates(storedAggregate, replayed.Aggregate)...)

	return &VerificationResult{
		Wallet:      wallet,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// VerifyAll verifies every wallet with a stored aggregate.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	aggregates, err := v.aggregateStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalWallets: len(aggregates),
		Results:      make([]VerificationResult, 0, len(aggregates)),
	}

	for _, a := range aggregates {
		result, err := v.VerifyWallet(ctx, a.Wallet)
		if err != nil {
			return nil, err
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedWallets++
		} else {
			report.DivergentWallets++
		}
	}

	return report, nil
}
