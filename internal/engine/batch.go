package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/observability"
	"prediction-pnl-lab/internal/storage"
)

// BatchOptions configures a batch run.
type BatchOptions struct {
	// Concurrency bounds the number of wallets processed in parallel.
	// Positions are fully independent across wallets, so this is the
	// natural sharding granularity.
	Concurrency int

	// WalletBudget is the wall-clock budget per wallet. A wallet that
	// cannot start within the batch deadline is deferred, never left
	// half-mutated.
	WalletBudget time.Duration

	// MaxEventsPerWallet is the record-count budget; wallets above it
	// are deferred to a later run. Zero means unlimited.
	MaxEventsPerWallet int
}

// WalletFailure reports one isolated per-wallet failure.
type WalletFailure struct {
	Wallet string
	Reason string
}

// BatchReport is the operator-visible outcome of a batch run.
type BatchReport struct {
	RunID         string
	Succeeded     int
	LowConfidence int
	Failed        int
	Deferred      int
	Failures      []WalletFailure
	Anomalies     map[string]int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Wallets returns the total number of wallets the run considered.
func (r *BatchReport) Wallets() int {
	return r.Succeeded + r.LowConfidence + r.Failed + r.Deferred
}

// BatchRunner shards wallets across workers and persists results.
type BatchRunner struct {
	engine *Engine
	opts   BatchOptions

	eventStore     storage.RawEventStore
	tokenMapStore  storage.TokenMapStore
	resolutionStor storage.ResolutionStore
	markPriceStore storage.MarkPriceStore
	positionStore  storage.PositionStore
	aggregateStore storage.WalletAggregateStore
}

// NewBatchRunner creates a batch runner over the given stores.
func NewBatchRunner(
	eng *Engine,
	opts BatchOptions,
	eventStore storage.RawEventStore,
	tokenMapStore storage.TokenMapStore,
	resolutionStore storage.ResolutionStore,
	markPriceStore storage.MarkPriceStore,
	positionStore storage.PositionStore,
	aggregateStore storage.WalletAggregateStore,
) *BatchRunner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &BatchRunner{
		engine:         eng,
		opts:           opts,
		eventStore:     eventStore,
		tokenMapStore:  tokenMapStore,
		resolutionStor: resolutionStore,
		markPriceStore: markPriceStore,
		positionStore:  positionStore,
		aggregateStore: aggregateStore,
	}
}

// Run processes every wallet with at least one event. Per-wallet failures
// are isolated and reported individually; one wallet never aborts the
// batch. Re-running over the same inputs produces identical outputs.
func (r *BatchRunner) Run(ctx context.Context) (*BatchReport, error) {
	report := &BatchReport{
		RunID:     uuid.NewString(),
		Anomalies: make(map[string]int),
		StartedAt: time.Now().UTC(),
	}

	wallets, err := r.eventStore.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Str("run_id", report.RunID).Int("wallets", len(wallets)).Msg("batch run started")

	// Shared read-only snapshots, fetched once before any replay begins.
	mappings, err := r.tokenMapStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	resolutions, err := r.resolutionStor.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	marks, err := r.markPriceStore.GetAllLatest(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, wallet := range wallets {
		g.Go(func() error {
			status, result, werr := r.runWallet(gctx, wallet, mappings, resolutions, marks)

			mu.Lock()
			defer mu.Unlock()
			switch status {
			case walletDeferred:
				report.Deferred++
			case walletFailed:
				report.Failed++
				report.Failures = append(report.Failures, WalletFailure{Wallet: wallet, Reason: werr.Error()})
				log.Warn().Str("wallet", wallet).Err(werr).Msg("wallet failed")
			default:
				if result.Aggregate.ConfidenceTier == domain.TierLow {
					report.LowConfidence++
				} else {
					report.Succeeded++
				}
				for category, n := range result.Anomalies {
					report.Anomalies[category] += n
				}
			}
			observability.RecordWalletProcessed(string(status))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Wallet < report.Failures[j].Wallet
	})
	for category, n := range report.Anomalies {
		observability.RecordAnomalies(category, n)
	}

	report.FinishedAt = time.Now().UTC()
	observability.RecordBatchRun(report.FinishedAt.Sub(report.StartedAt).Seconds())
	log.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded).
		Int("low_confidence", report.LowConfidence).
		Int("failed", report.Failed).
		Int("deferred", report.Deferred).
		Msg("batch run finished")
	return report, nil
}

type walletStatus string

const (
	walletSucceeded walletStatus = "succeeded"
	walletFailed    walletStatus = "failed"
	walletDeferred  walletStatus = "deferred"
)

// runWallet prefetches one wallet's working set, runs the pure pipeline
// and persists the outcome. Persisted stores are append-only, so a rerun
// hitting ErrDuplicateKey is the idempotent case, not a failure.
func (r *BatchRunner) runWallet(
	ctx context.Context,
	wallet string,
	mappings []*domain.TokenMapping,
	resolutions []*domain.Resolution,
	marks []*domain.MarkPrice,
) (walletStatus, *WalletResult, error) {
	if ctx.Err() != nil {
		return walletDeferred, nil, nil
	}

	wctx := ctx
	if r.opts.WalletBudget > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, r.opts.WalletBudget)
		defer cancel()
	}

	events, err := r.eventStore.GetByWallet(wctx, wallet)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return walletDeferred, nil, nil
		}
		return walletFailed, nil, err
	}
	if r.opts.MaxEventsPerWallet > 0 && len(events) > r.opts.MaxEventsPerWallet {
		return walletDeferred, nil, nil
	}

	started := time.Now()
	result, err := r.engine.ProcessWallet(WalletInput{
		Wallet:      wallet,
		Events:      events,
		Mappings:    mappings,
		Resolutions: resolutions,
		MarkPrices:  marks,
	})
	if err != nil {
		return walletFailed, nil, err
	}
	observability.RecordWalletReplayDuration(time.Since(started).Seconds())

	if err := r.persist(wctx, result); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return walletDeferred, nil, nil
		}
		return walletFailed, nil, err
	}
	return walletSucceeded, result, nil
}

// persist writes positions and the wallet aggregate.
func (r *BatchRunner) persist(ctx context.Context, result *WalletResult) error {
	if len(result.Positions) > 0 {
		if err := r.positionStore.InsertBulk(ctx, result.Positions); err != nil &&
			!errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
	}
	if err := r.aggregateStore.Insert(ctx, result.Aggregate); err != nil &&
		!errors.Is(err, storage.ErrDuplicateKey) {
		return err
	}
	return nil
}
