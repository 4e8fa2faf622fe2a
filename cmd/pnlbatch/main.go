// Package main runs one batch reconciliation pass: it loads every wallet
// with raw events, replays each through the PnL pipeline, persists
// positions and aggregates, and writes the operator report.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"prediction-pnl-lab/internal/config"
	"prediction-pnl-lab/internal/engine"
	"prediction-pnl-lab/internal/observability"
	"prediction-pnl-lab/internal/reporting"
	"prediction-pnl-lab/internal/storage"
	chstore "prediction-pnl-lab/internal/storage/clickhouse"
	"prediction-pnl-lab/internal/storage/memory"
	"prediction-pnl-lab/internal/storage/migrations"
	pgstore "prediction-pnl-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	useFixtures := flag.Bool("fixtures", false, "Run against in-memory stores seeded with fixture data")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	verbose := flag.Bool("verbose", false, "Human-readable log output")
	flag.Parse()

	if *verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	stores, cleanup, err := createStores(ctx, cfg, *useFixtures)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	runner := engine.NewBatchRunner(
		engine.New(cfg.ToPolicy()), cfg.ToBatchOptions(),
		stores.events, stores.tokenMap, stores.resolutions, stores.markPrices,
		stores.positions, stores.aggregates,
	)
	report, err := runner.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("batch run")
	}

	if err := writeReports(ctx, stores.aggregates, report, *outputDir); err != nil {
		log.Fatal().Err(err).Msg("write reports")
	}

	if report.Failed > 0 {
		log.Warn().Int("failed", report.Failed).Msg("batch finished with wallet failures")
		os.Exit(1)
	}
}

// batchStores bundles the store set the runner needs.
type batchStores struct {
	events      storage.RawEventStore
	tokenMap    storage.TokenMapStore
	resolutions storage.ResolutionStore
	markPrices  storage.MarkPriceStore
	positions   storage.PositionStore
	aggregates  storage.WalletAggregateStore
}

// createStores builds either the seeded in-memory store set or the
// Postgres plus ClickHouse production set with migrations applied.
func createStores(ctx context.Context, cfg *config.Config, useFixtures bool) (*batchStores, func(), error) {
	if useFixtures {
		stores := &batchStores{
			events:      memory.NewRawEventStore(),
			tokenMap:    memory.NewTokenMapStore(),
			resolutions: memory.NewResolutionStore(),
			markPrices:  memory.NewMarkPriceStore(),
			positions:   memory.NewPositionStore(),
			aggregates:  memory.NewWalletAggregateStore(),
		}
		fixtures := engine.DefaultFixtures()
		if err := fixtures.Load(ctx, stores.events, stores.tokenMap, stores.resolutions, stores.markPrices); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		log.Info().Int("events", len(fixtures.Events)).Msg("fixture data loaded")
		return stores, func() {}, nil
	}

	if cfg.Postgres.DSN == "" || cfg.Clickhouse.DSN == "" {
		return nil, nil, fmt.Errorf("postgres and clickhouse DSNs are required without -fixtures")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &batchStores{
		events:      pgstore.NewRawEventStore(pool),
		tokenMap:    pgstore.NewTokenMapStore(pool),
		resolutions: pgstore.NewResolutionStore(pool),
		markPrices:  pgstore.NewMarkPriceStore(pool),
		positions:   chstore.NewPositionStore(chConn),
		aggregates:  chstore.NewWalletAggregateStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// writeReports renders the markdown and CSV reports into outputDir.
func writeReports(ctx context.Context, aggregates storage.WalletAggregateStore, batch *engine.BatchReport, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	report, err := reporting.NewGenerator(aggregates).Generate(ctx, batch)
	if err != nil {
		return err
	}

	mdPath := filepath.Join(outputDir, "batch_report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	csvPath := filepath.Join(outputDir, "wallet_pnl.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Wallets)), 0o644); err != nil {
		return err
	}

	log.Info().Str("markdown", mdPath).Str("csv", csvPath).Msg("reports written")
	return nil
}

// serveMetrics exposes the Prometheus endpoint for the run's duration.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("metrics server stopped")
	}
}
