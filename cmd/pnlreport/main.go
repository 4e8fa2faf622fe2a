// Package main regenerates reports from previously persisted results and
// optionally re-verifies stored wallets by deterministic replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"prediction-pnl-lab/internal/config"
	"prediction-pnl-lab/internal/engine"
	"prediction-pnl-lab/internal/reporting"
	chstore "prediction-pnl-lab/internal/storage/clickhouse"
	pgstore "prediction-pnl-lab/internal/storage/postgres"
	"prediction-pnl-lab/internal/verify"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	runVerify := flag.Bool("verify", false, "Re-verify stored results by replaying every wallet")
	wallet := flag.String("wallet", "", "Verify a single wallet instead of all")
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
	if cfg.Postgres.DSN == "" || cfg.Clickhouse.DSN == "" {
		log.Fatal().Msg("postgres and clickhouse DSNs are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	chConn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer chConn.Close()

	aggregateStore := chstore.NewWalletAggregateStore(chConn)

	if err := writeReports(ctx, aggregateStore, *outputDir); err != nil {
		log.Fatal().Err(err).Msg("write reports")
	}

	if !*runVerify && *wallet == "" {
		return
	}

	verifier := verify.NewReplayVerifier(verify.ReplayVerifierOptions{
		Engine:          engine.New(cfg.ToPolicy()),
		EventStore:      pgstore.NewRawEventStore(pool),
		TokenMapStore:   pgstore.NewTokenMapStore(pool),
		ResolutionStore: pgstore.NewResolutionStore(pool),
		MarkPriceStore:  pgstore.NewMarkPriceStore(pool),
		PositionStore:   chstore.NewPositionStore(chConn),
		AggregateStore:  aggregateStore,
	})

	if *wallet != "" {
		result, err := verifier.VerifyWallet(ctx, *wallet)
		if err != nil {
			log.Fatal().Err(err).Str("wallet", *wallet).Msg("verify wallet")
		}
		printDivergences(*result)
		if !result.Match {
			os.Exit(1)
		}
		return
	}

	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("verify all")
	}
	log.Info().
		Int("total", report.TotalWallets).
		Int("matched", report.MatchedWallets).
		Int("divergent", report.DivergentWallets).
		Msg("verification finished")
	for _, result := range report.Results {
		if !result.Match {
			printDivergences(result)
		}
	}
	if report.DivergentWallets > 0 {
		os.Exit(1)
	}
}

// writeReports renders markdown and CSV from the stored aggregates.
func writeReports(ctx context.Context, aggregates *chstore.WalletAggregateStore, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	report, err := reporting.NewGenerator(aggregates).Generate(ctx, nil)
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

// printDivergences writes one wallet's verification result to stdout.
func printDivergences(result verify.VerificationResult) {
	if result.Match {
		fmt.Printf("wallet %s: match\n", result.Wallet)
		return
	}
	fmt.Printf("wallet %s: %d divergences\n", result.Wallet, len(result.Divergences))
	for _, d := range result.Divergences {
		fmt.Printf("  %-40s stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
	}
}
