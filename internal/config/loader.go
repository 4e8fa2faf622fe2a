package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PNLLAB_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus environment overrides. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PNLLAB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection strings at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setFloat64(&cfg.Engine.SplitPrice, "PNLLAB_ENGINE_SPLIT_PRICE")
	setInt(&cfg.Engine.MinRiskSample, "PNLLAB_ENGINE_MIN_RISK_SAMPLE")
	setFloat64(&cfg.Engine.LowConfidenceMaxShare, "PNLLAB_ENGINE_LOW_CONFIDENCE_MAX_SHARE")
	setFloat64(&cfg.Engine.UnmappedMaxShare, "PNLLAB_ENGINE_UNMAPPED_MAX_SHARE")

	setInt(&cfg.Batch.Concurrency, "PNLLAB_BATCH_CONCURRENCY")
	setDuration(&cfg.Batch.WalletBudget, "PNLLAB_BATCH_WALLET_BUDGET")
	setInt(&cfg.Batch.MaxEventsPerWallet, "PNLLAB_BATCH_MAX_EVENTS_PER_WALLET")

	setStr(&cfg.Postgres.DSN, "PNLLAB_POSTGRES_DSN")
	setStr(&cfg.Clickhouse.DSN, "PNLLAB_CLICKHOUSE_DSN")

	setStr(&cfg.LogLevel, "PNLLAB_LOG_LEVEL")
	setStr(&cfg.MetricsAddr, "PNLLAB_METRICS_ADDR")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
