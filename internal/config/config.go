// Package config holds the TOML-backed runtime configuration.
package config

import (
	"fmt"
	"time"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/engine"
)

// Config is the full runtime configuration of the batch engine.
type Config struct {
	Engine      EngineConfig     `toml:"engine"`
	Batch       BatchConfig      `toml:"batch"`
	Postgres    PostgresConfig   `toml:"postgres"`
	Clickhouse  ClickhouseConfig `toml:"clickhouse"`
	LogLevel    string           `toml:"log_level"`
	MetricsAddr string           `toml:"metrics_addr"`
}

// EngineConfig tunes the per-wallet replay policy.
type EngineConfig struct {
	// SplitPrice is the per-outcome acquisition price assigned to
	// split-minted tokens of a binary condition.
	SplitPrice float64 `toml:"split_price"`

	// AttributionOrder lists phantom attribution rules in priority order.
	AttributionOrder []string `toml:"attribution_order"`

	// MinRiskSample is the minimum closed-position count below which
	// risk metrics are reported as undefined.
	MinRiskSample int `toml:"min_risk_sample"`

	// LowConfidenceMaxShare and UnmappedMaxShare bound how much flagged
	// or excluded volume a wallet may carry before its confidence tier
	// degrades.
	LowConfidenceMaxShare float64 `toml:"low_confidence_max_share"`
	UnmappedMaxShare      float64 `toml:"unmapped_max_share"`
}

// BatchConfig tunes the batch runner.
type BatchConfig struct {
	Concurrency        int      `toml:"concurrency"`
	WalletBudget       duration `toml:"wallet_budget"`
	MaxEventsPerWallet int      `toml:"max_events_per_wallet"`
}

// PostgresConfig holds the reference-store connection settings.
type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// ClickhouseConfig holds the result-store connection settings.
type ClickhouseConfig struct {
	DSN string `toml:"dsn"`
}

// Defaults returns the built-in configuration, matching the default
// engine policy.
func Defaults() Config {
	policy := domain.DefaultEnginePolicy()

	order := make([]string, 0, len(policy.AttributionOrder))
	for _, rule := range policy.AttributionOrder {
		order = append(order, string(rule))
	}

	return Config{
		Engine: EngineConfig{
			SplitPrice:            policy.SplitPrice,
			AttributionOrder:      order,
			MinRiskSample:         policy.MinRiskSample,
			LowConfidenceMaxShare: policy.LowConfidenceMaxShare,
			UnmappedMaxShare:      policy.UnmappedMaxShare,
		},
		Batch: BatchConfig{
			Concurrency:        8,
			WalletBudget:       duration{30 * time.Second},
			MaxEventsPerWallet: 0,
		},
		LogLevel:    "info",
		MetricsAddr: ":9091",
	}
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Engine.SplitPrice <= 0 || c.Engine.SplitPrice >= 1 {
		return fmt.Errorf("engine.split_price must be in (0, 1), got %f", c.Engine.SplitPrice)
	}
	if c.Engine.MinRiskSample < 1 {
		return fmt.Errorf("engine.min_risk_sample must be >= 1, got %d", c.Engine.MinRiskSample)
	}
	if c.Engine.LowConfidenceMaxShare < 0 || c.Engine.LowConfidenceMaxShare > 1 {
		return fmt.Errorf("engine.low_confidence_max_share must be in [0, 1], got %f", c.Engine.LowConfidenceMaxShare)
	}
	if c.Engine.UnmappedMaxShare < 0 || c.Engine.UnmappedMaxShare > 1 {
		return fmt.Errorf("engine.unmapped_max_share must be in [0, 1], got %f", c.Engine.UnmappedMaxShare)
	}
	for _, rule := range c.Engine.AttributionOrder {
		switch domain.AttributionRule(rule) {
		case domain.AttributionCorrelatedMint, domain.AttributionConditionDeficit:
		default:
			return fmt.Errorf("engine.attribution_order: unknown rule %q", rule)
		}
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be >= 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.MaxEventsPerWallet < 0 {
		return fmt.Errorf("batch.max_events_per_wallet must be >= 0, got %d", c.Batch.MaxEventsPerWallet)
	}
	return nil
}

// ToPolicy converts the engine section into a domain policy.
func (c *Config) ToPolicy() domain.EnginePolicy {
	order := make([]domain.AttributionRule, 0, len(c.Engine.AttributionOrder))
	for _, rule := range c.Engine.AttributionOrder {
		order = append(order, domain.AttributionRule(rule))
	}

	return domain.EnginePolicy{
		SplitPrice:            c.Engine.SplitPrice,
		AttributionOrder:      order,
		MinRiskSample:         c.Engine.MinRiskSample,
		LowConfidenceMaxShare: c.Engine.LowConfidenceMaxShare,
		UnmappedMaxShare:      c.Engine.UnmappedMaxShare,
	}
}

// ToBatchOptions converts the batch section into runner options.
func (c *Config) ToBatchOptions() engine.BatchOptions {
	return engine.BatchOptions{
		Concurrency:        c.Batch.Concurrency,
		WalletBudget:       c.Batch.WalletBudget.Duration,
		MaxEventsPerWallet: c.Batch.MaxEventsPerWallet,
	}
}

// duration wraps time.Duration for TOML decoding of strings like "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
