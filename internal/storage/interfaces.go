package storage

import (
	"context"

	"prediction-pnl-lab/internal/domain"
)

// RawEventStore provides access to the upstream event records.
type RawEventStore interface {
	// Insert adds a raw event. Returns ErrDuplicateKey if (wallet, seq) exists.
	Insert(ctx context.Context, e *domain.RawEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.RawEvent) error

	// GetByWallet retrieves all events for a wallet, ordered by (timestamp, seq) ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.RawEvent, error)

	// GetByWalletTimeRange retrieves events for a wallet within [start, end] (inclusive).
	GetByWalletTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.RawEvent, error)

	// ListWallets returns all distinct wallets with at least one event, sorted ASC.
	ListWallets(ctx context.Context) ([]string, error)
}

// TokenMapStore provides access to the token -> condition mapping.
type TokenMapStore interface {
	// Insert adds a mapping. Returns ErrDuplicateKey if token_id exists.
	Insert(ctx context.Context, m *domain.TokenMapping) error

	// GetByTokenID retrieves the mapping for a token. Returns ErrNotFound
	// for an unmapped token.
	GetByTokenID(ctx context.Context, tokenID string) (*domain.TokenMapping, error)

	// GetByConditionID retrieves all outcome-token mappings of a condition,
	// ordered by outcome_index ASC.
	GetByConditionID(ctx context.Context, conditionID string) ([]*domain.TokenMapping, error)

	// GetAll retrieves all mappings.
	GetAll(ctx context.Context) ([]*domain.TokenMapping, error)
}

// ResolutionStore provides access to condition payout vectors.
type ResolutionStore interface {
	// Insert adds a resolution. Returns ErrDuplicateKey if condition_id exists.
	Insert(ctx context.Context, r *domain.Resolution) error

	// GetByConditionID retrieves the resolution for a condition.
	// Returns ErrNotFound while the condition is unresolved.
	GetByConditionID(ctx context.Context, conditionID string) (*domain.Resolution, error)

	// GetAll retrieves all known resolutions.
	GetAll(ctx context.Context) ([]*domain.Resolution, error)
}

// MarkPriceStore provides access to current mark prices, used only for
// unrealized PnL of unresolved conditions.
type MarkPriceStore interface {
	// Insert adds a mark price observation. Returns ErrDuplicateKey if
	// (token_id, as_of) exists.
	Insert(ctx context.Context, p *domain.MarkPrice) error

	// GetLatest retrieves the most recent mark for a token.
	// Returns ErrNotFound when no mark exists.
	GetLatest(ctx context.Context, tokenID string) (*domain.MarkPrice, error)

	// GetAllLatest retrieves the most recent mark per token.
	GetAllLatest(ctx context.Context) ([]*domain.MarkPrice, error)
}

// PositionStore provides access to finalized per-position records.
type PositionStore interface {
	// InsertBulk adds multiple positions. Fails entire batch on duplicate
	// (wallet, token_id).
	InsertBulk(ctx context.Context, positions []*domain.Position) error

	// GetByWallet retrieves all positions for a wallet, ordered by token_id ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.Position, error)

	// GetAll retrieves all positions.
	GetAll(ctx context.Context) ([]*domain.Position, error)
}

// WalletAggregateStore provides access to wallet-level results.
type WalletAggregateStore interface {
	// Insert adds an aggregate. Returns ErrDuplicateKey if wallet exists.
	Insert(ctx context.Context, a *domain.WalletAggregate) error

	// InsertBulk adds multiple aggregates atomically.
	InsertBulk(ctx context.Context, aggregates []*domain.WalletAggregate) error

	// GetByWallet retrieves the aggregate for a wallet. Returns ErrNotFound if absent.
	GetByWallet(ctx context.Context, wallet string) (*domain.WalletAggregate, error)

	// GetAll retrieves all aggregates, ordered by wallet ASC.
	GetAll(ctx context.Context) ([]*domain.WalletAggregate, error)
}
