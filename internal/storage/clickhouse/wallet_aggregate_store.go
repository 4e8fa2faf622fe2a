package clickhouse

import (
	"context"
	"fmt"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// WalletAggregateStore implements storage.WalletAggregateStore using ClickHouse.
type WalletAggregateStore struct {
	conn *Conn
}

// NewWalletAggregateStore creates a new WalletAggregateStore.
func NewWalletAggregateStore(conn *Conn) *WalletAggregateStore {
	return &WalletAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.WalletAggregateStore = (*WalletAggregateStore)(nil)

// Insert adds an aggregate. Returns ErrDuplicateKey if wallet exists.
func (s *WalletAggregateStore) Insert(ctx context.Context, a *domain.WalletAggregate) error {
	return s.InsertBulk(ctx, []*domain.WalletAggregate{a})
}

// InsertBulk adds multiple aggregates atomically. Fails entire batch on
// any duplicate wallet. Existence is checked explicitly because MergeTree
// does not enforce uniqueness at insert time.
func (s *WalletAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.WalletAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(aggregates))
	for _, a := range aggregates {
		if _, exists := seen[a.Wallet]; exists {
			return storage.ErrDuplicateKey
		}
		seen[a.Wallet] = struct{}{}
	}

	for _, a := range aggregates {
		exists, err := s.exists(ctx, a.Wallet)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO wallet_aggregates (
			wallet, realized_pnl, unrealized_pnl,
			positions, closed_positions, low_confidence_positions, unmapped_tokens,
			sample_size, mean_return, downside_deviation, sortino, omega, consistency,
			confidence_tier
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range aggregates {
		err = batch.Append(
			a.Wallet,
			a.RealizedPnL,
			a.UnrealizedPnL,
			int32(a.Positions),
			int32(a.ClosedPositions),
			int32(a.LowConfidencePositions),
			int32(a.UnmappedTokens),
			int32(a.Risk.SampleSize),
			a.Risk.MeanReturn,
			a.Risk.DownsideDeviation,
			a.Risk.Sortino,
			a.Risk.Omega,
			a.Risk.Consistency,
			string(a.ConfidenceTier),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWallet retrieves the aggregate for a wallet. Returns ErrNotFound if absent.
func (s *WalletAggregateStore) GetByWallet(ctx context.Context, wallet string) (*domain.WalletAggregate, error) {
	query := selectAggregates + `
		WHERE wallet = ?
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get aggregate by wallet: %w", err)
	}
	defer rows.Close()

	aggregates, err := scanAggregates(rows)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, storage.ErrNotFound
	}
	return aggregates[0], nil
}

// GetAll retrieves all aggregates, ordered by wallet ASC.
func (s *WalletAggregateStore) GetAll(ctx context.Context) ([]*domain.WalletAggregate, error) {
	query := selectAggregates + `
		ORDER BY wallet ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all aggregates: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

const selectAggregates = `
	SELECT wallet, realized_pnl, unrealized_pnl,
	       positions, closed_positions, low_confidence_positions, unmapped_tokens,
	       sample_size, mean_return, downside_deviation, sortino, omega, consistency,
	       confidence_tier
	FROM wallet_aggregates
`

// exists checks whether an aggregate row for the wallet is present.
func (s *WalletAggregateStore) exists(ctx context.Context, wallet string) (bool, error) {
	query := `SELECT count() FROM wallet_aggregates WHERE wallet = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, wallet).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanAggregates scans multiple rows into a slice of WalletAggregate.
func scanAggregates(rows positionRows) ([]*domain.WalletAggregate, error) {
	var aggregates []*domain.WalletAggregate

	for rows.Next() {
		var (
			a                                          domain.WalletAggregate
			positions, closed, lowConfidence, unmapped int32
			sampleSize                                 int32
			tier                                       string
		)

		err := rows.Scan(
			&a.Wallet,
			&a.RealizedPnL,
			&a.UnrealizedPnL,
			&positions,
			&closed,
			&lowConfidence,
			&unmapped,
			&sampleSize,
			&a.Risk.MeanReturn,
			&a.Risk.DownsideDeviation,
			&a.Risk.Sortino,
			&a.Risk.Omega,
			&a.Risk.Consistency,
			&tier,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}

		a.Positions = int(positions)
		a.ClosedPositions = int(closed)
		a.LowConfidencePositions = int(lowConfidence)
		a.UnmappedTokens = int(unmapped)
		a.Risk.SampleSize = int(sampleSize)
		a.ConfidenceTier = domain.ConfidenceTier(tier)
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	return aggregates, nil
}
