package clickhouse

import (
	"context"
	"fmt"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// PositionStore implements storage.PositionStore using ClickHouse.
type PositionStore struct {
	conn *Conn
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(conn *Conn) *PositionStore {
	return &PositionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// InsertBulk adds multiple positions. Fails entire batch on duplicate
// (wallet, token_id). MergeTree does not enforce uniqueness, so existence
// is checked explicitly before the batch insert.
func (s *PositionStore) InsertBulk(ctx context.Context, positions []*domain.Position) error {
	if len(positions) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if _, exists := seen[p.Key()]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.Key()] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range positions {
		exists, err := s.exists(ctx, p.Wallet, p.TokenID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO positions (
			wallet, token_id, condition_id, outcome_index,
			amount, avg_cost, realized_pnl, unrealized_pnl,
			acquired, disposed, resolved, flags
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range positions {
		err = batch.Append(
			p.Wallet,
			p.TokenID,
			p.ConditionID,
			int32(p.OutcomeIndex),
			p.Amount,
			p.AvgCost,
			p.RealizedPnL,
			p.UnrealizedPnL,
			p.Acquired,
			p.Disposed,
			p.Resolved,
			p.Flags,
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

// GetByWallet retrieves all positions for a wallet, ordered by token_id ASC.
func (s *PositionStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.Position, error) {
	query := selectPositions + `
		WHERE wallet = ?
		ORDER BY token_id ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get positions by wallet: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetAll retrieves all positions, ordered by (wallet, token_id) ASC.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := selectPositions + `
		ORDER BY wallet ASC, token_id ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

const selectPositions = `
	SELECT wallet, token_id, condition_id, outcome_index,
	       amount, avg_cost, realized_pnl, unrealized_pnl,
	       acquired, disposed, resolved, flags
	FROM positions
`

// exists checks whether a (wallet, token_id) position row is present.
func (s *PositionStore) exists(ctx context.Context, wallet, tokenID string) (bool, error) {
	query := `SELECT count() FROM positions WHERE wallet = ? AND token_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, wallet, tokenID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type positionRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows positionRows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		var (
			p            domain.Position
			outcomeIndex int32
		)

		err := rows.Scan(
			&p.Wallet,
			&p.TokenID,
			&p.ConditionID,
			&outcomeIndex,
			&p.Amount,
			&p.AvgCost,
			&p.RealizedPnL,
			&p.UnrealizedPnL,
			&p.Acquired,
			&p.Disposed,
			&p.Resolved,
			&p.Flags,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}

		p.OutcomeIndex = int(outcomeIndex)
		positions = append(positions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}
