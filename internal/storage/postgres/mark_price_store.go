package postgres

import (
	"context"
	"fmt"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// MarkPriceStore implements storage.MarkPriceStore using PostgreSQL.
type MarkPriceStore struct {
	pool *Pool
}

// NewMarkPriceStore creates a new MarkPriceStore.
func NewMarkPriceStore(pool *Pool) *MarkPriceStore {
	return &MarkPriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarkPriceStore = (*MarkPriceStore)(nil)

// Insert adds a mark price observation. Returns ErrDuplicateKey if
// (token_id, as_of) exists.
func (s *MarkPriceStore) Insert(ctx context.Context, p *domain.MarkPrice) error {
	query := `
		INSERT INTO mark_prices (token_id, price, as_of)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, p.TokenID, p.Price, p.AsOf)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mark price: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent mark for a token.
// Returns ErrNotFound when no mark exists.
func (s *MarkPriceStore) GetLatest(ctx context.Context, tokenID string) (*domain.MarkPrice, error) {
	query := `
		SELECT token_id, price, as_of
		FROM mark_prices
		WHERE token_id = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	var p domain.MarkPrice
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(&p.TokenID, &p.Price, &p.AsOf)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest mark price: %w", err)
	}
	return &p, nil
}

// GetAllLatest retrieves the most recent mark per token, ordered by token_id ASC.
func (s *MarkPriceStore) GetAllLatest(ctx context.Context) ([]*domain.MarkPrice, error) {
	query := `
		SELECT DISTINCT ON (token_id) token_id, price, as_of
		FROM mark_prices
		ORDER BY token_id ASC, as_of DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all latest mark prices: %w", err)
	}
	defer rows.Close()

	var marks []*domain.MarkPrice
	for rows.Next() {
		var p domain.MarkPrice
		if err := rows.Scan(&p.TokenID, &p.Price, &p.AsOf); err != nil {
			return nil, fmt.Errorf("scan mark price row: %w", err)
		}
		marks = append(marks, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mark price rows: %w", err)
	}
	return marks, nil
}
