package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// TokenMapStore implements storage.TokenMapStore using PostgreSQL.
type TokenMapStore struct {
	pool *Pool
}

// NewTokenMapStore creates a new TokenMapStore.
func NewTokenMapStore(pool *Pool) *TokenMapStore {
	return &TokenMapStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMapStore = (*TokenMapStore)(nil)

// Insert adds a mapping. Returns ErrDuplicateKey if token_id exists.
func (s *TokenMapStore) Insert(ctx context.Context, m *domain.TokenMapping) error {
	query := `
		INSERT INTO token_map (token_id, condition_id, outcome_index, outcome_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		m.TokenID,
		m.ConditionID,
		m.OutcomeIndex,
		m.OutcomeCount,
		m.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token mapping: %w", err)
	}
	return nil
}

// GetByTokenID retrieves the mapping for a token. Returns ErrNotFound for
// an unmapped token.
func (s *TokenMapStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.TokenMapping, error) {
	query := `
		SELECT token_id, condition_id, outcome_index, outcome_count, created_at
		FROM token_map
		WHERE token_id = $1
	`

	var m domain.TokenMapping
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&m.TokenID,
		&m.ConditionID,
		&m.OutcomeIndex,
		&m.OutcomeCount,
		&m.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token mapping: %w", err)
	}
	return &m, nil
}

// GetByConditionID retrieves all outcome-token mappings of a condition,
// ordered by outcome_index ASC.
func (s *TokenMapStore) GetByConditionID(ctx context.Context, conditionID string) ([]*domain.TokenMapping, error) {
	query := `
		SELECT token_id, condition_id, outcome_index, outcome_count, created_at
		FROM token_map
		WHERE condition_id = $1
		ORDER BY outcome_index ASC
	`

	rows, err := s.pool.Query(ctx, query, conditionID)
	if err != nil {
		return nil, fmt.Errorf("get token mappings by condition: %w", err)
	}
	defer rows.Close()

	return scanTokenMappings(rows)
}

// GetAll retrieves all mappings, ordered by token_id ASC.
func (s *TokenMapStore) GetAll(ctx context.Context) ([]*domain.TokenMapping, error) {
	query := `
		SELECT token_id, condition_id, outcome_index, outcome_count, created_at
		FROM token_map
		ORDER BY token_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all token mappings: %w", err)
	}
	defer rows.Close()

	return scanTokenMappings(rows)
}

// scanTokenMappings scans multiple rows into a slice of TokenMapping.
func scanTokenMappings(rows pgx.Rows) ([]*domain.TokenMapping, error) {
	var mappings []*domain.TokenMapping

	for rows.Next() {
		var m domain.TokenMapping

		err := rows.Scan(
			&m.TokenID,
			&m.ConditionID,
			&m.OutcomeIndex,
			&m.OutcomeCount,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token mapping row: %w", err)
		}

		mappings = append(mappings, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token mapping rows: %w", err)
	}

	return mappings, nil
}
