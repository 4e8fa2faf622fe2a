package postgres

import (
	"context"
	"fmt"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// ResolutionStore implements storage.ResolutionStore using PostgreSQL.
type ResolutionStore struct {
	pool *Pool
}

// NewResolutionStore creates a new ResolutionStore.
func NewResolutionStore(pool *Pool) *ResolutionStore {
	return &ResolutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResolutionStore = (*ResolutionStore)(nil)

// Insert adds a resolution. Returns ErrDuplicateKey if condition_id exists.
func (s *ResolutionStore) Insert(ctx context.Context, r *domain.Resolution) error {
	query := `
		INSERT INTO resolutions (condition_id, payouts, resolved_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, r.ConditionID, r.Payouts, r.ResolvedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

// GetByConditionID retrieves the resolution for a condition.
// Returns ErrNotFound while the condition is unresolved.
func (s *ResolutionStore) GetByConditionID(ctx context.Context, conditionID string) (*domain.Resolution, error) {
	query := `
		SELECT condition_id, payouts, resolved_at
		FROM resolutions
		WHERE condition_id = $1
	`

	var r domain.Resolution
	err := s.pool.QueryRow(ctx, query, conditionID).Scan(&r.ConditionID, &r.Payouts, &r.ResolvedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get resolution: %w", err)
	}
	return &r, nil
}

// GetAll retrieves all known resolutions, ordered by condition_id ASC.
func (s *ResolutionStore) GetAll(ctx context.Context) ([]*domain.Resolution, error) {
	query := `
		SELECT condition_id, payouts, resolved_at
		FROM resolutions
		ORDER BY condition_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []*domain.Resolution
	for rows.Next() {
		var r domain.Resolution
		if err := rows.Scan(&r.ConditionID, &r.Payouts, &r.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan resolution row: %w", err)
		}
		resolutions = append(resolutions, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution rows: %w", err)
	}
	return resolutions, nil
}
