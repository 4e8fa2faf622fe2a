package memory

import (
	"context"
	"sort"
	"sync"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// TokenMapStore is an in-memory implementation of storage.TokenMapStore.
type TokenMapStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenMapping // keyed by token_id
}

// NewTokenMapStore creates a new in-memory token map store.
func NewTokenMapStore() *TokenMapStore {
	return &TokenMapStore{
		data: make(map[string]*domain.TokenMapping),
	}
}

// Insert adds a mapping. Returns ErrDuplicateKey if token_id exists.
func (s *TokenMapStore) Insert(_ context.Context, m *domain.TokenMapping) error {
	if m == nil || m.TokenID == "" || m.ConditionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *m
	s.data[m.TokenID] = &cp
	return nil
}

// GetByTokenID retrieves the mapping for a token. Returns ErrNotFound for
// an unmapped token.
func (s *TokenMapStore) GetByTokenID(_ context.Context, tokenID string) (*domain.TokenMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[tokenID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// GetByConditionID retrieves all outcome-token mappings of a condition,
// ordered by outcome_index ASC.
func (s *TokenMapStore) GetByConditionID(_ context.Context, conditionID string) ([]*domain.TokenMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenMapping
	for _, m := range s.data {
		if m.ConditionID == conditionID {
			cp := *m
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OutcomeIndex < result[j].OutcomeIndex
	})
	return result, nil
}

// GetAll retrieves all mappings, ordered by token_id ASC.
func (s *TokenMapStore) GetAll(_ context.Context) ([]*domain.TokenMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenMapping, 0, len(s.data))
	for _, m := range s.data {
		cp := *m
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

var _ storage.TokenMapStore = (*TokenMapStore)(nil)
