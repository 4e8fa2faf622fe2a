package memory

import (
	"context"
	"sort"
	"sync"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// ResolutionStore is an in-memory implementation of storage.ResolutionStore.
type ResolutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Resolution // keyed by condition_id
}

// NewResolutionStore creates a new in-memory resolution store.
func NewResolutionStore() *ResolutionStore {
	return &ResolutionStore{
		data: make(map[string]*domain.Resolution),
	}
}

// Insert adds a resolution. Returns ErrDuplicateKey if condition_id exists.
func (s *ResolutionStore) Insert(_ context.Context, r *domain.Resolution) error {
	if r == nil || r.ConditionID == "" || len(r.Payouts) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ConditionID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ConditionID] = copyResolution(r)
	return nil
}

// GetByConditionID retrieves the resolution for a condition. Returns
// ErrNotFound while the condition is unresolved.
func (s *ResolutionStore) GetByConditionID(_ context.Context, conditionID string) (*domain.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[conditionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyResolution(r), nil
}

// GetAll retrieves all known resolutions, ordered by condition_id ASC.
func (s *ResolutionStore) GetAll(_ context.Context) ([]*domain.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Resolution, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyResolution(r))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ConditionID < result[j].ConditionID
	})
	return result, nil
}

func copyResolution(r *domain.Resolution) *domain.Resolution {
	cp := *r
	cp.Payouts = append([]float64(nil), r.Payouts...)
	return &cp
}

var _ storage.ResolutionStore = (*ResolutionStore)(nil)
