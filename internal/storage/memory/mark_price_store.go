package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// MarkPriceStore is an in-memory implementation of storage.MarkPriceStore.
type MarkPriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MarkPrice // keyed by (token_id, as_of)
}

// NewMarkPriceStore creates a new in-memory mark price store.
func NewMarkPriceStore() *MarkPriceStore {
	return &MarkPriceStore{
		data: make(map[string]*domain.MarkPrice),
	}
}

func markKey(tokenID string, asOf int64) string {
	return fmt.Sprintf("%s|%d", tokenID, asOf)
}

// Insert adds a mark price observation. Returns ErrDuplicateKey if
// (token_id, as_of) exists.
func (s *MarkPriceStore) Insert(_ context.Context, p *domain.MarkPrice) error {
	if p == nil || p.TokenID == "" {
		return storage.ErrInvalidInput
	}

	key := markKey(p.TokenID, p.AsOf)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *p
	s.data[key] = &cp
	return nil
}

// GetLatest retrieves the most recent mark for a token.
// Returns ErrNotFound when no mark exists.
func (s *MarkPriceStore) GetLatest(_ context.Context, tokenID string) (*domain.MarkPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MarkPrice
	for _, p := range s.data {
		if p.TokenID != tokenID {
			continue
		}
		if latest == nil || p.AsOf > latest.AsOf {
			latest = p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// GetAllLatest retrieves the most recent mark per token, ordered by token_id ASC.
func (s *MarkPriceStore) GetAllLatest(_ context.Context) ([]*domain.MarkPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*domain.MarkPrice)
	for _, p := range s.data {
		if cur, ok := latest[p.TokenID]; !ok || p.AsOf > cur.AsOf {
			latest[p.TokenID] = p
		}
	}

	result := make([]*domain.MarkPrice, 0, len(latest))
	for _, p := range latest {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

var _ storage.MarkPriceStore = (*MarkPriceStore)(nil)
