package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by (wallet, token_id)
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

func positionKey(wallet, tokenID string) string {
	return fmt.Sprintf("%s|%s", wallet, tokenID)
}

// InsertBulk adds multiple positions. Fails entire batch on duplicate
// (wallet, token_id).
func (s *PositionStore) InsertBulk(_ context.Context, positions []*domain.Position) error {
	if len(positions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if p == nil || p.Wallet == "" || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		key := positionKey(p.Wallet, p.TokenID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range positions {
		s.data[positionKey(p.Wallet, p.TokenID)] = copyPosition(p)
	}
	return nil
}

// GetByWallet retrieves all positions for a wallet, ordered by token_id ASC.
func (s *PositionStore) GetByWallet(_ context.Context, wallet string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Wallet == wallet {
			result = append(result, copyPosition(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

// GetAll retrieves all positions, ordered by (wallet, token_id) ASC.
func (s *PositionStore) GetAll(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.data))
	for _, p := range s.data {
		result = append(result, copyPosition(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Wallet != result[j].Wallet {
			return result[i].Wallet < result[j].Wallet
		}
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

func copyPosition(p *domain.Position) *domain.Position {
	cp := *p
	if p.UnrealizedPnL != nil {
		v := *p.UnrealizedPnL
		cp.UnrealizedPnL = &v
	}
	cp.Flags = append([]string(nil), p.Flags...)
	return &cp
}

var _ storage.PositionStore = (*PositionStore)(nil)
