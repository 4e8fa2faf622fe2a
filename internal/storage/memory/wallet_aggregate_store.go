package memory

import (
	"context"
	"sort"
	"sync"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// WalletAggregateStore is an in-memory implementation of storage.WalletAggregateStore.
type WalletAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletAggregate // keyed by wallet
}

// NewWalletAggregateStore creates a new in-memory wallet aggregate store.
func NewWalletAggregateStore() *WalletAggregateStore {
	return &WalletAggregateStore{
		data: make(map[string]*domain.WalletAggregate),
	}
}

// Insert adds an aggregate. Returns ErrDuplicateKey if wallet exists.
func (s *WalletAggregateStore) Insert(_ context.Context, a *domain.WalletAggregate) error {
	if a == nil || a.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.Wallet]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[a.Wallet] = copyAggregate(a)
	return nil
}

// InsertBulk adds multiple aggregates atomically.
func (s *WalletAggregateStore) InsertBulk(_ context.Context, aggregates []*domain.WalletAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(aggregates))
	for _, a := range aggregates {
		if a == nil || a.Wallet == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[a.Wallet]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[a.Wallet]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[a.Wallet] = struct{}{}
	}

	for _, a := range aggregates {
		s.data[a.Wallet] = copyAggregate(a)
	}
	return nil
}

// GetByWallet retrieves the aggregate for a wallet. Returns ErrNotFound if absent.
func (s *WalletAggregateStore) GetByWallet(_ context.Context, wallet string) (*domain.WalletAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAggregate(a), nil
}

// GetAll retrieves all aggregates, ordered by wallet ASC.
func (s *WalletAggregateStore) GetAll(_ context.Context) ([]*domain.WalletAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WalletAggregate, 0, len(s.data))
	for _, a := range s.data {
		result = append(result, copyAggregate(a))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Wallet < result[j].Wallet
	})
	return result, nil
}

func copyAggregate(a *domain.WalletAggregate) *domain.WalletAggregate {
	cp := *a
	if a.UnrealizedPnL != nil {
		v := *a.UnrealizedPnL
		cp.UnrealizedPnL = &v
	}
	cp.Risk = copyRisk(a.Risk)
	return &cp
}

func copyRisk(r domain.RiskMetrics) domain.RiskMetrics {
	cp := r
	cp.MeanReturn = copyFloatPtr(r.MeanReturn)
	cp.DownsideDeviation = copyFloatPtr(r.DownsideDeviation)
	cp.Sortino = copyFloatPtr(r.Sortino)
	cp.Omega = copyFloatPtr(r.Omega)
	cp.Consistency = copyFloatPtr(r.Consistency)
	return cp
}

func copyFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ storage.WalletAggregateStore = (*WalletAggregateStore)(nil)
