package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// RawEventStore is an in-memory implementation of storage.RawEventStore.
type RawEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RawEvent // keyed by (wallet, seq)
}

// NewRawEventStore creates a new in-memory raw event store.
func NewRawEventStore() *RawEventStore {
	return &RawEventStore{
		data: make(map[string]*domain.RawEvent),
	}
}

// eventKey generates a unique key for a raw event.
func eventKey(wallet string, seq int64) string {
	return fmt.Sprintf("%s|%d", wallet, seq)
}

// Insert adds a raw event. Returns ErrDuplicateKey if (wallet, seq) exists.
func (s *RawEventStore) Insert(_ context.Context, e *domain.RawEvent) error {
	if e == nil || e.Wallet == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey(e.Wallet, e.Seq)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.data[key] = &cp
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *RawEventStore) InsertBulk(_ context.Context, events []*domain.RawEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Wallet == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(e.Wallet, e.Seq)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		cp := *e
		s.data[eventKey(e.Wallet, e.Seq)] = &cp
	}
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by (timestamp, seq) ASC.
func (s *RawEventStore) GetByWallet(_ context.Context, wallet string) ([]*domain.RawEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawEvent
	for _, e := range s.data {
		if e.Wallet == wallet {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortEvents(result)
	return result, nil
}

// GetByWalletTimeRange retrieves events for a wallet within [start, end] (inclusive).
func (s *RawEventStore) GetByWalletTimeRange(_ context.Context, wallet string, start, end int64) ([]*domain.RawEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawEvent
	for _, e := range s.data {
		if e.Wallet == wallet && e.Timestamp >= start && e.Timestamp <= end {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortEvents(result)
	return result, nil
}

// ListWallets returns all distinct wallets with at least one event, sorted ASC.
func (s *RawEventStore) ListWallets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.data {
		seen[e.Wallet] = struct{}{}
	}

	wallets := make([]string, 0, len(seen))
	for w := range seen {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets, nil
}

func sortEvents(events []*domain.RawEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].Seq < events[j].Seq
	})
}

var _ storage.RawEventStore = (*RawEventStore)(nil)
