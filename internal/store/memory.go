package store

import (
	"context"
	"sync"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]*model.Position      // posKey → position
	balances  map[string]*model.AccountBalance // userID → balance
	txLog     []model.TransactionRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]*model.Position),
		balances:  make(map[string]*model.AccountBalance),
	}
}

func posKey(userID, symbol string, asset model.AssetType) string {
	return userID + "|" + symbol + "|" + string(asset)
}

func (s *MemoryStore) GetPosition(_ context.Context, userID, symbol string, asset model.AssetType) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[posKey(userID, symbol, asset)]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []model.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			positions = append(positions, *p)
		}
	}
	return positions, nil
}

func (s *MemoryStore) UpsertPosition(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	copy := *p
	s.positions[posKey(p.UserID, p.Symbol, p.AssetType)] = &copy
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, userID, symbol string, asset model.AssetType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := posKey(userID, symbol, asset)
	if _, ok := s.positions[key]; !ok {
		return ErrNotFound
	}
	delete(s.positions, key)
	return nil
}

func (s *MemoryStore) GetBalance(_ context.Context, userID string) (*model.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *b
	return &copy, nil
}

func (s *MemoryStore) UpsertBalance(_ context.Context, b *model.AccountBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *b
	s.balances[b.UserID] = &copy
	return nil
}

func (s *MemoryStore) InsertTransaction(_ context.Context, tx *model.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txLog = append(s.txLog, *tx)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string, limit int) ([]model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []model.TransactionRecord
	// Newest first: walk the append-only log backwards.
	for i := len(s.txLog) - 1; i >= 0; i-- {
		if s.txLog[i].UserID != userID {
			continue
		}
		records = append(records, s.txLog[i])
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}
