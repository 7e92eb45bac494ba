package ledger

import (
	"context"
	"sync"
	"time"
)

// Store is the synchronous persistence collaborator behind a Ledger.
//
// SavePosition writes p with p.Version as the new version. A store must
// insert when p.Version == 1 and otherwise update only if the stored version
// is p.Version-1, returning ErrVersionConflict when it is not. Exits are
// append-only and keyed by Exit.ID.
type Store interface {
	SavePosition(ctx context.Context, p Position) error
	LoadPosition(ctx context.Context, id string) (Position, error)
	ListPositions(ctx context.Context) ([]Position, error)

	SaveCashFlow(ctx context.Context, f CashFlow) error
	ListCashFlows(ctx context.Context) ([]CashFlow, error)
}

// Locker serializes exits against the same position across processes.
// Acquire returns an unlock func that is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// MemoryStore is an in-memory Store. Positions are listed in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]Position
	order []string
	flows []CashFlow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Position)}
}

func (s *MemoryStore) SavePosition(_ context.Context, p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[p.ID]
	switch {
	case !exists && p.Version != 1:
		return ErrVersionConflict
	case exists && cur.Version != p.Version-1:
		return ErrVersionConflict
	}
	if !exists {
		s.order = append(s.order, p.ID)
	}
	// Store a copy to prevent external mutation
	s.data[p.ID] = p.clone()
	return nil
}

func (s *MemoryStore) LoadPosition(_ context.Context, id string) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	return p.clone(), nil
}

func (s *MemoryStore) ListPositions(_ context.Context) ([]Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Position, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].clone())
	}
	return out, nil
}

func (s *MemoryStore) SaveCashFlow(_ context.Context, f CashFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = append(s.flows, f)
	return nil
}

func (s *MemoryStore) ListCashFlows(_ context.Context) ([]CashFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CashFlow, len(s.flows))
	copy(out, s.flows)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
