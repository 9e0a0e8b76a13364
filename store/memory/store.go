// Package memory provides an in-memory Store used by tests and local
// development. All operations are guarded by a single mutex, which trivially
// gives the per-record atomicity the Store contract asks for.
package memory

import (
	"context"
	"sync"

	"toolcrib"
	"toolcrib/holding"
	"toolcrib/hwset"
	"toolcrib/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Hardware set storage, keyed by set name
	sets map[string]*hwset.Set

	// Holding storage, keyed by (projectID, setName)
	holdings map[holdingKey]int
}

type holdingKey struct {
	ProjectID string
	SetName   string
}

func New() *Store {
	return &Store{
		sets:     make(map[string]*hwset.Set),
		holdings: make(map[holdingKey]int),
	}
}

// Hardware set methods

func (s *Store) CreateSet(_ context.Context, set *hwset.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sets[set.Name]; exists {
		return toolcrib.ErrSetExists
	}
	cp := *set
	s.sets[set.Name] = &cp
	return nil
}

func (s *Store) GetSet(_ context.Context, name string) (*hwset.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[name]
	if !ok {
		return nil, toolcrib.ErrSetNotFound
	}
	cp := *set
	return &cp, nil
}

func (s *Store) ListSetNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	return names, nil
}

func (s *Store) AdjustAvailability(_ context.Context, name string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[name]
	if !ok {
		return toolcrib.ErrSetNotFound
	}
	next := set.Availability + delta
	if next < 0 || next > set.Capacity {
		return toolcrib.ErrAvailabilityRange
	}
	set.Availability = next
	return nil
}

func (s *Store) Reserve(_ context.Context, name string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[name]
	if !ok {
		return toolcrib.ErrSetNotFound
	}
	if set.Availability < amount {
		return toolcrib.ErrInsufficientAvailability
	}
	set.Availability -= amount
	return nil
}

// Holding methods

func (s *Store) HoldingQuantity(_ context.Context, projectID, setName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.holdings[holdingKey{projectID, setName}], nil
}

func (s *Store) ApplyHoldingDelta(_ context.Context, projectID, setName string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{projectID, setName}
	q, exists := s.holdings[key]
	if !exists && delta <= 0 {
		return toolcrib.ErrHoldingRange
	}

	next := q + delta
	switch {
	case next < 0:
		return toolcrib.ErrHoldingRange
	case next == 0:
		delete(s.holdings, key)
	default:
		s.holdings[key] = next
	}
	return nil
}

func (s *Store) ListHoldings(_ context.Context, projectID string) ([]holding.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []holding.Holding{}
	for key, q := range s.holdings {
		if key.ProjectID == projectID {
			out = append(out, holding.Holding{ProjectID: key.ProjectID, SetName: key.SetName, Quantity: q})
		}
	}
	return out, nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
