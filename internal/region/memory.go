package region

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.RWMutex
	regions map[string]Region
}

// NewMemStore returns a store seeded with the given regions.
func NewMemStore(regions ...Region) *MemStore {
	s := &MemStore{regions: make(map[string]Region, len(regions))}
	for _, r := range regions {
		s.regions[r.Code] = r
	}
	return s
}

// Put inserts or replaces a region.
func (s *MemStore) Put(r Region) {
	s.mu.Lock()
	s.regions[r.Code] = r
	s.mu.Unlock()
}

func (s *MemStore) Find(_ context.Context, code string) (*Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	out := r
	return &out, nil
}
