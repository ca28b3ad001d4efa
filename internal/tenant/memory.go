package tenant

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu        sync.RWMutex
	instances []Instance
}

// NewMemStore returns a store seeded with the given instances.
func NewMemStore(instances ...Instance) *MemStore {
	return &MemStore{instances: instances}
}

// Put appends an instance.
func (s *MemStore) Put(inst Instance) {
	s.mu.Lock()
	s.instances = append(s.instances, inst)
	s.mu.Unlock()
}

func (s *MemStore) ActiveByTopRegion(_ context.Context, topRegionCode string) ([]Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Instance
	for _, inst := range s.instances {
		if inst.TopRegionCode == topRegionCode && inst.Active {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
