package keystore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and ephemeral environments.
type MemStore struct {
	mu   sync.Mutex
	keys map[string]*Key
}

// NewMemStore returns an empty in-memory key store.
func NewMemStore() *MemStore {
	return &MemStore{keys: make(map[string]*Key)}
}

func (s *MemStore) EnsurePeriodKey(_ context.Context, period string) (*Key, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("keystore: invalid period %q", period)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[period]; ok {
		return key, nil
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	key := &Key{Period: period, Private: priv, Public: &priv.PublicKey}
	s.keys[period] = key
	return key, nil
}

func (s *MemStore) Load(_ context.Context, period string) (*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[period]
	if !ok {
		return nil, fmt.Errorf("keystore: period %s: %w", period, ErrKeyNotFound)
	}
	return key, nil
}

func (s *MemStore) ListPeriods(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	periods := make([]string, 0, len(s.keys))
	for period := range s.keys {
		periods = append(periods, period)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	return periods, nil
}
