package directory

import (
	"context"
	"sync"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.RWMutex
	members map[string]Member // keyed by ID
	clients map[string]Client
}

// NewMemStore returns an empty in-memory directory.
func NewMemStore() *MemStore {
	return &MemStore{
		members: make(map[string]Member),
		clients: make(map[string]Client),
	}
}

// PutMember inserts or replaces a member account.
func (s *MemStore) PutMember(m Member) {
	s.mu.Lock()
	s.members[m.ID] = m
	s.mu.Unlock()
}

// PutClient inserts or replaces a client account.
func (s *MemStore) PutClient(c Client) {
	s.mu.Lock()
	s.clients[c.ID] = c
	s.mu.Unlock()
}

func (s *MemStore) FindMemberByUsername(_ context.Context, username string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.Username == username {
			out := m
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindMemberByID(_ context.Context, id string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m
	return &out, nil
}

func (s *MemStore) FindClientByClientID(_ context.Context, clientID string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.ClientID == clientID {
			out := c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindClientByID(_ context.Context, id string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}
