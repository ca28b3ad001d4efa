package refresh

import (
	"context"
	"sort"
	"sync"
	"time"

	"hazyna.org/internal/token"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewMemStore returns an empty in-memory refresh token store.
func NewMemStore() *MemStore {
	return &MemStore{tokens: make(map[string]*Token)}
}

func (s *MemStore) Create(_ context.Context, tok *Token) error {
	s.mu.Lock()
	copied := *tok
	s.tokens[tok.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *MemStore) RecentActive(_ context.Context, actorType token.ActorType, actorID string, limit int, now time.Time) ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Token
	for _, t := range s.tokens {
		if t.ActorType == actorType && t.ActorID == actorID && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Revoke(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	revoked := at
	t.RevokedAt = &revoked
	return true, nil
}

func (s *MemStore) RevokeAll(_ context.Context, actorType token.ActorType, actorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ActorType == actorType && t.ActorID == actorID && t.RevokedAt == nil {
			revoked := at
			t.RevokedAt = &revoked
		}
	}
	return nil
}
