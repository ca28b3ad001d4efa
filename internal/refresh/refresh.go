// Package refresh persists, verifies, rotates and revokes long-lived refresh
// credentials. The plaintext value leaves the process exactly once, at
// issuance; only a salted hash is stored. Verification deliberately scans a
// bounded window of the actor's most recent active rows instead of indexing
// by value, keeping the stored token fully opaque while bounding worst-case
// cost.
package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"hazyna.org/internal/ids"
	"hazyna.org/internal/obs"
	"hazyna.org/internal/token"
)

const (
	defaultTTL    = 14 * 24 * time.Hour
	defaultWindow = 20

	secretBytes = 32
	saltBytes   = 16
)

// ErrTokenInvalid covers not-found, expired and already-revoked uniformly so
// a failed refresh leaks nothing about why it failed.
var ErrTokenInvalid = errors.New("refresh: invalid token")

// Token is one persisted refresh credential. Rows are never hard-deleted by
// this subsystem; revocation sets RevokedAt.
type Token struct {
	ID        string
	ActorType token.ActorType
	ActorID   string
	TokenHash string
	Salt      string
	DeviceID  string
	OriginIP  string
	UserAgent string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Metadata is the optional device context captured at issuance.
type Metadata struct {
	DeviceID  string
	OriginIP  string
	UserAgent string
}

// Store is the persistence contract. Revoke must be conditional on the row
// still being active and report whether this caller performed the
// transition; that single guarantee is what prevents refresh-token forks.
type Store interface {
	Create(ctx context.Context, tok *Token) error
	RecentActive(ctx context.Context, actorType token.ActorType, actorID string, limit int, now time.Time) ([]Token, error)
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
	RevokeAll(ctx context.Context, actorType token.ActorType, actorID string, at time.Time) error
}

// Manager implements the refresh credential lifecycle over a Store.
type Manager struct {
	store  Store
	ttl    time.Duration
	window int
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the refresh token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithWindow overrides the candidate window size for verification.
func WithWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, ttl: defaultTTL, window: defaultWindow, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue mints a new refresh credential for the actor and returns the
// plaintext, which is never retrievable again.
func (m *Manager) Issue(ctx context.Context, actorType token.ActorType, actorID string, meta Metadata) (string, *Token, error) {
	if !actorType.Valid() || actorID == "" {
		return "", nil, fmt.Errorf("refresh: actor type and id are required")
	}
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, err
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", nil, err
	}
	plaintext := base64.RawURLEncoding.EncodeToString(secret)
	saltHex := hex.EncodeToString(salt)

	now := m.now().UTC()
	rec := &Token{
		ID:        ids.New(),
		ActorType: actorType,
		ActorID:   actorID,
		TokenHash: hashToken(saltHex, plaintext),
		Salt:      saltHex,
		DeviceID:  meta.DeviceID,
		OriginIP:  meta.OriginIP,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return "", nil, err
	}
	return plaintext, rec, nil
}

// VerifyAndConsume matches the presented plaintext against the actor's
// recent active rows and revokes the matching row before returning it.
// If concurrent requests present the same token, exactly one wins the
// revoke transition; the rest fail with ErrTokenInvalid.
func (m *Manager) VerifyAndConsume(ctx context.Context, plaintext string, actorType token.ActorType, actorID string) (*Token, error) {
	if plaintext == "" || !actorType.Valid() || actorID == "" {
		return nil, ErrTokenInvalid
	}
	now := m.now().UTC()
	candidates, err := m.store.RecentActive(ctx, actorType, actorID, m.window, now)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := &candidates[i]
		if !matchesHash(c.Salt, c.TokenHash, plaintext) {
			continue
		}
		// Revoke before the caller mints a successor: rotation-on-use.
		won, err := m.store.Revoke(ctx, c.ID, now)
		if err != nil {
			return nil, err
		}
		if !won {
			obs.RefreshReuseRejected()
			obs.Log("warn", "refresh token replay rejected", map[string]any{
				"token_id": c.ID,
				"actor":    actorType.String() + ":" + actorID,
			})
			return nil, ErrTokenInvalid
		}
		revoked := now
		c.RevokedAt = &revoked
		return c, nil
	}
	return nil, ErrTokenInvalid
}

// Revoke marks a single row revoked. Idempotent: revoking an already-revoked
// row is not an error.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := m.store.Revoke(ctx, id, m.now().UTC())
	return err
}

// RevokeAll revokes every active refresh credential for the actor. Used on
// forced logout and compromise response.
func (m *Manager) RevokeAll(ctx context.Context, actorType token.ActorType, actorID string) error {
	return m.store.RevokeAll(ctx, actorType, actorID, m.now().UTC())
}

func hashToken(saltHex, plaintext string) string {
	sum := sha256.Sum256([]byte(saltHex + plaintext))
	return hex.EncodeToString(sum[:])
}

func matchesHash(saltHex, expectedHash, plaintext string) bool {
	actual := hashToken(saltHex, plaintext)
	if len(actual) != len(expectedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}
