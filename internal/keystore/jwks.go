package keystore

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"hazyna.org/internal/obs"
)

const defaultSetTTL = time.Hour

// JWK is the publishable representation of one period's public key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Alg string `json:"alg"`
}

// Set is the published key set document.
type Set struct {
	Keys []JWK `json:"keys"`
}

// SetBuilder builds the public key set for the current rotation window and
// caches it. Key material changes at most monthly, so the cache is
// invalidated only by TTL expiry, never by writes.
type SetBuilder struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	cached  *Set
	expires time.Time
}

// SetBuilderOption configures a SetBuilder.
type SetBuilderOption func(*SetBuilder)

// WithSetTTL overrides the cache lifetime.
func WithSetTTL(ttl time.Duration) SetBuilderOption {
	return func(b *SetBuilder) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithSetClock overrides the time source (useful for tests).
func WithSetClock(fn func() time.Time) SetBuilderOption {
	return func(b *SetBuilder) {
		if fn != nil {
			b.now = fn
		}
	}
}

// NewSetBuilder constructs a SetBuilder over the given store.
func NewSetBuilder(store Store, opts ...SetBuilderOption) *SetBuilder {
	b := &SetBuilder{store: store, ttl: defaultSetTTL, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// KeySet returns the published key set: the current period plus the previous
// two, skipping periods that have no material yet. Results are cached.
func (b *SetBuilder) KeySet(ctx context.Context) (*Set, error) {
	now := b.now()
	b.mu.Lock()
	if b.cached != nil && now.Before(b.expires) {
		set := b.cached
		b.mu.Unlock()
		return set, nil
	}
	b.mu.Unlock()

	set := &Set{Keys: make([]JWK, 0, VerifyWindow+1)}
	for _, period := range Window(now) {
		key, err := b.store.Load(ctx, period)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				obs.Log("warn", "key set: period has no key material", map[string]any{"period": period})
				continue
			}
			return nil, err
		}
		set.Keys = append(set.Keys, publicJWK(key.Period, key.Public))
	}
	obs.KeySetBuilt()

	b.mu.Lock()
	b.cached = set
	b.expires = now.Add(b.ttl)
	b.mu.Unlock()
	return set, nil
}

// PublicKey returns the verification key for kid. Periods outside the
// rolling window fail with ErrKeyNotFound even if material still exists on
// disk; retention is indefinite but exposure is bounded.
func (b *SetBuilder) PublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	if !ValidPeriod(kid) || !InWindow(kid, b.now()) {
		return nil, fmt.Errorf("keystore: kid %s outside verification window: %w", kid, ErrKeyNotFound)
	}
	key, err := b.store.Load(ctx, kid)
	if err != nil {
		return nil, err
	}
	return key.Public, nil
}

func publicJWK(period string, pub *ecdsa.PublicKey) JWK {
	size := (pub.Curve.Params().BitSize + 7) / 8
	return JWK{
		Kty: "EC",
		Use: "sig",
		Kid: period,
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, size))),
		Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, size))),
		Alg: Alg,
	}
}
