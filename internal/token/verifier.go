package token

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hazyna.org/internal/keystore"
)

// KeySource selects the verification key for a kid. The key set builder
// implements it with the rolling-window restriction.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error)
}

// Verifier validates access tokens against the published key set. It never
// re-derives audiences: the expected audience is the caller's own
// configuration and membership in the token's audience set is the test.
type Verifier struct {
	keys   KeySource
	issuer string
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifyClock overrides the time source (useful for tests).
func WithVerifyClock(fn func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if fn != nil {
			v.now = fn
		}
	}
}

// NewVerifier constructs a Verifier.
func NewVerifier(keys KeySource, issuer string, opts ...VerifierOption) *Verifier {
	v := &Verifier{keys: keys, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks signature, expiry, issuer and audience membership, in that
// order, and returns the decoded claims. Failures map onto the taxonomy:
// keystore.ErrKeyNotFound, ErrSignatureInvalid, ErrTokenExpired,
// ErrIssuerMismatch, ErrAudienceMismatch.
func (v *Verifier) Verify(ctx context.Context, raw, expectedAudience string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSignatureInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{keystore.Alg}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrSignatureInvalid)
		}
		return v.keys.PublicKey(ctx, kid)
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	if !strings.EqualFold(claims.Issuer, v.issuer) {
		return nil, fmt.Errorf("%w: got %q", ErrIssuerMismatch, claims.Issuer)
	}
	if !audienceContains(claims.Audience, expectedAudience) {
		return nil, fmt.Errorf("%w: token not minted for %q", ErrAudienceMismatch, expectedAudience)
	}
	if !claims.Data.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown actor type in data block", ErrSignatureInvalid)
	}
	return claims, nil
}

func audienceContains(audiences jwt.ClaimStrings, expected string) bool {
	if expected == "" {
		return false
	}
	for _, aud := range audiences {
		if aud == expected {
			return true
		}
	}
	return false
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, keystore.ErrKeyNotFound):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, ErrSignatureInvalid):
		return err
	default:
		// Malformed tokens, bad signatures and alg confusion all collapse to
		// one rejection so probing traffic learns nothing.
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
}
