package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hazyna.org/internal/keystore"
	"hazyna.org/internal/obs"
	"hazyna.org/internal/region"
	"hazyna.org/internal/tenant"
)

const defaultAccessTTL = 15 * time.Minute

// Issuer builds and signs access tokens. Compromise mitigation relies on the
// short TTL; there is no revocation list for access tokens.
type Issuer struct {
	keys      keystore.Store
	audiences *tenant.Resolver
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.accessTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer over the injected key store and audience
// resolver.
func NewIssuer(keys keystore.Store, audiences *tenant.Resolver, issuer string, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		keys:      keys,
		audiences: audiences,
		issuer:    issuer,
		accessTTL: defaultAccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issued is a signed access token with its decoded claims.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	Claims    *Claims
}

// Issue resolves the actor's audiences, obtains the current period's signing
// key and signs the token with the period id in the kid header. Resolver
// errors propagate unchanged; hierarchy cycles and unconfigured tenants are
// administrative data defects and are logged at high severity.
func (i *Issuer) Issue(ctx context.Context, actor Actor) (*Issued, error) {
	if strings.TrimSpace(actor.ID) == "" || !actor.Type.Valid() {
		return nil, fmt.Errorf("%w: id and type are required", ErrActorIncomplete)
	}
	if strings.TrimSpace(actor.RegionCode) == "" {
		return nil, fmt.Errorf("%w: region code is required", ErrActorIncomplete)
	}

	res, err := i.audiences.ResolveAudiences(ctx, actor.RegionCode)
	if err != nil {
		if errors.Is(err, region.ErrHierarchyCycle) || errors.Is(err, tenant.ErrNotConfigured) {
			obs.Log("error", "issuance blocked by administrative data defect", map[string]any{
				"actor":  actor.Subject(),
				"region": actor.RegionCode,
				"error":  err.Error(),
			})
		}
		return nil, err
	}

	now := i.now().UTC()
	period := keystore.CurrentPeriod(now)
	key, err := i.keys.EnsurePeriodKey(ctx, period)
	if err != nil {
		return nil, err
	}

	exp := now.Add(i.accessTTL)
	claims := &Claims{
		Data: i.claimData(actor, res),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   actor.Subject(),
			Audience:  jwt.ClaimStrings(res.Audiences),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = key.Period
	signed, err := tok.SignedString(key.Private)
	if err != nil {
		return nil, fmt.Errorf("token: sign: %w", err)
	}

	obs.TokenIssued(actor.Type.String())
	return &Issued{Token: signed, ExpiresAt: exp, Claims: claims}, nil
}

// claimData assembles the embedded data block. The switch is exhaustive over
// the closed actor type set; both cases currently share a shape but diverge
// in which optional attributes they carry.
func (i *Issuer) claimData(actor Actor, res tenant.Resolution) Data {
	data := Data{
		ID:       actor.ID,
		Type:     actor.Type,
		RegionID: res.TopRegion,
	}
	if res.OriginRegion != "" {
		sub := res.OriginRegion
		data.SubRegionID = &sub
	}
	if actor.OrganizationCode != "" {
		org := actor.OrganizationCode
		data.OrgID = &org
	}
	switch actor.Type {
	case ActorMember:
		if actor.Role != "" {
			role := actor.Role
			data.Role = &role
		}
		data.Name = actor.DisplayName
	case ActorClient:
		// Clients carry no role and no display name; their identity is the
		// registered client id itself.
	}
	return data
}
