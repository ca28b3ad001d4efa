package tenant

import (
	"context"
	"fmt"
	"time"

	"hazyna.org/internal/cache"
	"hazyna.org/internal/region"
)

const (
	defaultResolveTTL = 30 * time.Minute
	cacheKeyPrefix    = "tenant:aud:"
)

// Resolver resolves a region code (top or sub) to the audience set of its
// top region's active instances.
type Resolver struct {
	regions *region.Resolver
	store   Store
	cache   cache.Cache
	ttl     time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolveTTL overrides the per-top-region cache TTL.
func WithResolveTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewResolver constructs a Resolver. Cache may be nil.
func NewResolver(regions *region.Resolver, store Store, c cache.Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{regions: regions, store: store, cache: c, ttl: defaultResolveTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAudiences resolves the top region for regionCode and returns its
// audience set. Region resolution errors propagate unchanged; a top region
// with no active instances fails with ErrNotConfigured.
func (r *Resolver) ResolveAudiences(ctx context.Context, regionCode string) (Resolution, error) {
	top, err := r.regions.ResolveTop(ctx, regionCode)
	if err != nil {
		return Resolution{}, err
	}

	audiences, err := cache.Memoize(ctx, r.cache, cacheKeyPrefix+top, r.ttl, func(ctx context.Context) ([]string, error) {
		instances, err := r.store.ActiveByTopRegion(ctx, top)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(instances))
		for _, inst := range instances {
			if inst.Active {
				out = append(out, inst.Audience)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, top)
		}
		return out, nil
	})
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{TopRegion: top, Audiences: audiences}
	if regionCode != top {
		res.OriginRegion = regionCode
	}
	return res, nil
}

// Invalidate drops the cached audience set for a top region. Called when an
// RPD instance is added, retired or re-homed.
func (r *Resolver) Invalidate(ctx context.Context, topRegionCodes ...string) {
	if r.cache == nil || len(topRegionCodes) == 0 {
		return
	}
	keys := make([]string, len(topRegionCodes))
	for i, code := range topRegionCodes {
		keys[i] = cacheKeyPrefix + code
	}
	_ = r.cache.Delete(ctx, keys...)
}
