package region

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hazyna.org/internal/cache"
)

const (
	defaultResolveTTL = time.Hour
	cacheKeyPrefix    = "region:top:"
)

// Resolver resolves a region code to its top region with a cache in front of
// the authoritative store.
type Resolver struct {
	store Store
	cache cache.Cache
	ttl   time.Duration

	// useStoreTraversal switches the loader to the store's recursive query
	// when the store supports one.
	useStoreTraversal bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolveTTL overrides the cache TTL for resolved top regions.
func WithResolveTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithStoreTraversal prefers the store's single-query traversal (TopFinder)
// over the iterative walk. Purely a performance alternative.
func WithStoreTraversal() ResolverOption {
	return func(r *Resolver) { r.useStoreTraversal = true }
}

// NewResolver constructs a Resolver. Cache may be nil, in which case every
// resolution hits the store.
func NewResolver(store Store, c cache.Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, cache: c, ttl: defaultResolveTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTop walks the parent chain from code to its top region and returns
// the top region's code. Missing or inactive links fail with ErrNotFound; a
// repeated code fails with ErrHierarchyCycle. Resolution errors are never
// cached.
func (r *Resolver) ResolveTop(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: empty region code", ErrNotFound)
	}
	return cache.Memoize(ctx, r.cache, cacheKeyPrefix+code, r.ttl, func(ctx context.Context) (string, error) {
		if r.useStoreTraversal {
			if tf, ok := r.store.(TopFinder); ok {
				return tf.FindTop(ctx, code)
			}
		}
		return r.walk(ctx, code)
	})
}

// walk follows parent_code links, keeping a visited set so a cycle fails
// fast instead of looping.
func (r *Resolver) walk(ctx context.Context, code string) (string, error) {
	visited := make(map[string]struct{}, 4)
	current := code
	for {
		if _, seen := visited[current]; seen {
			return "", fmt.Errorf("%w: %s repeats in ancestor chain of %s", ErrHierarchyCycle, current, code)
		}
		visited[current] = struct{}{}

		rec, err := r.store.Find(ctx, current)
		if err != nil {
			return "", err
		}
		if !rec.Active {
			return "", fmt.Errorf("%w: %s is inactive", ErrNotFound, current)
		}
		if rec.Top() {
			return rec.Code, nil
		}
		current = *rec.ParentCode
	}
}

// Invalidate drops cached resolutions for the given codes. Called when an
// administrative action changes hierarchy-affecting data.
func (r *Resolver) Invalidate(ctx context.Context, codes ...string) {
	if r.cache == nil || len(codes) == 0 {
		return
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = cacheKeyPrefix + code
	}
	_ = r.cache.Delete(ctx, keys...)
}

// InvalidateAll drops every cached resolution. Used when a hierarchy change
// may affect descendants that were resolved through the changed node.
func (r *Resolver) InvalidateAll(ctx context.Context) {
	if r.cache == nil {
		return
	}
	_ = r.cache.DeletePattern(ctx, cacheKeyPrefix+"*")
}
