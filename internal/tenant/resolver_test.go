package tenant

import (
	"context"
	"errors"
	"testing"

	"hazyna.org/internal/cache"
	"hazyna.org/internal/region"
)

func strptr(s string) *string { return &s }

func testRegions() *region.Resolver {
	store := region.NewMemStore(
		region.Region{Code: "AHAL", Active: true},
		region.Region{Code: "ASGABAT_CITY", ParentCode: strptr("AHAL"), Active: true},
		region.Region{Code: "DISTRICT_1", ParentCode: strptr("ASGABAT_CITY"), Active: true},
		region.Region{Code: "BALKAN", Active: true},
	)
	return region.NewResolver(store, cache.NewMemory())
}

func TestResolveAudiencesFromSubRegion(t *testing.T) {
	ctx := context.Background()
	instances := NewMemStore(
		Instance{Code: "rpd-ahal", TopRegionCode: "AHAL", Audience: "rpd:ahal", Active: true},
	)
	r := NewResolver(testRegions(), instances, cache.NewMemory())

	res, err := r.ResolveAudiences(ctx, "DISTRICT_1")
	if err != nil {
		t.Fatalf("ResolveAudiences: %v", err)
	}
	if res.TopRegion != "AHAL" {
		t.Fatalf("TopRegion = %s, want AHAL", res.TopRegion)
	}
	if res.OriginRegion != "DISTRICT_1" {
		t.Fatalf("OriginRegion = %s, want DISTRICT_1", res.OriginRegion)
	}
	// Always a set, even with a single instance.
	if len(res.Audiences) != 1 || res.Audiences[0] != "rpd:ahal" {
		t.Fatalf("Audiences = %v", res.Audiences)
	}
}

func TestResolveAudiencesFromTopRegion(t *testing.T) {
	ctx := context.Background()
	instances := NewMemStore(
		Instance{Code: "rpd-ahal", TopRegionCode: "AHAL", Audience: "rpd:ahal", Active: true},
		Instance{Code: "rpd-ahal-dr", TopRegionCode: "AHAL", Audience: "rpd:ahal-dr", Active: true},
		Instance{Code: "rpd-ahal-old", TopRegionCode: "AHAL", Audience: "rpd:ahal-old", Active: false},
	)
	r := NewResolver(testRegions(), instances, cache.NewMemory())

	res, err := r.ResolveAudiences(ctx, "AHAL")
	if err != nil {
		t.Fatalf("ResolveAudiences: %v", err)
	}
	if res.OriginRegion != "" {
		t.Fatalf("OriginRegion should be empty for a top region, got %s", res.OriginRegion)
	}
	want := []string{"rpd:ahal", "rpd:ahal-dr"}
	if len(res.Audiences) != len(want) {
		t.Fatalf("Audiences = %v, want %v", res.Audiences, want)
	}
	for i := range want {
		if res.Audiences[i] != want[i] {
			t.Fatalf("Audiences = %v, want %v", res.Audiences, want)
		}
	}
}

func TestResolveAudiencesNotConfigured(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(testRegions(), NewMemStore(), cache.NewMemory())

	if _, err := r.ResolveAudiences(ctx, "BALKAN"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestResolveAudiencesRegionErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(testRegions(), NewMemStore(), cache.NewMemory())

	if _, err := r.ResolveAudiences(ctx, "NOWHERE"); !errors.Is(err, region.ErrNotFound) {
		t.Fatalf("expected region.ErrNotFound, got %v", err)
	}
}

func TestResolveAudiencesInvalidate(t *testing.T) {
	ctx := context.Background()
	instances := NewMemStore(
		Instance{Code: "rpd-ahal", TopRegionCode: "AHAL", Audience: "rpd:ahal", Active: true},
	)
	r := NewResolver(testRegions(), instances, cache.NewMemory())

	if _, err := r.ResolveAudiences(ctx, "AHAL"); err != nil {
		t.Fatalf("ResolveAudiences: %v", err)
	}

	// A second instance comes online; the cached set hides it until the
	// administrative action invalidates.
	instances.Put(Instance{Code: "rpd-ahal-dr", TopRegionCode: "AHAL", Audience: "rpd:ahal-dr", Active: true})
	cached, err := r.ResolveAudiences(ctx, "AHAL")
	if err != nil {
		t.Fatalf("ResolveAudiences cached: %v", err)
	}
	if len(cached.Audiences) != 1 {
		t.Fatalf("expected cached audience set, got %v", cached.Audiences)
	}

	r.Invalidate(ctx, "AHAL")
	fresh, err := r.ResolveAudiences(ctx, "AHAL")
	if err != nil {
		t.Fatalf("ResolveAudiences after invalidate: %v", err)
	}
	if len(fresh.Audiences) != 2 {
		t.Fatalf("expected refreshed audience set, got %v", fresh.Audiences)
	}
}

func TestResolveAudiencesErrorNotCached(t *testing.T) {
	ctx := context.Background()
	instances := NewMemStore()
	r := NewResolver(testRegions(), instances, cache.NewMemory())

	if _, err := r.ResolveAudiences(ctx, "AHAL"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	// Instance appears; no invalidation needed because failures are never
	// cached.
	instances.Put(Instance{Code: "rpd-ahal", TopRegionCode: "AHAL", Audience: "rpd:ahal", Active: true})
	res, err := r.ResolveAudiences(ctx, "AHAL")
	if err != nil {
		t.Fatalf("ResolveAudiences after repair: %v", err)
	}
	if len(res.Audiences) != 1 || res.Audiences[0] != "rpd:ahal" {
		t.Fatalf("Audiences = %v", res.Audiences)
	}
}
