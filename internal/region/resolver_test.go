package region

import (
	"context"
	"errors"
	"testing"

	"hazyna.org/internal/cache"
)

func strptr(s string) *string { return &s }

func testHierarchy() *MemStore {
	return NewMemStore(
		Region{Code: "AHAL", Active: true},
		Region{Code: "ASGABAT_CITY", ParentCode: strptr("AHAL"), Active: true},
		Region{Code: "DISTRICT_1", ParentCode: strptr("ASGABAT_CITY"), Active: true},
		Region{Code: "MARY", Active: true},
		Region{Code: "OLD_DISTRICT", ParentCode: strptr("MARY"), Active: false},
	)
}

func TestResolveTop(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(testHierarchy(), cache.NewMemory())

	cases := []struct {
		code string
		want string
	}{
		{"AHAL", "AHAL"},
		{"ASGABAT_CITY", "AHAL"},
		{"DISTRICT_1", "AHAL"},
		{"MARY", "MARY"},
	}
	for _, tc := range cases {
		got, err := r.ResolveTop(ctx, tc.code)
		if err != nil {
			t.Fatalf("ResolveTop(%s): %v", tc.code, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveTop(%s)=%s, want %s", tc.code, got, tc.want)
		}
	}
}

func TestResolveTopMissingAndInactive(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(testHierarchy(), cache.NewMemory())

	if _, err := r.ResolveTop(ctx, "NOWHERE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.ResolveTop(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty code, got %v", err)
	}
	// Inactive anywhere in the chain kills the resolution.
	if _, err := r.ResolveTop(ctx, "OLD_DISTRICT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive region, got %v", err)
	}
}

func TestResolveTopDetectsCycle(t *testing.T) {
	store := NewMemStore(
		Region{Code: "A", ParentCode: strptr("B"), Active: true},
		Region{Code: "B", ParentCode: strptr("A"), Active: true},
		Region{Code: "LEAF", ParentCode: strptr("A"), Active: true},
	)
	r := NewResolver(store, cache.NewMemory())

	if _, err := r.ResolveTop(context.Background(), "A"); !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle, got %v", err)
	}
	// Entering the cycle from outside fails identically.
	if _, err := r.ResolveTop(context.Background(), "LEAF"); !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle from leaf, got %v", err)
	}
}

func TestResolveTopSelfParentCycle(t *testing.T) {
	store := NewMemStore(Region{Code: "SELF", ParentCode: strptr("SELF"), Active: true})
	r := NewResolver(store, nil)
	if _, err := r.ResolveTop(context.Background(), "SELF"); !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle, got %v", err)
	}
}

// countingStore wraps a Store and records lookups, so tests can observe when
// the cache absorbed a resolution.
type countingStore struct {
	Store
	finds int
}

func (s *countingStore) Find(ctx context.Context, code string) (*Region, error) {
	s.finds++
	return s.Store.Find(ctx, code)
}

func TestResolveTopUsesCache(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{Store: testHierarchy()}
	r := NewResolver(counting, cache.NewMemory())

	if _, err := r.ResolveTop(ctx, "DISTRICT_1"); err != nil {
		t.Fatalf("ResolveTop: %v", err)
	}
	walked := counting.finds
	if walked == 0 {
		t.Fatal("expected the first resolution to hit the store")
	}

	if _, err := r.ResolveTop(ctx, "DISTRICT_1"); err != nil {
		t.Fatalf("ResolveTop cached: %v", err)
	}
	if counting.finds != walked {
		t.Fatalf("cached resolution hit the store: %d -> %d", walked, counting.finds)
	}

	r.Invalidate(ctx, "DISTRICT_1")
	if _, err := r.ResolveTop(ctx, "DISTRICT_1"); err != nil {
		t.Fatalf("ResolveTop after invalidate: %v", err)
	}
	if counting.finds == walked {
		t.Fatal("invalidate did not drop the cached resolution")
	}
}

func TestResolveTopErrorsNeverCached(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	r := NewResolver(store, cache.NewMemory())

	if _, err := r.ResolveTop(ctx, "LATE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// The region appears after the failed attempt; resolution must succeed
	// immediately because failures are not cached.
	store.Put(Region{Code: "LATE", Active: true})
	got, err := r.ResolveTop(ctx, "LATE")
	if err != nil || got != "LATE" {
		t.Fatalf("ResolveTop after repair = %s, %v", got, err)
	}
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{Store: testHierarchy()}
	r := NewResolver(counting, cache.NewMemory())

	for _, code := range []string{"DISTRICT_1", "MARY"} {
		if _, err := r.ResolveTop(ctx, code); err != nil {
			t.Fatalf("ResolveTop(%s): %v", code, err)
		}
	}
	before := counting.finds
	r.InvalidateAll(ctx)
	for _, code := range []string{"DISTRICT_1", "MARY"} {
		if _, err := r.ResolveTop(ctx, code); err != nil {
			t.Fatalf("ResolveTop(%s): %v", code, err)
		}
	}
	if counting.finds == before {
		t.Fatal("InvalidateAll did not flush cached resolutions")
	}
}
