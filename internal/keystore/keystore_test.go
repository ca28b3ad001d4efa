package keystore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidPeriod(t *testing.T) {
	cases := map[string]bool{
		"2026-08":  true,
		"2026-01":  true,
		"2026-12":  true,
		"2026-13":  false,
		"2026-00":  false,
		"2026-8":   false,
		"202608":   false,
		"2026-08x": false,
		"":         false,
		"current":  false,
	}
	for input, expected := range cases {
		if got := ValidPeriod(input); got != expected {
			t.Fatalf("ValidPeriod(%q)=%v, want %v", input, got, expected)
		}
	}
}

func TestWindowCrossesYearBoundary(t *testing.T) {
	now := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	got := Window(now)
	want := []string{"2026-01", "2025-12", "2025-11"}
	if len(got) != len(want) {
		t.Fatalf("Window returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Window returned %v, want %v", got, want)
		}
	}
}

func TestInWindow(t *testing.T) {
	now := time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC)
	for _, period := range []string{"2026-08", "2026-07", "2026-06"} {
		if !InWindow(period, now) {
			t.Fatalf("expected %s to be inside the window", period)
		}
	}
	for _, period := range []string{"2026-05", "2026-09", "bogus"} {
		if InWindow(period, now) {
			t.Fatalf("expected %s to be outside the window", period)
		}
	}
}

func TestFSStoreEnsureIsIdempotent(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	first, err := store.EnsurePeriodKey(ctx, "2026-08")
	if err != nil {
		t.Fatalf("EnsurePeriodKey: %v", err)
	}
	second, err := store.EnsurePeriodKey(ctx, "2026-08")
	if err != nil {
		t.Fatalf("EnsurePeriodKey repeat: %v", err)
	}
	if first.Private.D.Cmp(second.Private.D) != 0 {
		t.Fatal("repeated ensure regenerated key material")
	}
}

func TestFSStoreSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	created, err := store.EnsurePeriodKey(ctx, "2026-07")
	if err != nil {
		t.Fatalf("EnsurePeriodKey: %v", err)
	}

	// A fresh store over the same directory must load identical material.
	reopened, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore reopen: %v", err)
	}
	loaded, err := reopened.Load(ctx, "2026-07")
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if created.Private.D.Cmp(loaded.Private.D) != 0 {
		t.Fatal("reloaded key differs from created key")
	}

	info, err := os.Stat(filepath.Join(dir, "2026-07", "ec_private.pem"))
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("private key mode = %o, want 600", perm)
	}
}

func TestFSStoreLoadMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if _, err := store.Load(context.Background(), "2020-01"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := store.Load(context.Background(), "not-a-period"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for malformed period, got %v", err)
	}
}

func TestFSStoreEnsureRejectsMalformedPeriod(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if _, err := store.EnsurePeriodKey(context.Background(), "2026-8"); err == nil {
		t.Fatal("expected error for malformed period")
	}
}

func TestFSStoreListPeriodsIgnoresStrays(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()
	for _, period := range []string{"2026-06", "2026-08", "2026-07"} {
		if _, err := store.EnsurePeriodKey(ctx, period); err != nil {
			t.Fatalf("EnsurePeriodKey(%s): %v", period, err)
		}
	}
	// Strays in the base directory must not surface as periods.
	if err := os.MkdirAll(filepath.Join(dir, "backup"), 0o700); err != nil {
		t.Fatalf("mkdir stray: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("keys"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	periods, err := store.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("ListPeriods: %v", err)
	}
	want := []string{"2026-08", "2026-07", "2026-06"}
	if len(periods) != len(want) {
		t.Fatalf("ListPeriods = %v, want %v", periods, want)
	}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("ListPeriods = %v, want %v", periods, want)
		}
	}
}
