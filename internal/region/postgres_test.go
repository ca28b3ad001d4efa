package region

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select code, parent_code, active from regions").
		WithArgs("ASGABAT_CITY").
		WillReturnRows(sqlmock.NewRows([]string{"code", "parent_code", "active"}).
			AddRow("ASGABAT_CITY", "AHAL", true))

	store := NewPGStore(db)
	got, err := store.Find(context.Background(), "ASGABAT_CITY")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Code != "ASGABAT_CITY" || got.ParentCode == nil || *got.ParentCode != "AHAL" || !got.Active {
		t.Fatalf("unexpected region: %+v", got)
	}
	if got.Top() {
		t.Fatal("sub-region reported as top")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select code, parent_code, active from regions").
		WithArgs("NOWHERE").
		WillReturnRows(sqlmock.NewRows([]string{"code", "parent_code", "active"}))

	store := NewPGStore(db)
	if _, err := store.Find(context.Background(), "NOWHERE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreFindTop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("with recursive chain").
		WithArgs("DISTRICT_1", MaxDepth).
		WillReturnRows(sqlmock.NewRows([]string{"code", "parent_code", "active", "depth"}).
			AddRow("DISTRICT_1", "ASGABAT_CITY", true, 1).
			AddRow("ASGABAT_CITY", "AHAL", true, 2).
			AddRow("AHAL", nil, true, 3))

	store := NewPGStore(db)
	top, err := store.FindTop(context.Background(), "DISTRICT_1")
	if err != nil {
		t.Fatalf("FindTop: %v", err)
	}
	if top != "AHAL" {
		t.Fatalf("FindTop = %s, want AHAL", top)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindTopInactiveAncestor(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("with recursive chain").
		WithArgs("DISTRICT_1", MaxDepth).
		WillReturnRows(sqlmock.NewRows([]string{"code", "parent_code", "active", "depth"}).
			AddRow("DISTRICT_1", "ASGABAT_CITY", true, 1).
			AddRow("ASGABAT_CITY", "AHAL", false, 2))

	store := NewPGStore(db)
	if _, err := store.FindTop(context.Background(), "DISTRICT_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive ancestor, got %v", err)
	}
}

func TestPGStoreFindTopCycleHitsDepthBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// A two-node cycle keeps the CTE expanding until the depth bound; the
	// final row is never a top region.
	rows := sqlmock.NewRows([]string{"code", "parent_code", "active", "depth"})
	for depth := 1; depth <= MaxDepth; depth++ {
		if depth%2 == 1 {
			rows.AddRow("A", "B", true, depth)
		} else {
			rows.AddRow("B", "A", true, depth)
		}
	}
	mock.ExpectQuery("with recursive chain").
		WithArgs("A", MaxDepth).
		WillReturnRows(rows)

	store := NewPGStore(db)
	if _, err := store.FindTop(context.Background(), "A"); !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle, got %v", err)
	}
}

func TestPGStoreFindTopBrokenChain(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// Parent row deleted out from under the chain.
	mock.ExpectQuery("with recursive chain").
		WithArgs("DISTRICT_1", MaxDepth).
		WillReturnRows(sqlmock.NewRows([]string{"code", "parent_code", "active", "depth"}).
			AddRow("DISTRICT_1", "GONE", true, 1))

	store := NewPGStore(db)
	if _, err := store.FindTop(context.Background(), "DISTRICT_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for broken chain, got %v", err)
	}
}
