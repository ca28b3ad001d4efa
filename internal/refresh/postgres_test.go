package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"hazyna.org/internal/token"
)

func TestPGStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	rec := &Token{
		ID:        "01J5TESTULID0000000000000X",
		ActorType: token.ActorMember,
		ActorID:   "m-42",
		TokenHash: "deadbeef",
		Salt:      "cafe",
		ExpiresAt: now.Add(14 * 24 * time.Hour),
		CreatedAt: now,
	}
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(rec.ID, "MEMBER", "m-42", "deadbeef", "cafe", "", "", "", rec.ExpiresAt, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreRecentActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select id, actor_type, actor_id, token_hash, salt").
		WithArgs("MEMBER", "m-42", now, 20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "actor_type", "actor_id", "token_hash", "salt",
			"device_id", "origin_ip", "user_agent", "expires_at", "created_at",
		}).
			AddRow("tok-2", "MEMBER", "m-42", "hash2", "salt2", "", "10.0.0.2", "", now.Add(time.Hour), now).
			AddRow("tok-1", "MEMBER", "m-42", "hash1", "salt1", "dev-1", "10.0.0.1", "curl", now.Add(time.Hour), now.Add(-time.Minute)))

	store := NewPGStore(db)
	tokens, err := store.RecentActive(context.Background(), token.ActorMember, "m-42", 20, now)
	if err != nil {
		t.Fatalf("RecentActive: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].ID != "tok-2" || tokens[0].ActorType != token.ActorMember {
		t.Fatalf("unexpected first token: %+v", tokens[0])
	}
	if tokens[1].DeviceID != "dev-1" || tokens[1].UserAgent != "curl" {
		t.Fatalf("metadata not scanned: %+v", tokens[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreRevokeWinsAndLoses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	// First caller transitions the row.
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("tok-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second caller finds the guard predicate already false.
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("tok-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	won, err := store.Revoke(context.Background(), "tok-1", at)
	if err != nil || !won {
		t.Fatalf("first Revoke = %v, %v; want won", won, err)
	}
	won, err = store.Revoke(context.Background(), "tok-1", at)
	if err != nil || won {
		t.Fatalf("second Revoke = %v, %v; want lost", won, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreRevokeAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("CLIENT", "c-1", at).
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewPGStore(db)
	if err := store.RevokeAll(context.Background(), token.ActorClient, "c-1", at); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
