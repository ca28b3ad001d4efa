package refresh

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"hazyna.org/internal/token"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, tok *Token) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens
			(id, actor_type, actor_id, token_hash, salt, device_id, origin_ip, user_agent, expires_at, created_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),nullif($7,''),nullif($8,''),$9,$10)
	`, tok.ID, tok.ActorType.String(), tok.ActorID, tok.TokenHash, tok.Salt,
		tok.DeviceID, tok.OriginIP, tok.UserAgent, tok.ExpiresAt, tok.CreatedAt)
	return err
}

func (s *PGStore) RecentActive(ctx context.Context, actorType token.ActorType, actorID string, limit int, now time.Time) ([]Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, actor_type, actor_id, token_hash, salt,
		       coalesce(device_id,''), coalesce(origin_ip,''), coalesce(user_agent,''),
		       expires_at, created_at
		from refresh_tokens
		where actor_type=$1 and actor_id=$2 and revoked_at is null and expires_at > $3
		order by created_at desc
		limit $4
	`, actorType.String(), actorID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		var (
			t       Token
			actType string
		)
		if err := rows.Scan(&t.ID, &actType, &t.ActorID, &t.TokenHash, &t.Salt,
			&t.DeviceID, &t.OriginIP, &t.UserAgent, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := token.ParseActorType(actType)
		if err != nil {
			return nil, err
		}
		t.ActorType = parsed
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Revoke transitions a row from active to revoked. The revoked_at guard in
// the predicate makes the transition exclusive: a second caller updates
// zero rows and is told it lost.
func (s *PGStore) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at=$2 where id=$1 and revoked_at is null`, id, at)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *PGStore) RevokeAll(ctx context.Context, actorType token.ActorType, actorID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked_at=$3
		where actor_type=$1 and actor_id=$2 and revoked_at is null
	`, actorType.String(), actorID, at)
	return err
}
