package directory

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"
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

const memberColumns = `id, username, password_hash, region_code,
	coalesce(role_name,''), coalesce(organization_code,''), coalesce(full_name,''), active`

func (s *PGStore) FindMemberByUsername(ctx context.Context, username string) (*Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx,
		`select `+memberColumns+` from members where username=$1`, username))
}

func (s *PGStore) FindMemberByID(ctx context.Context, id string) (*Member, error) {
	return s.scanMember(s.db.QueryRowContext(ctx,
		`select `+memberColumns+` from members where id=$1`, id))
}

func (s *PGStore) scanMember(row *sql.Row) (*Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.Username, &m.PasswordHash, &m.RegionCode,
		&m.RoleName, &m.OrganizationCode, &m.FullName, &m.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

const clientColumns = `id, client_id, secret_hash, region_code, coalesce(organization_code,''), active`

func (s *PGStore) FindClientByClientID(ctx context.Context, clientID string) (*Client, error) {
	return s.scanClient(s.db.QueryRowContext(ctx,
		`select `+clientColumns+` from clients where client_id=$1`, clientID))
}

func (s *PGStore) FindClientByID(ctx context.Context, id string) (*Client, error) {
	return s.scanClient(s.db.QueryRowContext(ctx,
		`select `+clientColumns+` from clients where id=$1`, id))
}

func (s *PGStore) scanClient(row *sql.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.ClientID, &c.SecretHash, &c.RegionCode,
		&c.OrganizationCode, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
