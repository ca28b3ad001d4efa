package tenant

import (
	"context"
	"database/sql"

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

func (s *PGStore) ActiveByTopRegion(ctx context.Context, topRegionCode string) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		select code, top_region_code, audience, active
		from rpd_instances
		where top_region_code=$1 and active
		order by code
	`, topRegionCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []Instance
	for rows.Next() {
		var inst Instance
		if err := rows.Scan(&inst.Code, &inst.TopRegionCode, &inst.Audience, &inst.Active); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}
