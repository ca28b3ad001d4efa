package region

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	_ Store     = (*PGStore)(nil)
	_ TopFinder = (*PGStore)(nil)
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Find(ctx context.Context, code string) (*Region, error) {
	row := s.db.QueryRowContext(ctx,
		`select code, parent_code, active from regions where code=$1`, code)
	var (
		r      Region
		parent sql.NullString
	)
	if err := row.Scan(&r.Code, &parent, &r.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
		}
		return nil, err
	}
	if parent.Valid {
		r.ParentCode = &parent.String
	}
	return &r, nil
}

// FindTop resolves the top region in a single recursive query. The depth
// bound guards against cycles the visited-set walk would have caught; hitting
// it is reported as ErrHierarchyCycle, matching the iterative path.
func (s *PGStore) FindTop(ctx context.Context, code string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		with recursive chain as (
			select code, parent_code, active, 1 as depth
			from regions where code=$1
			union all
			select r.code, r.parent_code, r.active, c.depth+1
			from regions r
			join chain c on r.code = c.parent_code
			where c.depth < $2
		)
		select code, parent_code, active, depth from chain order by depth
	`, code, MaxDepth)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var (
		last      Region
		lastDepth int
		seen      bool
	)
	for rows.Next() {
		var (
			r      Region
			parent sql.NullString
			depth  int
		)
		if err := rows.Scan(&r.Code, &parent, &r.Active, &depth); err != nil {
			return "", err
		}
		if parent.Valid {
			r.ParentCode = &parent.String
		}
		if !r.Active {
			return "", fmt.Errorf("%w: %s is inactive", ErrNotFound, r.Code)
		}
		last, lastDepth, seen = r, depth, true
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !seen {
		return "", fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if last.Top() {
		return last.Code, nil
	}
	if lastDepth >= MaxDepth {
		return "", fmt.Errorf("%w: depth bound reached resolving %s", ErrHierarchyCycle, code)
	}
	// Chain stops at a non-top node whose parent row is missing.
	return "", fmt.Errorf("%w: %s", ErrNotFound, *last.ParentCode)
}
