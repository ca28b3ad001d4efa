// Package region resolves the administrative region hierarchy. Regions form
// a forest: nodes without a parent are top regions and own the tenant (RPD)
// instances; sub-regions inherit everything from their resolved top region.
package region

import (
	"context"
	"errors"
)

// MaxDepth bounds hierarchy traversal. Real hierarchies are three or four
// levels deep; anything past this is treated as an undetected cycle.
const MaxDepth = 20

var (
	// ErrNotFound reports a missing or inactive region anywhere in the
	// ancestor chain.
	ErrNotFound = errors.New("region: not found")
	// ErrHierarchyCycle reports a region code repeating in its own ancestor
	// chain. This is a data-integrity fault: administrative data is broken
	// and the walk refuses to continue.
	ErrHierarchyCycle = errors.New("region: hierarchy cycle")
)

// Region is a node in the administrative hierarchy.
type Region struct {
	Code       string
	ParentCode *string
	Active     bool
}

// Top reports whether the region is a top-level region.
func (r Region) Top() bool { return r.ParentCode == nil }

// Store is the collaborator contract for region lookup.
type Store interface {
	Find(ctx context.Context, code string) (*Region, error)
}

// TopFinder is the optional single-query traversal some stores support
// (recursive CTE on Postgres). It must produce results identical to the
// iterative walk, including ErrHierarchyCycle and ErrNotFound.
type TopFinder interface {
	FindTop(ctx context.Context, code string) (string, error)
}
