// Package tenant maps top regions to the RPD instances that accept their
// tokens. Each instance is a downstream deployment addressed by a unique
// audience string; a top region may own any number of active instances and
// sub-regions inherit all of them.
package tenant

import (
	"context"
	"errors"
)

// ErrNotConfigured reports a top region with no active RPD instance. This is
// an administrative data defect: tokens cannot be routed anywhere.
var ErrNotConfigured = errors.New("tenant: no active instance for region")

// Instance is one RPD deployment bound to a top region.
type Instance struct {
	Code          string
	TopRegionCode string
	Audience      string
	Active        bool
}

// Store is the collaborator contract for instance lookup.
type Store interface {
	ActiveByTopRegion(ctx context.Context, topRegionCode string) ([]Instance, error)
}

// Resolution is the outcome of audience resolution for an actor's region.
type Resolution struct {
	// TopRegion is the resolved top region code.
	TopRegion string `json:"top_region"`
	// OriginRegion is the actor's own region code when it differs from the
	// top region, empty otherwise.
	OriginRegion string `json:"origin_region,omitempty"`
	// Audiences is always a non-empty ordered set, even for a single
	// instance, so verification has one code path.
	Audiences []string `json:"audiences"`
}
