package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Data is the embedded actor block carried in every access token.
// RegionID is always the resolved top region; SubRegionID is set only when
// the actor's own region differs from it.
type Data struct {
	ID          string    `json:"id"`
	Type        ActorType `json:"type"`
	Role        *string   `json:"role"`
	RegionID    string    `json:"region_id"`
	OrgID       *string   `json:"org_id,omitempty"`
	SubRegionID *string   `json:"sub_region_id,omitempty"`
	Name        string    `json:"name,omitempty"`
}

// Claims is the access token payload. Audience uses jwt.ClaimStrings, which
// decodes both the legacy single-string shape and the array shape; tokens
// are always issued with the array shape.
type Claims struct {
	Data Data `json:"data"`
	jwt.RegisteredClaims
}
