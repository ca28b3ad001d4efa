package token

import (
	"fmt"
	"strings"
)

// ActorType is the closed set of credential subjects. Claim construction
// switches on it exhaustively; there is no open-ended actor kind.
type ActorType int

const (
	// ActorMember is ministry or organization staff.
	ActorMember ActorType = iota + 1
	// ActorClient is a machine integration.
	ActorClient
)

const (
	memberName = "MEMBER"
	clientName = "CLIENT"
)

// Valid reports whether t is one of the two defined actor types.
func (t ActorType) Valid() bool {
	return t == ActorMember || t == ActorClient
}

func (t ActorType) String() string {
	switch t {
	case ActorMember:
		return memberName
	case ActorClient:
		return clientName
	default:
		return fmt.Sprintf("ActorType(%d)", int(t))
	}
}

// MarshalText writes the wire name (MEMBER, CLIENT).
func (t ActorType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("token: unknown actor type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts the wire names case-insensitively.
func (t *ActorType) UnmarshalText(data []byte) error {
	parsed, err := ParseActorType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseActorType parses a wire name into an ActorType.
func ParseActorType(s string) (ActorType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case memberName:
		return ActorMember, nil
	case clientName:
		return ActorClient, nil
	default:
		return 0, fmt.Errorf("token: unknown actor type %q", s)
	}
}

// Actor is the issuance input: the authenticated identity plus the
// attributes that flow into the token's data block.
type Actor struct {
	ID               string
	Type             ActorType
	RegionCode       string
	Role             string
	OrganizationCode string
	DisplayName      string
}

// Subject returns the token subject, "{type}:{id}" lower-cased on the type.
func (a Actor) Subject() string {
	return strings.ToLower(a.Type.String()) + ":" + a.ID
}
