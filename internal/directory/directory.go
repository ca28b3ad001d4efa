// Package directory holds the actor accounts that authenticate against the
// credential subsystem: members (staff) and clients (machine integrations).
// Catalog administration of these records is an external concern; this
// package only reads them.
package directory

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound reports a missing account.
var ErrNotFound = errors.New("directory: not found")

// Member is a staff account.
type Member struct {
	ID               string
	Username         string
	PasswordHash     string
	RegionCode       string
	RoleName         string
	OrganizationCode string
	FullName         string
	Active           bool
}

// Client is a machine integration account.
type Client struct {
	ID               string
	ClientID         string
	SecretHash       string
	RegionCode       string
	OrganizationCode string
	Active           bool
}

// Store is the account lookup contract.
type Store interface {
	FindMemberByUsername(ctx context.Context, username string) (*Member, error)
	FindMemberByID(ctx context.Context, id string) (*Member, error)
	FindClientByClientID(ctx context.Context, clientID string) (*Client, error)
	FindClientByID(ctx context.Context, id string) (*Client, error)
}

// HashSecret hashes a password or client secret with bcrypt.
func HashSecret(secret string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("directory: secret is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret compares a plaintext secret with its stored hash.
func VerifySecret(hash, secret string) error {
	if hash == "" {
		return errors.New("directory: secret hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}
