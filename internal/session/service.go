// Package session orchestrates the credential lifecycle: login exchanges
// account credentials for an access+refresh pair, refresh rotates the pair,
// logout revokes. The heavy lifting lives in the token, refresh and
// directory packages; this layer sequences them and emits audit events.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"hazyna.org/internal/audit"
	"hazyna.org/internal/directory"
	"hazyna.org/internal/obs"
	"hazyna.org/internal/refresh"
	"hazyna.org/internal/token"
)

// ErrUnauthorized covers every credential failure during login uniformly:
// unknown account, wrong secret, inactive account.
var ErrUnauthorized = errors.New("session: unauthorized")

// Service wires directory lookup, token issuance and refresh rotation.
type Service struct {
	directory directory.Store
	issuer    *token.Issuer
	refresh   *refresh.Manager
}

// NewService constructs a Service.
func NewService(dir directory.Store, issuer *token.Issuer, refreshMgr *refresh.Manager) *Service {
	return &Service{directory: dir, issuer: issuer, refresh: refreshMgr}
}

// Credentials is the login input.
type Credentials struct {
	ActorType token.ActorType
	Login     string
	Secret    string
	Metadata  refresh.Metadata
}

// TokenPair is the issued access and refresh pair. RefreshToken is the
// plaintext, returned exactly once.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Login authenticates the credentials and mints a fresh pair.
func (s *Service) Login(ctx context.Context, creds Credentials) (TokenPair, *token.Claims, error) {
	actor, err := s.authenticate(ctx, creds)
	if err != nil {
		return TokenPair{}, nil, err
	}

	pair, claims, err := s.mint(ctx, actor, creds.Metadata)
	if err != nil {
		return TokenPair{}, nil, err
	}
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{
		"actor":      actor.Subject(),
		"region":     actor.RegionCode,
		"expires_at": pair.AccessExpiresAt.Format(time.RFC3339),
	})
	return pair, claims, nil
}

// Refresh consumes the presented refresh token and mints a replacement pair.
// The presented token is revoked before any successor exists; a replayed
// token fails uniformly with refresh.ErrTokenInvalid.
func (s *Service) Refresh(ctx context.Context, actorType token.ActorType, actorID, refreshToken string, meta refresh.Metadata) (TokenPair, *token.Claims, error) {
	rec, err := s.refresh.VerifyAndConsume(ctx, refreshToken, actorType, actorID)
	if err != nil {
		if errors.Is(err, refresh.ErrTokenInvalid) {
			_ = audit.LogEvent(ctx, "auth.refresh.denied", map[string]any{
				"actor": actorType.String() + ":" + actorID,
			})
		}
		return TokenPair{}, nil, err
	}

	actor, err := s.loadActor(ctx, actorType, actorID)
	if err != nil {
		return TokenPair{}, nil, err
	}

	pair, claims, err := s.mint(ctx, actor, meta)
	if err != nil {
		return TokenPair{}, nil, err
	}
	_ = audit.LogEvent(ctx, "auth.refresh", map[string]any{
		"actor":    actor.Subject(),
		"rotated":  rec.ID,
		"new_pair": true,
	})
	return pair, claims, nil
}

// Logout revokes the presented refresh token. Best-effort and idempotent:
// revoke-side failures are logged, never raised to the caller.
func (s *Service) Logout(ctx context.Context, actorType token.ActorType, actorID, refreshToken string) {
	if _, err := s.refresh.VerifyAndConsume(ctx, refreshToken, actorType, actorID); err != nil && !errors.Is(err, refresh.ErrTokenInvalid) {
		obs.Log("warn", "logout revoke failed", map[string]any{
			"actor": actorType.String() + ":" + actorID,
			"error": err.Error(),
		})
		return
	}
	_ = audit.LogEvent(ctx, "auth.logout", map[string]any{
		"actor": actorType.String() + ":" + actorID,
	})
}

// RevokeAll revokes every refresh credential of an actor. Compromise
// response and forced logout.
func (s *Service) RevokeAll(ctx context.Context, actorType token.ActorType, actorID string) error {
	if err := s.refresh.RevokeAll(ctx, actorType, actorID); err != nil {
		return err
	}
	return audit.LogEvent(ctx, "auth.revoke_all", map[string]any{
		"actor": actorType.String() + ":" + actorID,
	})
}

func (s *Service) authenticate(ctx context.Context, creds Credentials) (token.Actor, error) {
	login := strings.TrimSpace(creds.Login)
	if login == "" || creds.Secret == "" || !creds.ActorType.Valid() {
		return token.Actor{}, ErrUnauthorized
	}
	switch creds.ActorType {
	case token.ActorMember:
		member, err := s.directory.FindMemberByUsername(ctx, login)
		if err != nil || !member.Active {
			return token.Actor{}, ErrUnauthorized
		}
		if err := directory.VerifySecret(member.PasswordHash, creds.Secret); err != nil {
			return token.Actor{}, ErrUnauthorized
		}
		return memberActor(member), nil
	case token.ActorClient:
		client, err := s.directory.FindClientByClientID(ctx, login)
		if err != nil || !client.Active {
			return token.Actor{}, ErrUnauthorized
		}
		if err := directory.VerifySecret(client.SecretHash, creds.Secret); err != nil {
			return token.Actor{}, ErrUnauthorized
		}
		return clientActor(client), nil
	default:
		return token.Actor{}, ErrUnauthorized
	}
}

func (s *Service) loadActor(ctx context.Context, actorType token.ActorType, actorID string) (token.Actor, error) {
	switch actorType {
	case token.ActorMember:
		member, err := s.directory.FindMemberByID(ctx, actorID)
		if err != nil || !member.Active {
			return token.Actor{}, ErrUnauthorized
		}
		return memberActor(member), nil
	case token.ActorClient:
		client, err := s.directory.FindClientByID(ctx, actorID)
		if err != nil || !client.Active {
			return token.Actor{}, ErrUnauthorized
		}
		return clientActor(client), nil
	default:
		return token.Actor{}, ErrUnauthorized
	}
}

func (s *Service) mint(ctx context.Context, actor token.Actor, meta refresh.Metadata) (TokenPair, *token.Claims, error) {
	issued, err := s.issuer.Issue(ctx, actor)
	if err != nil {
		return TokenPair{}, nil, err
	}
	plaintext, rec, err := s.refresh.Issue(ctx, actor.Type, actor.ID, meta)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return TokenPair{
		AccessToken:      issued.Token,
		RefreshToken:     plaintext,
		AccessExpiresAt:  issued.ExpiresAt,
		RefreshExpiresAt: rec.ExpiresAt,
	}, issued.Claims, nil
}

func memberActor(m *directory.Member) token.Actor {
	return token.Actor{
		ID:               m.ID,
		Type:             token.ActorMember,
		RegionCode:       m.RegionCode,
		Role:             m.RoleName,
		OrganizationCode: m.OrganizationCode,
		DisplayName:      m.FullName,
	}
}

func clientActor(c *directory.Client) token.Actor {
	return token.Actor{
		ID:               c.ID,
		Type:             token.ActorClient,
		RegionCode:       c.RegionCode,
		OrganizationCode: c.OrganizationCode,
	}
}
