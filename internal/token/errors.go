package token

import "errors"

var (
	// ErrActorIncomplete reports issuance input missing a required field
	// (id, type or region code). Caller-correctable.
	ErrActorIncomplete = errors.New("token: actor incomplete")

	// Verification-time rejections. All of these surface to the caller as an
	// authentication rejection and are never retried.
	ErrSignatureInvalid = errors.New("token: signature invalid")
	ErrTokenExpired     = errors.New("token: expired")
	ErrIssuerMismatch   = errors.New("token: issuer mismatch")
	// ErrAudienceMismatch is the tenant-isolation boundary: a token minted
	// for one RPD audience must be rejected by every other.
	ErrAudienceMismatch = errors.New("token: audience mismatch")
)
