package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"hazyna.org/internal/keystore"
	"hazyna.org/internal/obs"
	"hazyna.org/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/auth/logout",
	"/.well-known/jwks.json",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth verifies the bearer token on protected endpoints against this
// service's own configured audience and stores verified claims in the
// request context. Rejections are frequent, expected traffic and are logged
// only through metrics.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.TokenVerifyFailure("missing_bearer")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.verifier.Verify(r.Context(), raw, a.audience)
		if err != nil {
			obs.TokenVerifyFailure(verifyFailureReason(err))
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(token.ContextWithClaims(r.Context(), claims)))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("authorization header is required")
	}
	if !strings.HasPrefix(header, bearer) {
		return "", errors.New("authorization header must use the Bearer scheme")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearer))
	if raw == "" {
		return "", errors.New("bearer token is empty")
	}
	return raw, nil
}

func verifyFailureReason(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return "expired"
	case errors.Is(err, token.ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, token.ErrIssuerMismatch):
		return "issuer_mismatch"
	case errors.Is(err, keystore.ErrKeyNotFound):
		return "key_not_found"
	default:
		return "signature_invalid"
	}
}
