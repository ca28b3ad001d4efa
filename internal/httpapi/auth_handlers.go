package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"hazyna.org/internal/keystore"
	"hazyna.org/internal/refresh"
	"hazyna.org/internal/region"
	"hazyna.org/internal/session"
	"hazyna.org/internal/tenant"
	"hazyna.org/internal/token"
)

type loginRequest struct {
	ActorType string `json:"actor_type"`
	Login     string `json:"login"`
	Secret    string `json:"secret"`
	DeviceID  string `json:"device_id,omitempty"`
}

type refreshRequest struct {
	ActorType    string `json:"actor_type"`
	ActorID      string `json:"actor_id"`
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id,omitempty"`
}

type revokeAllRequest struct {
	ActorType string `json:"actor_type"`
	ActorID   string `json:"actor_id"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorType, err := token.ParseActorType(req.ActorType)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "actor_type must be MEMBER or CLIENT")
		return
	}

	pair, _, err := a.sessions.Login(r.Context(), session.Credentials{
		ActorType: actorType,
		Login:     strings.TrimSpace(req.Login),
		Secret:    req.Secret,
		Metadata:  requestMetadata(r, req.DeviceID),
	})
	if err != nil {
		a.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorType, err := token.ParseActorType(req.ActorType)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "actor_type must be MEMBER or CLIENT")
		return
	}

	pair, _, err := a.sessions.Refresh(r.Context(), actorType, req.ActorID, req.RefreshToken, requestMetadata(r, req.DeviceID))
	if err != nil {
		a.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorType, err := token.ParseActorType(req.ActorType)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "actor_type must be MEMBER or CLIENT")
		return
	}

	// Logout is idempotent and best-effort; it always reports success.
	a.sessions.Logout(r.Context(), actorType, req.ActorID, req.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req revokeAllRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actorType, err := token.ParseActorType(req.ActorType)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "actor_type must be MEMBER or CLIENT")
		return
	}
	if err := a.sessions.RevokeAll(r.Context(), actorType, req.ActorID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "revocation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrUnauthorized), errors.Is(err, refresh.ErrTokenInvalid):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, token.ErrActorIncomplete):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, region.ErrHierarchyCycle), errors.Is(err, tenant.ErrNotConfigured), errors.Is(err, region.ErrNotFound):
		// Administrative data defects: the account exists but its region or
		// tenant wiring is broken. Not the caller's fault.
		writeError(w, r, http.StatusServiceUnavailable, "tenant routing unavailable")
	case errors.Is(err, keystore.ErrKeyNotFound):
		writeError(w, r, http.StatusServiceUnavailable, "signing keys unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func pairResponse(pair session.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func requestMetadata(r *http.Request, deviceID string) refresh.Metadata {
	return refresh.Metadata{
		DeviceID:  strings.TrimSpace(deviceID),
		OriginIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
