package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	profileentity "github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
)

// Authenticator verifies a password for an email or username.
type Authenticator interface {
	AuthenticatePassword(ctx context.Context, identifier, password string) (*entity.MinimalAuthView, error)
}

// Accounts is the account surface the handler needs; *user.UserService satisfies it.
type Accounts interface {
	Authenticator
	AccountLookup
}

type Handler struct {
	tokens   *TokenService
	auth     Authenticator
	accounts AccountLookup
	profiles ProfileLookup
	cfg      Config
	logger   *zap.SugaredLogger
}

func NewHandler(tokens *TokenService, users Accounts, profiles ProfileLookup, cfg Config, logger *zap.SugaredLogger) *Handler {
	return &Handler{tokens: tokens, auth: users, accounts: users, profiles: profiles, cfg: cfg, logger: logger}
}

// LoginRequest accepts an email or a username as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	ClientID   string `json:"client_id,omitempty"`
}

// RefreshRequest carries an opaque refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is the signed-in account and its profile; Profile is null
// when no profile row exists yet.
type SessionResponse struct {
	User    *entity.MinimalAuthView `json:"user"`
	Profile *profileentity.Profile  `json:"profile"`
}

func (h *Handler) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.CookieSecure,
		Expires:  time.Now().Add(h.cfg.AccessTTL),
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.CookieSecure,
		MaxAge:   -1,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	view, err := h.auth.AuthenticatePassword(r.Context(), req.Identifier, req.Password)
	if err != nil {
		status, msg := user.StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Warnw("login failed", "err", err)
		} else {
			h.logger.Debugw("login rejected", "err", err)
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	toks, err := h.tokens.IssueTokens(r.Context(), view, req.ClientID)
	if err != nil {
		h.logger.Warnw("issue tokens failed", "user_id", view.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	h.logger.Infow("signed in", "user_id", view.ID)
	h.setCookie(w, toks.AccessToken)
	writeJSON(w, http.StatusOK, toks)
}

// Refresh rotates a refresh token: the presented token is revoked and a new pair issued.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	row, err := h.tokens.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrInvalidRefresh) {
			h.logger.Warnw("refresh lookup failed", "err", err)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	view, err := h.accounts.GetMinimalAuthView(r.Context(), row.UserID)
	if err != nil || !view.Usable(row.Version) {
		h.logger.Debugw("stale refresh token", "user_id", row.UserID, "err", err)
		if err == nil {
			_ = h.tokens.RevokeRefreshToken(r.Context(), req.RefreshToken)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	// a token that was already rotated by a concurrent request is rejected
	if err := h.tokens.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	toks, err := h.tokens.IssueTokens(r.Context(), view, row.ClientID)
	if err != nil {
		h.logger.Warnw("issue tokens failed", "user_id", view.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed"})
		return
	}
	h.setCookie(w, toks.AccessToken)
	writeJSON(w, http.StatusOK, toks)
}

// Logout revokes the refresh token when one is given and always clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.RefreshToken != "" {
		if err := h.tokens.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil && !errors.Is(err, ErrInvalidRefresh) {
			h.logger.Warnw("revoke failed", "err", err)
		}
	}
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the caller's account view and profile. It must run behind RequireSession.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	s, ok := SessionFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	view, err := h.accounts.GetMinimalAuthView(r.Context(), s.UserID)
	if err != nil {
		h.logger.Warnw("session lookup failed", "user_id", s.UserID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session lookup failed"})
		return
	}
	out := SessionResponse{User: view}
	if p, err := h.profiles.Get(r.Context(), s.UserID); err == nil {
		out.Profile = p
	} else {
		h.logger.Debugw("no profile for session", "user_id", s.UserID, "err", err)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tokens.JWKS())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
