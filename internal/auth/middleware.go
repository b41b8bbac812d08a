package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	profileentity "github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
)

// AccountLookup resolves the current auth view of an account.
type AccountLookup interface {
	GetMinimalAuthView(ctx context.Context, id string) (*entity.MinimalAuthView, error)
}

// ProfileLookup resolves the profile that belongs to an account.
type ProfileLookup interface {
	Get(ctx context.Context, id string) (*profileentity.Profile, error)
}

var ErrForbidden = errors.New("forbidden")

// Session is the authenticated caller attached to a request context.
type Session struct {
	UserID  string
	Version int64
	Email   string
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// bearerToken extracts the access token from the Authorization header or the cookie.
func bearerToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without a valid access token. Tokens whose
// version no longer matches the account, or whose account is not active, are
// treated as revoked.
func RequireSession(tokens *TokenService, accounts AccountLookup, cookieName string, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r, cookieName)
			if raw == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
				return
			}
			claims, err := tokens.ParseAccess(raw)
			if err != nil {
				logger.Debugw("rejected access token", "err", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			view, err := accounts.GetMinimalAuthView(r.Context(), claims.Subject)
			if err != nil || !view.Usable(claims.Version) {
				logger.Debugw("stale access token", "sub", claims.Subject, "err", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			s := Session{UserID: claims.Subject, Version: claims.Version, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireSuperUser only lets through callers whose profile is a verified super user.
// It must run after RequireSession.
func RequireSuperUser(profiles ProfileLookup, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
				return
			}
			p, err := profiles.Get(r.Context(), s.UserID)
			if err != nil || !p.IsSuperUser() {
				logger.Infow("super user check failed", "user_id", s.UserID, "err", err)
				writeJSON(w, http.StatusForbidden, map[string]string{"error": ErrForbidden.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
