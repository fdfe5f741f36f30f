package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"veo-auth-service/internal/security"
	"veo-auth-service/internal/server/respond"
	sessiondomain "veo-auth-service/internal/session/domain"
)

const bearerPrefix = "bearer "

// SessionLookup is the session access the auth middleware needs to honor
// revocation: a valid signature is not enough when the session behind it
// is revoked or expired.
type SessionLookup interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// Auth validates Bearer access tokens and attaches the caller's identity to
// the request context.
type Auth struct {
	tokens   *security.TokenProvider
	sessions SessionLookup
}

// NewAuth returns the auth middleware. sessions may be nil to skip the
// revocation check (tests only).
func NewAuth(tokens *security.TokenProvider, sessions SessionLookup) *Auth {
	return &Auth{tokens: tokens, sessions: sessions}
}

// Require wraps next so it only runs for requests carrying a valid, live
// access token. Missing, malformed, expired, and revoked credentials all
// produce the same 401.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := a.resolve(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "missing or invalid authorization")
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional wraps next so identity is attached when a valid token is present
// but the request proceeds anonymously otherwise. Used by logout, which
// accepts either a refresh token in the body or an authenticated session.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, ok := a.resolve(r); ok {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) resolve(r *http.Request) (context.Context, bool) {
	token := extractBearer(r)
	if token == "" {
		return nil, false
	}
	sessionID, userID, err := a.tokens.ValidateAccess(token)
	if err != nil {
		return nil, false
	}
	if a.sessions != nil {
		sess, err := a.sessions.GetByID(r.Context(), sessionID)
		if err != nil || sess == nil || !sess.Active(time.Now().UTC()) {
			return nil, false
		}
	}
	return WithIdentity(r.Context(), userID, sessionID), true
}

// extractBearer returns the Bearer token from the Authorization header,
// or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
