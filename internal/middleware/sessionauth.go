// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/popcoin-idle/popcoin/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// SessionCookie is the cookie carrying the backend session token.
const SessionCookie = "popcoin_session"

// SessionResolver resolves a session token to its user. A (nil, nil)
// return means the token is unknown or expired.
type SessionResolver interface {
	SessionUser(ctx context.Context, token string) (*models.User, error)
}

// SessionToken extracts the session token from the request: the session
// cookie first, then an Authorization bearer header. Empty if absent.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SessionAuth enforces a valid backend session.
//
// It resolves the request's session token through the resolver and, on
// success, stores the user in the request context for downstream
// handlers. Requests without a valid session get 401: the client must
// treat that as a forced logout.
func SessionAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				http.Error(w, "no session", http.StatusUnauthorized)
				return
			}
			user, err := resolver.SessionUser(r.Context(), token)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext extracts the authenticated user stored by
// SessionAuth. Returns nil if the request was not authenticated.
func GetUserFromContext(ctx context.Context) *models.User {
	val := ctx.Value(userKey)
	if u, ok := val.(*models.User); ok {
		return u
	}
	return nil
}
