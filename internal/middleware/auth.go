// Package middleware provides HTTP middleware for the Scout API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Saul-Punybz/scout/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// SessionCookie is the cookie that carries the session token.
const SessionCookie = "session_token"

// SessionLookup finds and removes sessions by token.
type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// UserLookup finds users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionToken returns the session token from the session_token cookie or an
// "Authorization: Bearer" header, or "" when neither is present.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// OptionalSession returns middleware that resolves the session token, if
// any, and injects the user into the request context. Requests without a
// valid session continue as guests. Expired sessions are deleted.
func OptionalSession(sessions SessionLookup, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessions.GetByToken(r.Context(), token)
			if err != nil {
				slog.Debug("session lookup failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if session.Expired(time.Now()) {
				if err := sessions.Delete(r.Context(), session.ID); err != nil {
					slog.Warn("expired session cleanup failed", "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), session.UserID)
			if err != nil {
				slog.Error("user lookup failed for valid session", "user_id", session.UserID, "err", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser rejects requests that carry no authenticated user with 401.
// Must be placed after OptionalSession in the middleware chain.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user from the request context.
// Returns nil if no user is set (i.e., the request is unauthenticated).
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey).(*models.User)
	return u
}

// UserIDFromContext returns a pointer to the authenticated user's id, or nil
// for guests.
func UserIDFromContext(ctx context.Context) *string {
	u := UserFromContext(ctx)
	if u == nil {
		return nil
	}
	id := u.ID
	return &id
}
