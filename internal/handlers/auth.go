package handlers

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Saul-Punybz/scout/internal/middleware"
	"github.com/Saul-Punybz/scout/internal/models"
)

// Sessions live for 30 days; the cleanup worker removes them afterwards.
const sessionTTL = 30 * 24 * time.Hour

var errBadCredentials = errors.New("auth: invalid credentials")

// UserFinder looks up accounts by email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionWriter creates and revokes session rows.
type SessionWriter interface {
	Create(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, token string) error
}

// AuthHandler issues and revokes the sessions that scope /history and
// /conversations to a user.
type AuthHandler struct {
	Users    UserFinder
	Sessions SessionWriter
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse carries the token for bearer clients; browsers use the
// cookie set alongside it.
type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.authenticate(r.Context(), in)
	switch {
	case errors.Is(err, errBadCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case err != nil:
		slog.Error("login", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	session, err := h.issueSession(r.Context(), user.ID)
	if err != nil {
		slog.Error("login", "user_id", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, session.ID, session.ExpiresAt)
	slog.Info("login", "user_id", user.ID)

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

// Logout handles POST /auth/logout. It succeeds with or without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.Sessions.Delete(r.Context(), token); err != nil {
			slog.Warn("logout: revoke session", "err", err)
		}
	}
	setSessionCookie(w, "", time.Time{})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// authenticate returns errBadCredentials for an unknown email or a wrong
// password; other errors are store failures.
func (h *AuthHandler) authenticate(ctx context.Context, in credentials) (*models.User, error) {
	user, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, errBadCredentials
	}
	return user, nil
}

func (h *AuthHandler) issueSession(ctx context.Context, userID string) (*models.Session, error) {
	session := &models.Session{
		ID:        rand.Text(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
	}
	if err := h.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return session, nil
}

// setSessionCookie writes the session cookie; an empty token clears it.
func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	maxAge := -1
	if token != "" {
		maxAge = int(time.Until(expires).Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
