package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/scout/internal/models"
)

type fakeSessions struct {
	sessions map[string]*models.Session
	deleted  []string
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*models.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, errors.New("not found")
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	delete(f.sessions, token)
	return nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func newFixture() (*fakeSessions, fakeUsers) {
	sessions := &fakeSessions{sessions: map[string]*models.Session{
		"good":    {ID: "good", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
		"expired": {ID: "expired", UserID: "u1", ExpiresAt: time.Now().Add(-time.Hour)},
		"orphan":  {ID: "orphan", UserID: "ghost", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	users := fakeUsers{"u1": {ID: "u1", Email: "rep@example.com"}}
	return sessions, users
}

func TestOptionalSession(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantUser bool
	}{
		{"guest", nil, false},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"}) }, true},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, true},
		{"unknown token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, false},
		{"expired", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "expired"}) }, false},
		{"missing user", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "orphan"}) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, users := newFixture()
			var seen *string
			h := OptionalSession(sessions, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			if tt.wantUser {
				require.NotNil(t, seen)
				assert.Equal(t, "u1", *seen)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestOptionalSessionDeletesExpired(t *testing.T) {
	sessions, users := newFixture()
	h := OptionalSession(sessions, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "expired"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"expired"}, sessions.deleted)
}

func TestRequireUser(t *testing.T) {
	called := false
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
	assert.False(t, called)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.True(t, called)
}

func TestSessionTokenPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-cookie", SessionToken(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", SessionToken(req))
}
