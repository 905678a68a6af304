package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/popcoin-idle/popcoin/internal/models"
)

// dummyHandler records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeResolver struct {
	user *models.User
	err  error
	got  string
}

func (f *fakeResolver) SessionUser(ctx context.Context, token string) (*models.User, error) {
	f.got = token
	return f.user, f.err
}

func TestSessionAuth_NoToken(t *testing.T) {
	dummy := &dummyHandler{}
	h := SessionAuth(&fakeResolver{})(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/game/state", nil)
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called without a token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestSessionAuth_InvalidSession(t *testing.T) {
	dummy := &dummyHandler{}
	h := SessionAuth(&fakeResolver{user: nil})(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/game/state", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale-token"})
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called for a stale token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestSessionAuth_ResolverError(t *testing.T) {
	dummy := &dummyHandler{}
	h := SessionAuth(&fakeResolver{err: errors.New("db down")})(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/game/state", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok"})
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestSessionAuth_ValidCookie(t *testing.T) {
	dummy := &dummyHandler{}
	resolver := &fakeResolver{user: &models.User{UID: "uid-1", Name: "Bob"}}
	h := SessionAuth(resolver)(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/game/state", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-1"})
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	if resolver.got != "tok-1" {
		t.Errorf("resolver received token %q; want %q", resolver.got, "tok-1")
	}
	user := GetUserFromContext(dummy.ctx)
	if user == nil || user.UID != "uid-1" {
		t.Errorf("context user = %+v; want uid-1", user)
	}
}

func TestSessionAuth_BearerHeader(t *testing.T) {
	dummy := &dummyHandler{}
	resolver := &fakeResolver{user: &models.User{UID: "uid-2"}}
	h := SessionAuth(resolver)(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/game/state", nil)
	req.Header.Set("Authorization", "Bearer tok-2")
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	if resolver.got != "tok-2" {
		t.Errorf("resolver received token %q; want %q", resolver.got, "tok-2")
	}
}

func TestGetUserFromContext_Empty(t *testing.T) {
	if u := GetUserFromContext(context.Background()); u != nil {
		t.Errorf("GetUserFromContext = %+v; want nil", u)
	}
}
