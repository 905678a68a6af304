// Package http provides HTTP handlers for authentication and game
// state endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/popcoin-idle/popcoin/internal/middleware"
	"github.com/popcoin-idle/popcoin/internal/models"
	"github.com/popcoin-idle/popcoin/internal/service"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Login exchanges an identity token for a user and a session token.
	Login(ctx context.Context, token string) (*models.User, string, error)
	// SessionUser resolves a session token, (nil, nil) if invalid.
	SessionUser(ctx context.Context, token string) (*models.User, error)
	// Logout invalidates a session token.
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles HTTP requests for login, logout and session status.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// LoginRequest represents the JSON payload for the login exchange.
type LoginRequest struct {
	// Token is the identity-provider credential to exchange.
	Token string `json:"token"`
}

// Login handles POST /api/auth/login.
// It expects a JSON body with a non-empty "token" field, verifies the
// credential through the auth service and, on success, sets the session
// cookie and returns the backend-confirmed user profile. The backend is
// the sole authority on whether the login succeeds: a rejected
// credential yields 401 and no session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "error": "token required",
		})
		return
	}

	user, session, err := h.AuthService.Login(r.Context(), req.Token)
	if errors.Is(err, service.ErrInvalidCredential) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "error": "invalid token",
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false, "error": "internal error",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session,
		Path:     "/",
		Expires:  time.Now().Add(service.DefaultSessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "user": user,
	})
}

// Logout handles POST /api/auth/logout.
// Session deletion is best-effort: the cookie is cleared and success
// reported even if the token was already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		_ = h.AuthService.Logout(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Status handles GET /api/auth/status.
// Used for cold-start session recovery: reports whether the request
// carries a live backend session and, if so, the user behind it.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	user, err := h.AuthService.SessionUser(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"authenticated": false, "error": "internal error",
		})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true, "user": user,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
