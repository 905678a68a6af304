// Package http provides HTTP routing and middleware configuration
// for the PopCoin backend.
package http

import (
	"net/http"

	"github.com/popcoin-idle/popcoin/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// PopCoin API. It applies JSON content-type enforcement and request
// logging globally, and session authentication on the game routes.
//
// Parameters:
//
//	authHandler - handler for login, logout and status endpoints
//	gameHandler - handler for game state endpoints
//	sessions    - resolver backing the session-auth middleware
//	logger      - structured logger for request logging middleware
//
// Routes:
//
//	POST /api/auth/login        → authHandler.Login
//	POST /api/auth/logout       → authHandler.Logout
//	GET  /api/auth/status       → authHandler.Status
//	GET  /api/game/state        → gameHandler.State       (session required)
//	POST /api/game/state        → gameHandler.SaveState   (session required)
//	GET  /api/game/upgrades     → gameHandler.Upgrades    (session required)
//	GET  /api/game/leaderboard  → gameHandler.Leaderboard (session required)
func NewRouter(
	authHandler *AuthHandler,
	gameHandler *GameHandler,
	sessions middleware.SessionResolver,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/status", authHandler.Status)
		})

		// Protected group: requires a live backend session
		r.Route("/game", func(r chi.Router) {
			r.Use(middleware.SessionAuth(sessions))
			r.Get("/state", gameHandler.State)
			r.Post("/state", gameHandler.SaveState)
			r.Get("/upgrades", gameHandler.Upgrades)
			r.Get("/leaderboard", gameHandler.Leaderboard)
		})
	})

	return r
}
