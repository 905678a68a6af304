// Package http provides HTTP handlers for game state persistence.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/popcoin-idle/popcoin/internal/middleware"
	"github.com/popcoin-idle/popcoin/internal/models"
)

// GameService defines the interface for game state operations required
// by the GameHandler.
type GameService interface {
	// LoadState returns the user's state, creating defaults on first load.
	LoadState(ctx context.Context, uid string) (*models.GameState, error)
	// SaveState sanitizes and persists a client-submitted state.
	SaveState(ctx context.Context, uid string, state *models.GameState) error
	// UpgradeCatalog prices the upgrade catalog against the user's state.
	UpgradeCatalog(ctx context.Context, uid string) ([]models.UpgradeInfo, error)
	// Leaderboard returns the top lifetime earners.
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// GameHandler handles HTTP requests for loading and saving game state.
// All routes require the SessionAuth middleware.
type GameHandler struct {
	GameService GameService
}

// State handles GET /api/game/state, returning the authenticated
// player's full state.
func (h *GameHandler) State(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	state, err := h.GameService.LoadState(r.Context(), user.UID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to load state"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SaveState handles POST /api/game/state.
// The body is the full game state; the service sanitizes it before
// persisting.
func (h *GameHandler) SaveState(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var state models.GameState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "error": "invalid body",
		})
		return
	}
	if err := h.GameService.SaveState(r.Context(), user.UID, &state); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false, "error": "failed to save state",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Upgrades handles GET /api/game/upgrades, returning the catalog priced
// against the player's current state.
func (h *GameHandler) Upgrades(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	infos, err := h.GameService.UpgradeCatalog(r.Context(), user.UID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to load upgrades"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"upgrades": infos})
}

// Leaderboard handles GET /api/game/leaderboard?limit=N.
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.GameService.Leaderboard(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to load leaderboard"})
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
