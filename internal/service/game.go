package service

import (
	"context"
	"fmt"
	"time"

	"github.com/popcoin-idle/popcoin/internal/game"
	"github.com/popcoin-idle/popcoin/internal/models"
)

// GameRepository defines the persistence operations required by the
// game service.
type GameRepository interface {
	// GetState loads a user's state, (nil, nil) if never saved.
	GetState(ctx context.Context, uid string) (*models.GameState, error)
	// SaveState upserts a user's full state.
	SaveState(ctx context.Context, uid string, state *models.GameState) error
	// Leaderboard returns the top lifetime earners.
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// GameService loads and saves game state, sanitizing everything that
// crosses the trust boundary. Clients own their in-memory state; the
// server owns what is persisted.
type GameService struct {
	repo GameRepository
	now  func() time.Time
}

// NewGameService constructs a GameService with the provided repository.
func NewGameService(repo GameRepository) *GameService {
	return &GameService{repo: repo, now: time.Now}
}

// LoadState returns the user's persisted state, or a fresh default
// state (persisted immediately) for a first-time player. Loaded states
// are normalized: missing fields take defaults, numerics are clamped,
// derived rates recomputed.
func (s *GameService) LoadState(ctx context.Context, uid string) (*models.GameState, error) {
	state, err := s.repo.GetState(ctx, uid)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	if state == nil {
		state = game.NewState(now)
		if err := s.repo.SaveState(ctx, uid, state); err != nil {
			return nil, fmt.Errorf("persist initial state: %w", err)
		}
		return state, nil
	}
	game.Normalize(state, now)
	return state, nil
}

// SaveState sanitizes and persists a client-submitted state. The save
// timestamp is stamped server-side so offline catch-up is measured from
// the last accepted save, not from whatever the client claims.
func (s *GameService) SaveState(ctx context.Context, uid string, state *models.GameState) error {
	now := s.now().Unix()
	game.Normalize(state, now)
	state.LastUpdate = now
	return s.repo.SaveState(ctx, uid, state)
}

// UpgradeCatalog prices the catalog against the user's current state.
func (s *GameService) UpgradeCatalog(ctx context.Context, uid string) ([]models.UpgradeInfo, error) {
	state, err := s.LoadState(ctx, uid)
	if err != nil {
		return nil, err
	}

	infos := make([]models.UpgradeInfo, 0, len(game.Catalog))
	for _, spec := range game.Catalog {
		var level int
		switch spec.Kind {
		case models.UpgradeClickPower:
			level = state.Upgrades.ClickPower
		case models.UpgradeAutoClickers:
			level = state.Upgrades.AutoClickers
		case models.UpgradeClickBots:
			level = state.Upgrades.ClickBots
		}
		cost := game.UpgradeCost(spec.BaseCost, level)
		infos = append(infos, models.UpgradeInfo{
			Kind:         spec.Kind,
			Description:  spec.Description,
			CurrentLevel: level,
			Cost:         cost,
			CanAfford:    state.Coins >= cost,
		})
	}
	return infos, nil
}

// Leaderboard returns the top lifetime earners.
func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.Leaderboard(ctx, limit)
}
