// Package models defines the core data structures for users and game state.
package models

// User is the backend-confirmed profile of a signed-in player.
type User struct {
	// UID is the identity-provider account identifier.
	UID string `json:"uid"`
	// Email is the account email address.
	Email string `json:"email"`
	// Name is the display name, possibly enriched by the backend.
	Name string `json:"name"`
	// Picture is the avatar URL, if any.
	Picture string `json:"picture,omitempty"`
}

// Upgrades holds the purchased level of each upgrade kind.
type Upgrades struct {
	// ClickPower raises coins earned per click by one per level.
	ClickPower int `json:"click_power"`
	// AutoClickers generate passive income at a small per-level rate.
	AutoClickers int `json:"auto_clickers"`
	// ClickBots generate passive income at a larger per-level rate.
	ClickBots int `json:"click_bots"`
}

// Total returns the sum of all upgrade levels.
func (u Upgrades) Total() int {
	return u.ClickPower + u.AutoClickers + u.ClickBots
}

// GameState is the full persisted state of one player's game.
// All mutation goes through internal/game rules so the invariants
// (coins never negative, rates derived from upgrades, totalCoins
// monotonic) hold after every operation.
type GameState struct {
	// Coins is the spendable balance. Fractional: passive income
	// accrues in sub-coin increments between saves.
	Coins float64 `json:"coins"`
	// TotalCoins is lifetime earnings. Never decreases, survives prestige.
	TotalCoins float64 `json:"total_coins"`
	// CoinsPerClick is derived: 1 + ClickPower level + PrestigeBonus.
	CoinsPerClick int `json:"coins_per_click"`
	// CoinsPerSecond is derived from AutoClickers and ClickBots levels.
	CoinsPerSecond float64 `json:"coins_per_second"`
	// PrestigeLevel counts completed prestige resets.
	PrestigeLevel int `json:"prestige_level"`
	// PrestigeBonus is the permanent per-click bonus granted by the
	// most recent prestige.
	PrestigeBonus int `json:"prestige_bonus"`
	// Upgrades holds current upgrade levels.
	Upgrades Upgrades `json:"upgrades"`
	// ClickCount counts manual clicks since the last prestige.
	ClickCount int64 `json:"click_count"`
	// Achievements lists unlocked achievement IDs, in unlock order.
	Achievements []string `json:"achievements"`
	// LastUpdate is the Unix timestamp (seconds) of the last
	// authoritative save or tick, used for offline catch-up.
	LastUpdate int64 `json:"last_update"`
}

// HasAchievement reports whether the achievement ID is already unlocked.
func (g *GameState) HasAchievement(id string) bool {
	for _, a := range g.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// UpgradeKind identifies one of the purchasable upgrade tracks.
type UpgradeKind string

const (
	// UpgradeClickPower adds +1 coin per click per level.
	UpgradeClickPower UpgradeKind = "click_power"
	// UpgradeAutoClickers adds passive income per level.
	UpgradeAutoClickers UpgradeKind = "auto_clickers"
	// UpgradeClickBots adds larger passive income per level.
	UpgradeClickBots UpgradeKind = "click_bots"
)

// UpgradeInfo describes one catalog entry priced for a specific state.
type UpgradeInfo struct {
	Kind         UpgradeKind `json:"kind"`
	Description  string      `json:"description"`
	CurrentLevel int         `json:"current_level"`
	Cost         float64     `json:"cost"`
	CanAfford    bool        `json:"can_afford"`
}

// LeaderboardEntry is one row of the lifetime-earnings leaderboard.
type LeaderboardEntry struct {
	Name          string  `json:"name"`
	TotalCoins    float64 `json:"total_coins"`
	PrestigeLevel int     `json:"prestige_level"`
}
