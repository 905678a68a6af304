// Package game implements the PopCoin game rules: upgrade pricing,
// derived income rates, offline catch-up, prestige and achievements.
// Everything here is pure computation over models.GameState, shared by
// the server (state sanitation on load/save) and the client engine.
package game

import (
	"errors"
	"math"

	"github.com/popcoin-idle/popcoin/internal/models"
)

// Tunable balance constants. These are configuration, not contract:
// changing them must not break any invariant.
const (
	// CostGrowth is the per-level multiplier of the upgrade cost curve.
	CostGrowth = 1.5

	// AutoClickerRate is coins per second added by one auto-clicker level.
	AutoClickerRate = 0.5
	// ClickBotRate is coins per second added by one click-bot level.
	ClickBotRate = 2.0

	// PrestigeThreshold is the lifetime earnings required to prestige,
	// and the divisor of the prestige bonus.
	PrestigeThreshold = 10_000

	// OfflineMinimum is the least elapsed time that earns offline credit.
	OfflineMinimum = 60 // seconds
	// OfflineCap bounds a single offline catch-up credit.
	OfflineCap = 3600 // seconds
)

// ErrInsufficientCoins is returned when a purchase or prestige is
// rejected for lack of funds. The state is left untouched.
var ErrInsufficientCoins = errors.New("insufficient coins")

// ErrUnknownUpgrade is returned for an upgrade kind outside the catalog.
var ErrUnknownUpgrade = errors.New("unknown upgrade kind")

// UpgradeSpec describes one purchasable upgrade track.
type UpgradeSpec struct {
	Kind        models.UpgradeKind `json:"kind"`
	BaseCost    float64            `json:"base_cost"`
	Description string             `json:"description"`
}

// Catalog lists the purchasable upgrades in display order.
var Catalog = []UpgradeSpec{
	{Kind: models.UpgradeClickPower, BaseCost: 50, Description: "Increases coins per click"},
	{Kind: models.UpgradeAutoClickers, BaseCost: 100, Description: "Generates coins automatically"},
	{Kind: models.UpgradeClickBots, BaseCost: 500, Description: "Advanced bots that generate more coins"},
}

// BaseCost returns the level-zero cost of the given upgrade kind.
func BaseCost(kind models.UpgradeKind) (float64, error) {
	for _, spec := range Catalog {
		if spec.Kind == kind {
			return spec.BaseCost, nil
		}
	}
	return 0, ErrUnknownUpgrade
}

// UpgradeCost returns the price of the next level of an upgrade:
// floor(baseCost * CostGrowth^currentLevel).
func UpgradeCost(baseCost float64, currentLevel int) float64 {
	return math.Floor(baseCost * math.Pow(CostGrowth, float64(currentLevel)))
}

// NewState returns the default state for a fresh account.
func NewState(now int64) *models.GameState {
	s := &models.GameState{
		Achievements: []string{},
		LastUpdate:   now,
	}
	RecomputeRates(s)
	return s
}

// RecomputeRates rederives CoinsPerClick and CoinsPerSecond from the
// full upgrade set. Always a full recompute, never incremental, so the
// derived rates cannot drift from the levels that define them.
func RecomputeRates(s *models.GameState) {
	s.CoinsPerClick = 1 + s.Upgrades.ClickPower + s.PrestigeBonus
	s.CoinsPerSecond = float64(s.Upgrades.AutoClickers)*AutoClickerRate +
		float64(s.Upgrades.ClickBots)*ClickBotRate
}

// Normalize repairs a state loaded from storage or received from a
// client: negative numerics are clamped, nil slices replaced, and the
// derived rates recomputed. Unknown fields were already dropped by the
// JSON decode; missing ones arrive as zero values, which are the
// defaults.
func Normalize(s *models.GameState, now int64) {
	if s.Coins < 0 || math.IsNaN(s.Coins) || math.IsInf(s.Coins, 0) {
		s.Coins = 0
	}
	if s.TotalCoins < s.Coins || math.IsNaN(s.TotalCoins) || math.IsInf(s.TotalCoins, 0) {
		s.TotalCoins = s.Coins
	}
	if s.PrestigeLevel < 0 {
		s.PrestigeLevel = 0
	}
	if s.PrestigeBonus < 0 {
		s.PrestigeBonus = 0
	}
	if s.Upgrades.ClickPower < 0 {
		s.Upgrades.ClickPower = 0
	}
	if s.Upgrades.AutoClickers < 0 {
		s.Upgrades.AutoClickers = 0
	}
	if s.Upgrades.ClickBots < 0 {
		s.Upgrades.ClickBots = 0
	}
	if s.ClickCount < 0 {
		s.ClickCount = 0
	}
	if s.Achievements == nil {
		s.Achievements = []string{}
	}
	if s.LastUpdate <= 0 || s.LastUpdate > now {
		s.LastUpdate = now
	}
	RecomputeRates(s)
}

// Click credits one manual click and returns the coins earned.
func Click(s *models.GameState) float64 {
	earned := float64(s.CoinsPerClick)
	s.Coins += earned
	s.TotalCoins += earned
	s.ClickCount++
	return earned
}

// Tick credits passive income for the given elapsed duration in
// seconds. Fractional amounts accumulate; nothing is truncated here.
func Tick(s *models.GameState, elapsedSeconds float64) {
	if s.CoinsPerSecond <= 0 || elapsedSeconds <= 0 {
		return
	}
	earned := s.CoinsPerSecond * elapsedSeconds
	s.Coins += earned
	s.TotalCoins += earned
}

// Purchase buys the next level of the given upgrade. It either fully
// applies (debit, level increment, rate recompute) or returns
// ErrInsufficientCoins with the state unchanged. Returns the price paid.
func Purchase(s *models.GameState, kind models.UpgradeKind) (float64, error) {
	base, err := BaseCost(kind)
	if err != nil {
		return 0, err
	}
	level, err := upgradeLevel(s, kind)
	if err != nil {
		return 0, err
	}
	cost := UpgradeCost(base, level)
	if s.Coins < cost {
		return cost, ErrInsufficientCoins
	}
	s.Coins -= cost
	switch kind {
	case models.UpgradeClickPower:
		s.Upgrades.ClickPower++
	case models.UpgradeAutoClickers:
		s.Upgrades.AutoClickers++
	case models.UpgradeClickBots:
		s.Upgrades.ClickBots++
	}
	RecomputeRates(s)
	return cost, nil
}

func upgradeLevel(s *models.GameState, kind models.UpgradeKind) (int, error) {
	switch kind {
	case models.UpgradeClickPower:
		return s.Upgrades.ClickPower, nil
	case models.UpgradeAutoClickers:
		return s.Upgrades.AutoClickers, nil
	case models.UpgradeClickBots:
		return s.Upgrades.ClickBots, nil
	default:
		return 0, ErrUnknownUpgrade
	}
}

// CanPrestige reports whether lifetime earnings meet the prestige bar.
func CanPrestige(s *models.GameState) bool {
	return s.TotalCoins >= PrestigeThreshold
}

// PrestigeBonus returns the per-click bonus a prestige would grant now.
func PrestigeBonus(s *models.GameState) int {
	return int(math.Floor(s.TotalCoins / PrestigeThreshold))
}

// Prestige resets progress in exchange for a permanent click bonus.
// TotalCoins is lifetime and survives; coins, upgrades, click count and
// achievements reset. Returns ErrInsufficientCoins below the threshold.
func Prestige(s *models.GameState) (int, error) {
	if !CanPrestige(s) {
		return 0, ErrInsufficientCoins
	}
	bonus := PrestigeBonus(s)
	s.PrestigeLevel++
	s.PrestigeBonus = bonus
	s.Coins = 0
	s.Upgrades = models.Upgrades{}
	s.ClickCount = 0
	s.Achievements = []string{}
	RecomputeRates(s)
	return bonus, nil
}

// OfflineEarnings credits passive income for time elapsed between
// lastUpdate and now. Elapsed time below OfflineMinimum earns nothing;
// above OfflineCap it is clamped, bounding the grant against clock skew
// and long-idle sessions. Returns the amount credited.
func OfflineEarnings(s *models.GameState, now int64) float64 {
	elapsed := now - s.LastUpdate
	defer func() { s.LastUpdate = now }()
	if elapsed < OfflineMinimum || s.CoinsPerSecond <= 0 {
		return 0
	}
	if elapsed > OfflineCap {
		elapsed = OfflineCap
	}
	earned := float64(elapsed) * s.CoinsPerSecond
	s.Coins += earned
	s.TotalCoins += earned
	return earned
}
