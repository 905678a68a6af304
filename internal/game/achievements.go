package game

import "github.com/popcoin-idle/popcoin/internal/models"

// Achievement pairs an ID with the predicate that unlocks it.
type Achievement struct {
	ID          string
	Description string
	Unlocked    func(*models.GameState) bool
}

// Achievements is the fixed unlock table, evaluated in order.
var Achievements = []Achievement{
	{
		ID:          "first_coins",
		Description: "Earn 100 coins",
		Unlocked:    func(s *models.GameState) bool { return s.TotalCoins >= 100 },
	},
	{
		ID:          "clicker_beginner",
		Description: "Click 50 times",
		Unlocked:    func(s *models.GameState) bool { return s.ClickCount >= 50 },
	},
	{
		ID:          "clicker_pro",
		Description: "Click 500 times",
		Unlocked:    func(s *models.GameState) bool { return s.ClickCount >= 500 },
	},
	{
		ID:          "upgrade_collector",
		Description: "Own 10 upgrade levels",
		Unlocked:    func(s *models.GameState) bool { return s.Upgrades.Total() >= 10 },
	},
	{
		ID:          "idle_master",
		Description: "Reach 5 coins per second",
		Unlocked:    func(s *models.GameState) bool { return s.CoinsPerSecond >= 5 },
	},
	{
		ID:          "wealthy",
		Description: "Earn 10,000 coins",
		Unlocked:    func(s *models.GameState) bool { return s.TotalCoins >= 10_000 },
	},
	{
		ID:          "millionaire",
		Description: "Earn 1,000,000 coins",
		Unlocked:    func(s *models.GameState) bool { return s.TotalCoins >= 1_000_000 },
	},
	{
		ID:          "prestige_beginner",
		Description: "Prestige once",
		Unlocked:    func(s *models.GameState) bool { return s.PrestigeLevel >= 1 },
	},
}

// Describe returns the display text for an achievement ID, or the ID
// itself when the table does not know it.
func Describe(id string) string {
	for _, a := range Achievements {
		if a.ID == id {
			return a.Description
		}
	}
	return id
}

// EvaluateAchievements appends every newly satisfied achievement to the
// state and returns the IDs unlocked by this call. Already-unlocked IDs
// are never re-added, so evaluating twice with no intervening state
// change returns nothing the second time.
func EvaluateAchievements(s *models.GameState) []string {
	var unlocked []string
	for _, a := range Achievements {
		if s.HasAchievement(a.ID) {
			continue
		}
		if a.Unlocked(s) {
			s.Achievements = append(s.Achievements, a.ID)
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}
