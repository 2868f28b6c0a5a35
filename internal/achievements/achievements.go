// Package achievements derives unlocked badges from a progression snapshot.
package achievements

import "tegalsec-progression/internal/domain"

// Achievement ids.
const (
	FirstBlood   = "first_blood"
	Challenger   = "challenger"
	Master       = "master"
	Legend       = "legend"
	SpeedDemon   = "speed_demon"
	Scholar      = "scholar"
	PerfectScore = "perfect_score"
	StreakMaster = "streak_master"
)

// Definition describes a badge and the predicate that unlocks it.
type Definition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rarity      string `json:"rarity"`

	unlocked func(r domain.ProgressionRecord, totalChallenges int) bool
}

var catalog = []Definition{
	{
		ID: FirstBlood, Title: "First Blood", Description: "Complete your first challenge", Rarity: "common",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return len(r.CompletedChallenges) >= 1 },
	},
	{
		ID: Challenger, Title: "Challenger", Description: "Complete 5 challenges", Rarity: "rare",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return len(r.CompletedChallenges) >= 5 },
	},
	{
		ID: Master, Title: "SE Master", Description: "Complete 10 challenges", Rarity: "epic",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return len(r.CompletedChallenges) >= 10 },
	},
	{
		ID: Legend, Title: "Legend", Description: "Complete every challenge", Rarity: "legendary",
		unlocked: func(r domain.ProgressionRecord, total int) bool {
			return total > 0 && len(r.CompletedChallenges) >= total
		},
	},
	{
		ID: SpeedDemon, Title: "Speed Demon", Description: "Reach 500 points", Rarity: "rare",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return r.Points >= 500 },
	},
	{
		ID: Scholar, Title: "Scholar", Description: "Read all six Cialdini principles", Rarity: "rare",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return len(r.EducationRead) >= 6 },
	},
	{
		ID: PerfectScore, Title: "Perfectionist", Description: "Get a perfect score on 3 challenges", Rarity: "epic",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return r.PerfectScores >= 3 },
	},
	{
		ID: StreakMaster, Title: "Streak Master", Description: "Stay active 7 days in a row", Rarity: "epic",
		unlocked: func(r domain.ProgressionRecord, _ int) bool { return r.StreakDays >= 7 },
	},
}

// Catalog returns every known achievement in display order.
func Catalog() []Definition {
	return append([]Definition(nil), catalog...)
}

// Evaluate returns the ids whose threshold the record satisfies, in catalog order.
func Evaluate(r domain.ProgressionRecord, totalChallenges int) []string {
	var ids []string
	for _, def := range catalog {
		if def.unlocked(r, totalChallenges) {
			ids = append(ids, def.ID)
		}
	}
	return ids
}

// Newly returns the satisfied achievements the record has not stored yet.
func Newly(r domain.ProgressionRecord, totalChallenges int) []string {
	var fresh []string
	for _, id := range Evaluate(r, totalChallenges) {
		if !r.HasAchievement(id) {
			fresh = append(fresh, id)
		}
	}
	return fresh
}

// Lookup returns the definition for id.
func Lookup(id string) (Definition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}
