// Package progression implements the level/XP model, the unlock evaluator,
// the achievement evaluator, and the persisted progression snapshot.
package progression

import "math"

// MaxLevel is the level cap per exercise.
const MaxLevel = 10

// LevelThresholds holds the cumulative XP required to hold each level.
// LevelThresholds[i] is the floor of level i+1; level 1 starts at 0.
var LevelThresholds = [MaxLevel]int{
	0,     // Level 1: starting out
	200,   // Level 2: getting consistent
	600,   // Level 3: building habit
	1200,  // Level 4: dedicated
	2000,  // Level 5: halfway to mastery
	3000,  // Level 6: advanced
	4000,  // Level 7: expert territory
	6000,  // Level 8: veteran status
	8000,  // Level 9: elite
	12000, // Level 10: mastery
}

// levelTitles maps level-1 to a display rank name.
var levelTitles = [MaxLevel]string{
	"Novice",
	"Beginner",
	"Apprentice",
	"Intermediate",
	"Skilled",
	"Advanced",
	"Expert",
	"Veteran",
	"Elite",
	"Master",
}

// CalculateLevel returns the level for a cumulative XP amount: the largest
// level whose threshold is at or below xp. Always in [1, MaxLevel] and
// monotone non-decreasing in xp. The level is derived on every read, never
// stored independently of xp.
func CalculateLevel(xp int) int {
	for i := MaxLevel - 1; i >= 0; i-- {
		if xp >= LevelThresholds[i] {
			return i + 1
		}
	}
	return 1
}

// XPForLevel returns the XP floor of the given level.
func XPForLevel(level int) int {
	if level < 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return LevelThresholds[level-1]
}

// XPForNextLevel returns the XP threshold of the level after the given one.
// At the cap it returns the cap's own threshold.
func XPForNextLevel(level int) int {
	if level >= MaxLevel {
		return LevelThresholds[MaxLevel-1]
	}
	if level < 1 {
		level = 1
	}
	return LevelThresholds[level]
}

// LevelProgress returns the percentage [0,100] of the way from the current
// level's floor to the next level's threshold. At the cap it is always 100.
func LevelProgress(xp, level int) int {
	if level >= MaxLevel {
		return 100
	}

	lo := XPForLevel(level)
	hi := XPForNextLevel(level)
	if hi <= lo {
		return 100
	}

	pct := int(math.Round(float64(xp-lo) / float64(hi-lo) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// LevelTitle returns the display rank name for a level.
func LevelTitle(level int) string {
	if level < 1 {
		level = 1
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelTitles[level-1]
}
