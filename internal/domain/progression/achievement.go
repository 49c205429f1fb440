package progression

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// Achievements are evaluated after every XP gain. Some carry an XP reward;
// reward XP is folded into the same evaluation cycle, bounded to one pass.
// ══════════════════════════════════════════════════════════════════════════════

// ConditionType identifies an achievement condition variant.
type ConditionType string

const (
	// CondFirstExercise - any XP has ever been earned.
	CondFirstExercise ConditionType = "first_exercise"

	// CondTotalXP - aggregate XP reached a threshold.
	CondTotalXP ConditionType = "total_xp"

	// CondExerciseLevel - any exercise reached a level.
	CondExerciseLevel ConditionType = "exercise_level"

	// CondSpecificLevel - a named exercise reached a level.
	CondSpecificLevel ConditionType = "specific_level"

	// CondExercisesUnlocked - N exercises are unlocked.
	CondExercisesUnlocked ConditionType = "exercises_unlocked"

	// CondAllUnlocked - every exercise in the catalog is unlocked.
	CondAllUnlocked ConditionType = "all_unlocked"

	// CondDailyXP - XP earned today reached a threshold.
	CondDailyXP ConditionType = "daily_xp"

	// CondExercisesInDay - N distinct exercises were done today.
	CondExercisesInDay ConditionType = "exercises_in_day"

	// CondMaxLevel - any exercise is at the level cap.
	CondMaxLevel ConditionType = "max_level"

	// CondMultiMaxLevel - N exercises are at the level cap.
	CondMultiMaxLevel ConditionType = "multi_max_level"

	// CondStreak - the current streak reached a length. Needs the streak
	// length passed in from outside the progression record.
	CondStreak ConditionType = "streak"
)

// Condition is the tagged achievement trigger.
type Condition struct {
	Type ConditionType `json:"type"`

	// Value is the threshold for counting conditions.
	Value int `json:"value,omitempty"`

	// ExerciseID names the exercise for specific_level.
	ExerciseID string `json:"exerciseId,omitempty"`
}

// AchievementCategory groups achievements for display.
type AchievementCategory string

const (
	CategoryGettingStarted AchievementCategory = "getting_started"
	CategoryLeveling       AchievementCategory = "leveling"
	CategoryDedication     AchievementCategory = "dedication"
	CategoryVariety        AchievementCategory = "variety"
	CategoryMastery        AchievementCategory = "mastery"
)

// Achievement describes one unlockable achievement.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    AchievementCategory
	Condition   Condition
	XPReward    int
}

// Achievements is the full achievement catalog.
var Achievements = []Achievement{
	// Getting started
	{ID: "first_rep", Name: "First Rep", Description: "Log your first exercise", Icon: "🎯", Category: CategoryGettingStarted, Condition: Condition{Type: CondFirstExercise}, XPReward: 10},
	{ID: "first_unlock", Name: "New Challenger", Description: "Unlock your first new exercise", Icon: "🔓", Category: CategoryGettingStarted, Condition: Condition{Type: CondExercisesUnlocked, Value: 2}, XPReward: 25},
	{ID: "five_unlocked", Name: "Building Arsenal", Description: "Unlock 5 exercises", Icon: "🏗️", Category: CategoryGettingStarted, Condition: Condition{Type: CondExercisesUnlocked, Value: 5}, XPReward: 50},
	{ID: "ten_unlocked", Name: "Well Equipped", Description: "Unlock 10 exercises", Icon: "🎒", Category: CategoryGettingStarted, Condition: Condition{Type: CondExercisesUnlocked, Value: 10}, XPReward: 100},

	// Leveling
	{ID: "level_2", Name: "Warming Up", Description: "Reach Level 2 in any exercise", Icon: "📈", Category: CategoryLeveling, Condition: Condition{Type: CondExerciseLevel, Value: 2}, XPReward: 15},
	{ID: "level_3", Name: "Getting Stronger", Description: "Reach Level 3 in any exercise", Icon: "💪", Category: CategoryLeveling, Condition: Condition{Type: CondExerciseLevel, Value: 3}, XPReward: 25},
	{ID: "level_5", Name: "Halfway Hero", Description: "Reach Level 5 in any exercise", Icon: "⭐", Category: CategoryLeveling, Condition: Condition{Type: CondExerciseLevel, Value: 5}, XPReward: 50},
	{ID: "level_7", Name: "Expert Form", Description: "Reach Level 7 in any exercise", Icon: "🔥", Category: CategoryLeveling, Condition: Condition{Type: CondExerciseLevel, Value: 7}, XPReward: 75},
	{ID: "level_10", Name: "Mastery Achieved", Description: "Reach Level 10 (Master) in any exercise", Icon: "👑", Category: CategoryMastery, Condition: Condition{Type: CondMaxLevel}, XPReward: 200},

	// Dedication, total XP
	{ID: "xp_500", Name: "Getting Started", Description: "Earn 500 total XP", Icon: "🌱", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 500}, XPReward: 25},
	{ID: "xp_1000", Name: "Centurion", Description: "Earn 1,000 total XP", Icon: "💯", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 1000}, XPReward: 50},
	{ID: "xp_2500", Name: "Dedicated", Description: "Earn 2,500 total XP", Icon: "🏆", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 2500}, XPReward: 100},
	{ID: "xp_5000", Name: "Committed", Description: "Earn 5,000 total XP", Icon: "🎖️", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 5000}, XPReward: 150},
	{ID: "xp_10000", Name: "Iron Will", Description: "Earn 10,000 total XP", Icon: "⚔️", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 10000}, XPReward: 250},
	{ID: "xp_25000", Name: "Legendary", Description: "Earn 25,000 total XP", Icon: "🌟", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 25000}, XPReward: 500},
	{ID: "xp_50000", Name: "Transcendent", Description: "Earn 50,000 total XP", Icon: "✨", Category: CategoryDedication, Condition: Condition{Type: CondTotalXP, Value: 50000}, XPReward: 1000},

	// Variety
	{ID: "variety_3", Name: "Mix It Up", Description: "Do 3 different exercises in one day", Icon: "🎨", Category: CategoryVariety, Condition: Condition{Type: CondExercisesInDay, Value: 3}, XPReward: 25},
	{ID: "variety_5", Name: "Full Rotation", Description: "Do 5 different exercises in one day", Icon: "🔄", Category: CategoryVariety, Condition: Condition{Type: CondExercisesInDay, Value: 5}, XPReward: 50},
	{ID: "variety_8", Name: "Completionist", Description: "Do 8 different exercises in one day", Icon: "🌈", Category: CategoryVariety, Condition: Condition{Type: CondExercisesInDay, Value: 8}, XPReward: 100},

	// Daily intensity
	{ID: "daily_100", Name: "Active Day", Description: "Earn 100 XP in a single day", Icon: "📅", Category: CategoryDedication, Condition: Condition{Type: CondDailyXP, Value: 100}, XPReward: 25},
	{ID: "daily_250", Name: "Power Day", Description: "Earn 250 XP in a single day", Icon: "⚡", Category: CategoryDedication, Condition: Condition{Type: CondDailyXP, Value: 250}, XPReward: 50},
	{ID: "daily_500", Name: "Beast Mode", Description: "Earn 500 XP in a single day", Icon: "🦁", Category: CategoryDedication, Condition: Condition{Type: CondDailyXP, Value: 500}, XPReward: 100},

	// Consistency
	{ID: "streak_7", Name: "Week Warrior", Description: "Keep a 7-day streak", Icon: "🗓️", Category: CategoryDedication, Condition: Condition{Type: CondStreak, Value: 7}, XPReward: 75},

	// Mastery
	{ID: "all_unlocked", Name: "Collector", Description: "Unlock all exercises", Icon: "🏛️", Category: CategoryMastery, Condition: Condition{Type: CondAllUnlocked}, XPReward: 300},
	{ID: "triple_master", Name: "Triple Threat", Description: "Reach Level 10 in 3 exercises", Icon: "🥇", Category: CategoryMastery, Condition: Condition{Type: CondMultiMaxLevel, Value: 3}, XPReward: 500},
	{ID: "five_master", Name: "Quintuple Master", Description: "Reach Level 10 in 5 exercises", Icon: "💎", Category: CategoryMastery, Condition: Condition{Type: CondMultiMaxLevel, Value: 5}, XPReward: 1000},

	// Specific exercise mastery
	{ID: "pushup_master", Name: "Push-up Pro", Description: "Reach Level 10 in Push-ups", Icon: "💪", Category: CategoryMastery, Condition: Condition{Type: CondSpecificLevel, ExerciseID: "pushups", Value: 10}, XPReward: 150},
	{ID: "plank_master", Name: "Plank Perfectionist", Description: "Reach Level 10 in Plank", Icon: "🧘", Category: CategoryMastery, Condition: Condition{Type: CondSpecificLevel, ExerciseID: "plank", Value: 10}, XPReward: 150},
	{ID: "squat_master", Name: "Squat Sovereign", Description: "Reach Level 10 in Squats", Icon: "🦵", Category: CategoryMastery, Condition: Condition{Type: CondSpecificLevel, ExerciseID: "squats", Value: 10}, XPReward: 150},
}

var achievementByID = func() map[string]Achievement {
	m := make(map[string]Achievement, len(Achievements))
	for _, a := range Achievements {
		m[a.ID] = a
	}
	return m
}()

// AchievementByID returns the achievement with the given ID.
func AchievementByID(id string) (Achievement, bool) {
	a, ok := achievementByID[id]
	return a, ok
}

// AchievementsByCategory returns the achievements in the given category.
func AchievementsByCategory(c AchievementCategory) []Achievement {
	var out []Achievement
	for _, a := range Achievements {
		if a.Category == c {
			out = append(out, a)
		}
	}
	return out
}

// DailyCounters carries the ephemeral same-day state the evaluator needs.
// These reset on day rollover and are never persisted.
type DailyCounters struct {
	// XP earned since the day started.
	XP int

	// Exercises holds the distinct exercise IDs logged today.
	Exercises map[string]struct{}
}

// EvalContext bundles everything an achievement condition can observe.
type EvalContext struct {
	Snapshot *Snapshot
	Daily    DailyCounters

	// StreakLength is the current streak, supplied by the streak engine.
	StreakLength int

	// CatalogSize is the total number of exercises, for all_unlocked.
	CatalogSize int
}

// Evaluate reports whether the achievement's condition holds.
func Evaluate(a Achievement, ctx EvalContext) bool {
	c := a.Condition
	s := ctx.Snapshot

	switch c.Type {
	case CondFirstExercise:
		return s.TotalXP > 0

	case CondTotalXP:
		return s.TotalXP >= c.Value

	case CondExerciseLevel:
		return s.HighestLevel() >= c.Value

	case CondSpecificLevel:
		p, ok := s.Exercises[c.ExerciseID]
		return ok && p.Level >= c.Value

	case CondExercisesUnlocked:
		return s.UnlockedCount() >= c.Value

	case CondAllUnlocked:
		return ctx.CatalogSize > 0 && s.UnlockedCount() >= ctx.CatalogSize

	case CondDailyXP:
		return ctx.Daily.XP >= c.Value

	case CondExercisesInDay:
		return len(ctx.Daily.Exercises) >= c.Value

	case CondMaxLevel:
		return s.HighestLevel() >= MaxLevel

	case CondMultiMaxLevel:
		return s.MasteredCount() >= c.Value

	case CondStreak:
		return ctx.StreakLength >= c.Value

	default:
		return false
	}
}

// PendingAchievements returns the achievements whose conditions hold but that
// have not been granted yet, in catalog order.
func PendingAchievements(ctx EvalContext) []Achievement {
	var out []Achievement
	for _, a := range Achievements {
		if ctx.Snapshot.IsAchievementUnlocked(a.ID) {
			continue
		}
		if Evaluate(a, ctx) {
			out = append(out, a)
		}
	}
	return out
}
