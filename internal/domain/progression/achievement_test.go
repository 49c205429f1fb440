package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
)

func TestAchievements_UniqueIDsAndValidConditions(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range Achievements {
		assert.False(t, seen[a.ID], "duplicate achievement id %q", a.ID)
		seen[a.ID] = true
		assert.NotEmpty(t, a.Name)
		assert.NotEmpty(t, a.Condition.Type)
		if a.Condition.Type == CondSpecificLevel {
			assert.True(t, exercise.IsValidID(a.Condition.ExerciseID))
		}
	}
}

func TestEvaluate_FirstExercise(t *testing.T) {
	s := NewSnapshot()
	a, _ := AchievementByID("first_rep")

	assert.False(t, Evaluate(a, EvalContext{Snapshot: s}))
	s.AddXP("pushups", 10, time.Now())
	assert.True(t, Evaluate(a, EvalContext{Snapshot: s}))
}

func TestEvaluate_TotalXP(t *testing.T) {
	s := NewSnapshot()
	s.TotalXP = 499
	a, _ := AchievementByID("xp_500")

	assert.False(t, Evaluate(a, EvalContext{Snapshot: s}))
	s.TotalXP = 500
	assert.True(t, Evaluate(a, EvalContext{Snapshot: s}))
}

func TestEvaluate_ExerciseLevel_UsesHighest(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()
	s.AddXP("pushups", 250, now) // level 2
	a, _ := AchievementByID("level_2")

	assert.True(t, Evaluate(a, EvalContext{Snapshot: s}))

	a3, _ := AchievementByID("level_3")
	assert.False(t, Evaluate(a3, EvalContext{Snapshot: s}))
}

func TestEvaluate_SpecificLevel(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()
	a, _ := AchievementByID("pushup_master")

	s.AddXP("pushups", 11999, now)
	assert.False(t, Evaluate(a, EvalContext{Snapshot: s}))

	s.AddXP("pushups", 1, now)
	assert.True(t, Evaluate(a, EvalContext{Snapshot: s}))
}

func TestEvaluate_DailyCounters(t *testing.T) {
	s := NewSnapshot()
	daily := DailyCounters{
		XP:        120,
		Exercises: map[string]struct{}{"pushups": {}, "squats": {}, "plank": {}},
	}

	d100, _ := AchievementByID("daily_100")
	d250, _ := AchievementByID("daily_250")
	v3, _ := AchievementByID("variety_3")
	v5, _ := AchievementByID("variety_5")

	ctx := EvalContext{Snapshot: s, Daily: daily}
	assert.True(t, Evaluate(d100, ctx))
	assert.False(t, Evaluate(d250, ctx))
	assert.True(t, Evaluate(v3, ctx))
	assert.False(t, Evaluate(v5, ctx))
}

func TestEvaluate_AllUnlocked(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()
	a, _ := AchievementByID("all_unlocked")

	for _, def := range exercise.Registry {
		s.UnlockExercise(def.ID, now)
	}
	ctx := EvalContext{Snapshot: s, CatalogSize: exercise.Count()}
	assert.True(t, Evaluate(a, ctx))

	// Zero catalog size never satisfies the condition.
	assert.False(t, Evaluate(a, EvalContext{Snapshot: s}))
}

func TestEvaluate_MultiMaxLevel(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()
	a, _ := AchievementByID("triple_master")

	s.AddXP("pushups", 12000, now)
	s.AddXP("squats", 12000, now)
	assert.False(t, Evaluate(a, EvalContext{Snapshot: s}))

	s.AddXP("plank", 12000, now)
	assert.True(t, Evaluate(a, EvalContext{Snapshot: s}))
}

func TestEvaluate_Streak(t *testing.T) {
	s := NewSnapshot()
	a, _ := AchievementByID("streak_7")

	assert.False(t, Evaluate(a, EvalContext{Snapshot: s, StreakLength: 6}))
	assert.True(t, Evaluate(a, EvalContext{Snapshot: s, StreakLength: 7}))
}

func TestPendingAchievements_SkipsGranted(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()
	s.AddXP("pushups", 10, now)

	ctx := EvalContext{Snapshot: s}
	pending := PendingAchievements(ctx)
	ids := make([]string, 0, len(pending))
	for _, a := range pending {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "first_rep")

	s.GrantAchievement("first_rep", now)
	pending = PendingAchievements(ctx)
	for _, a := range pending {
		assert.NotEqual(t, "first_rep", a.ID)
	}
}
