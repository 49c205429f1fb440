package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ext-flex/extflex-engine/internal/domain/progression"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/messaging"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// day1 is a Tuesday; the whole test week stays inside one Monday-anchored
// freeze window.
var day1 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *kv.MemoryStore
	entries *kvrepo.EntryRepo
	prog    *kvrepo.ProgressionRepo
	pbs     *kvrepo.PBRepo
	streaks *kvrepo.StreakRepo
	bus     *messaging.InMemoryEventBus
	orch    *Orchestrator
	daily   *progression.DailyCounters
}

func newFixture() *fixture {
	store := kv.NewMemoryStore()
	entries := kvrepo.NewEntryRepo(store)
	prog := kvrepo.NewProgressionRepo(store)
	pbs := kvrepo.NewPBRepo(store)
	streaks := kvrepo.NewStreakRepo(store, entries)
	bus := messaging.NewInMemoryEventBus(nil)

	return &fixture{
		store:   store,
		entries: entries,
		prog:    prog,
		pbs:     pbs,
		streaks: streaks,
		bus:     bus,
		orch:    NewOrchestrator(entries, prog, pbs, streaks, bus, nil, logger.Nop(), time.UTC),
		daily:   &progression.DailyCounters{Exercises: make(map[string]struct{})},
	}
}

func (f *fixture) log(t *testing.T, id string, value int, at time.Time) *LogExerciseOutput {
	t.Helper()
	out, err := f.orch.LogExercise(context.Background(), LogExerciseInput{ExerciseID: id, Value: value}, at, f.daily)
	require.NoError(t, err)
	return out
}

func TestLogExercise_FreshUser(t *testing.T) {
	f := newFixture()

	out := f.log(t, "pushups", 20, day1)

	// 20 XP from the set plus the 10 XP first_rep reward.
	assert.Equal(t, 1, out.XP.Progress.Level)
	assert.True(t, out.PB.IsNewPB)
	assert.Equal(t, 20, out.PB.NewPB.Value)
	assert.True(t, out.Streak.StreakIncreased)
	assert.Equal(t, 1, out.StreakLength)

	require.Len(t, out.UnlockedAchievements, 1)
	assert.Equal(t, "first_rep", out.UnlockedAchievements[0].ID)

	snap, err := f.prog.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, snap.TotalXP)
	assert.Equal(t, 30, snap.Exercises["pushups"].XP)
	assert.NotZero(t, snap.StartedAt)
}

func TestLogExercise_LevelUpUnlocksNextTier(t *testing.T) {
	f := newFixture()

	out := f.log(t, "pushups", 200, day1)

	assert.True(t, out.XP.LeveledUp)
	assert.Equal(t, 1, out.XP.PreviousLevel)
	assert.Equal(t, 2, out.XP.Progress.Level)

	// Level 2 opens the first gated tier.
	assert.ElementsMatch(t, []string{"dumbbell_curls", "high_knees", "shoulder_stretch"}, out.UnlockedExercises)

	// Reward XP folds into the same pass: the level and unlock rewards push
	// the daily counter over the daily_100 and daily_250 bars too.
	ids := make([]string, 0, len(out.UnlockedAchievements))
	for _, a := range out.UnlockedAchievements {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"first_rep", "first_unlock", "level_2", "daily_100", "daily_250"}, ids)

	// 200 logged + 10 + 25 + 15 + 25 + 50 in rewards.
	snap, err := f.prog.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 325, snap.TotalXP)
}

func TestLogExercise_ConsecutiveDaysExtendStreak(t *testing.T) {
	f := newFixture()

	out := f.log(t, "pushups", 10, day1)
	assert.Equal(t, 1, out.StreakLength)

	out = f.log(t, "pushups", 10, day1.AddDate(0, 0, 1))
	assert.Equal(t, 2, out.StreakLength)
	assert.True(t, out.Streak.StreakIncreased)
	assert.False(t, out.Streak.Broken)
}

func TestLogExercise_SameDayDoesNotExtendStreak(t *testing.T) {
	f := newFixture()

	f.log(t, "pushups", 10, day1)
	out := f.log(t, "squats", 10, day1.Add(2*time.Hour))

	assert.False(t, out.Streak.StreakIncreased)
	assert.Equal(t, 1, out.StreakLength)
}

func TestLogExercise_DailyCounters(t *testing.T) {
	f := newFixture()

	f.log(t, "pushups", 30, day1)
	f.log(t, "jumping_jacks", 25, day1.Add(time.Hour))

	// 55 logged plus the first_rep and first_unlock rewards.
	assert.Equal(t, 90, f.daily.XP)
	assert.Contains(t, f.daily.Exercises, "pushups")
	assert.Contains(t, f.daily.Exercises, "jumping_jacks")
	assert.Len(t, f.daily.Exercises, 2)
}

func TestLogExercise_RejectsUnknownExercise(t *testing.T) {
	f := newFixture()

	_, err := f.orch.LogExercise(context.Background(), LogExerciseInput{ExerciseID: "bench_press", Value: 10}, day1, f.daily)
	assert.ErrorIs(t, err, shared.ErrExerciseNotFound)

	_, err = f.orch.LogExercise(context.Background(), LogExerciseInput{ExerciseID: "pushups", Value: 0}, day1, f.daily)
	assert.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestLogExercise_WeightedPBSlatesAreIndependent(t *testing.T) {
	f := newFixture()
	w20, w25 := 20, 25

	out, err := f.orch.LogExercise(context.Background(), LogExerciseInput{ExerciseID: "dumbbell_curls", Value: 10, Weight: &w20}, day1, f.daily)
	require.NoError(t, err)
	assert.True(t, out.PB.IsNewPB)

	out, err = f.orch.LogExercise(context.Background(), LogExerciseInput{ExerciseID: "dumbbell_curls", Value: 8, Weight: &w25}, day1.Add(time.Hour), f.daily)
	require.NoError(t, err)
	assert.True(t, out.PB.IsNewPB)

	pbs, err := f.pbs.Get(context.Background(), "dumbbell_curls")
	require.NoError(t, err)
	assert.Equal(t, 10, pbs.WeightedPBs["20"].Value)
	assert.Equal(t, 8, pbs.WeightedPBs["25"].Value)
}

func TestLogExercise_WeightedWithoutWeightIsQuietNoOp(t *testing.T) {
	f := newFixture()

	out := f.log(t, "dumbbell_curls", 10, day1)

	assert.False(t, out.PB.IsNewPB)
	pbs, err := f.pbs.Get(context.Background(), "dumbbell_curls")
	require.NoError(t, err)
	assert.Empty(t, pbs.WeightedPBs)
}

func TestLogExercise_EqualValueDefendsPB(t *testing.T) {
	f := newFixture()

	f.log(t, "pushups", 20, day1)
	out := f.log(t, "pushups", 20, day1.Add(time.Hour))

	assert.False(t, out.PB.IsNewPB)
	require.NotNil(t, out.PB.PreviousPB)
	assert.Equal(t, 20, out.PB.PreviousPB.Value)
}

func TestLogExercise_PublishesCelebrationEvents(t *testing.T) {
	f := newFixture()

	var types []shared.EventType
	require.NoError(t, f.bus.SubscribeAll(func(e shared.Event) error {
		types = append(types, e.EventType())
		return nil
	}))

	f.log(t, "pushups", 200, day1)

	assert.Contains(t, types, shared.EventXPGained)
	assert.Contains(t, types, shared.EventLevelUp)
	assert.Contains(t, types, shared.EventExerciseUnlocked)
	assert.Contains(t, types, shared.EventAchievementUnlocked)
	assert.Contains(t, types, shared.EventNewPersonalBest)
	assert.Contains(t, types, shared.EventStreakUpdated)
	assert.Contains(t, types, shared.EventProgressionChanged)
}

func TestAddXP_RunsUnlockAndAchievementPipeline(t *testing.T) {
	f := newFixture()

	out, err := f.orch.AddXP(context.Background(), "pushups", 200, day1, f.daily)
	require.NoError(t, err)

	assert.True(t, out.XP.LeveledUp)
	assert.Contains(t, out.UnlockedExercises, "dumbbell_curls")
	assert.NotEmpty(t, out.UnlockedAchievements)
}

func TestAddXP_RejectsNegativeAmount(t *testing.T) {
	f := newFixture()

	_, err := f.orch.AddXP(context.Background(), "pushups", -5, day1, f.daily)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestUseFreeze_Lifecycle(t *testing.T) {
	f := newFixture()
	h := NewUseFreezeHandler(f.streaks, f.bus, nil, logger.Nop(), time.UTC)
	ctx := context.Background()

	res, err := h.Handle(ctx, day1)
	require.NoError(t, err)
	assert.True(t, res.Success)

	// Same day again.
	res, err = h.Handle(ctx, day1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, streak.ReasonAlreadyFrozen, res.Reason)

	// Next day burns the last freeze, the day after has none left.
	res, err = h.Handle(ctx, day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = h.Handle(ctx, day1.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, streak.ReasonNoFreezesLeft, res.Reason)
}

func TestUseFreeze_RejectedOnActiveDay(t *testing.T) {
	f := newFixture()
	h := NewUseFreezeHandler(f.streaks, f.bus, nil, logger.Nop(), time.UTC)

	f.log(t, "pushups", 10, day1)

	res, err := h.Handle(context.Background(), day1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, streak.ReasonAlreadyActive, res.Reason)
}

func TestFreezeBridgesStreakGap(t *testing.T) {
	f := newFixture()
	h := NewUseFreezeHandler(f.streaks, f.bus, nil, logger.Nop(), time.UTC)

	f.log(t, "pushups", 10, day1)

	res, err := h.Handle(context.Background(), day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, res.Success)

	out := f.log(t, "pushups", 10, day1.AddDate(0, 0, 2))
	assert.Equal(t, 2, out.StreakLength)
	assert.False(t, out.Streak.Broken)
}

func TestResetHandler_WipesIndependently(t *testing.T) {
	f := newFixture()
	h := NewResetHandler(f.prog, f.streaks, f.pbs, f.bus, logger.Nop())
	ctx := context.Background()

	f.log(t, "pushups", 200, day1)

	require.NoError(t, h.ResetProgression(ctx))
	snap, err := f.prog.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.TotalXP)
	assert.Empty(t, snap.Achievements)

	// Streak and PBs survive a progression reset.
	data, err := f.streaks.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Current)
	pbs, err := f.pbs.Get(ctx, "pushups")
	require.NoError(t, err)
	require.NotNil(t, pbs.PB)

	require.NoError(t, h.ResetStreak(ctx))
	data, err = f.streaks.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, data.Current)

	require.NoError(t, h.ClearPersonalBests(ctx))
	pbs, err = f.pbs.Get(ctx, "pushups")
	require.NoError(t, err)
	assert.Nil(t, pbs.PB)
}

func TestLogExercise_AchievementsNeverRegrant(t *testing.T) {
	f := newFixture()

	f.log(t, "pushups", 20, day1)
	out := f.log(t, "pushups", 20, day1.Add(time.Hour))

	for _, a := range out.UnlockedAchievements {
		assert.NotEqual(t, "first_rep", a.ID)
	}

	snap, err := f.prog.Get(context.Background())
	require.NoError(t, err)
	seen := make(map[string]int)
	for _, a := range snap.Achievements {
		seen[a.AchievementID]++
	}
	assert.Equal(t, 1, seen["first_rep"])
}

func TestLogExercise_AppendsEntryLog(t *testing.T) {
	f := newFixture()

	f.log(t, "pushups", 10, day1)
	f.log(t, "squats", 15, day1.Add(time.Hour))

	entries, err := f.entries.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pushups", entries[0].ExerciseID)
	assert.True(t, entries[0].IsValid())
}

func TestLogExercise_VarietyAchievement(t *testing.T) {
	f := newFixture()

	f.log(t, "pushups", 5, day1)
	f.log(t, "jumping_jacks", 5, day1.Add(time.Minute))
	out := f.log(t, "neck_rolls", 30, day1.Add(2*time.Minute))

	ids := make([]string, 0, len(out.UnlockedAchievements))
	for _, a := range out.UnlockedAchievements {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "variety_3")
}
