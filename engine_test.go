package extflex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ext-flex/extflex-engine/config"
	"github.com/ext-flex/extflex-engine/internal/application/command"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
)

// Tuesday; the test week is Monday-anchored at 2026-03-09.
var testDay = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type clock struct {
	t time.Time
}

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *clock) nextDay()                { c.t = c.t.AddDate(0, 0, 1) }

func newTestEngine(t *testing.T) (*Engine, *clock) {
	t.Helper()

	cfg := &config.Config{
		App:           config.AppConfig{Location: time.UTC},
		Engine:        config.EngineConfig{NotificationBuffer: 32},
		Features:      config.LoadFeatureFlags(),
		Observability: config.ObservabilityConfig{LogLevel: "ERROR"},
	}
	cfg.Features.Set(config.FeatureRolloverPoller, false)

	e, err := NewWithStore(cfg, kv.NewMemoryStore())
	require.NoError(t, err)

	c := &clock{t: testDay}
	e.now = c.now
	t.Cleanup(func() { _ = e.Close() })
	return e, c
}

func (c *clock) now() time.Time { return c.t }

func TestEngine_FirstLog(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	out, err := e.LogExercise(ctx, "pushups", 20, nil)
	require.NoError(t, err)

	assert.True(t, out.PB.IsNewPB)
	assert.Equal(t, 1, out.StreakLength)
	require.Len(t, out.UnlockedAchievements, 1)
	assert.Equal(t, "first_rep", out.UnlockedAchievements[0].ID)

	granted, err := e.IsAchievementUnlocked(ctx, "first_rep")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestEngine_NotificationQueueIsFIFO(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.LogExercise(context.Background(), "pushups", 200, nil)
	require.NoError(t, err)

	// Level-up, three tier unlocks, five achievements.
	assert.Equal(t, 9, e.PendingNotifications())

	first, ok := e.NextNotification()
	require.True(t, ok)
	assert.Equal(t, NotificationLevelUp, first.Kind)
	assert.Equal(t, "pushups", first.RefID)

	second, ok := e.NextNotification()
	require.True(t, ok)
	assert.Equal(t, NotificationExerciseUnlocked, second.Kind)

	for e.PendingNotifications() > 0 {
		_, ok := e.NextNotification()
		require.True(t, ok)
	}
	_, ok = e.NextNotification()
	assert.False(t, ok)
}

func TestEngine_NotificationQueueDropsOldestWhenFull(t *testing.T) {
	e, _ := newTestEngine(t)
	e.queue = newNotificationQueue(2)

	e.queue.push(Notification{RefID: "a"})
	e.queue.push(Notification{RefID: "b"})
	e.queue.push(Notification{RefID: "c"})

	n, ok := e.NextNotification()
	require.True(t, ok)
	assert.Equal(t, "b", n.RefID)
}

func TestEngine_DailyCountersResetOnRollover(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	_, err := e.LogExercise(ctx, "pushups", 60, nil)
	require.NoError(t, err)

	c.nextDay()

	// 50 XP on a fresh day must not combine with yesterday's 70 and trip
	// the 100-XP daily achievement.
	out, err := e.LogExercise(ctx, "pushups", 50, nil)
	require.NoError(t, err)
	for _, a := range out.UnlockedAchievements {
		assert.NotEqual(t, "daily_100", a.ID)
	}
	assert.Equal(t, 2, out.StreakLength)
}

func TestEngine_FreezePreservesContinuity(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	_, err := e.LogExercise(ctx, "pushups", 10, nil)
	require.NoError(t, err)

	c.nextDay()
	res, err := e.UseFreeze(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	c.nextDay()
	out, err := e.LogExercise(ctx, "pushups", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.StreakLength)
	assert.False(t, out.Streak.Broken)
}

func TestEngine_FreezeExhaustion(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	res, err := e.UseFreeze(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	c.nextDay()
	res, err = e.UseFreeze(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	c.nextDay()
	res, err = e.UseFreeze(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, streak.ReasonNoFreezesLeft, res.Reason)
}

func TestEngine_StreakStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.LogExercise(ctx, "pushups", 10, nil)
	require.NoError(t, err)

	view, err := e.StreakStatus(ctx)
	require.NoError(t, err)
	assert.True(t, view.IsActive)
	assert.Equal(t, 1, view.Data.Current)
	assert.Equal(t, streak.TierSmall, view.Tier)
	assert.Equal(t, 7, view.NextMilestone)
}

func TestEngine_ExportImportRoundTrip(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	_, err := e.LogExercise(ctx, "pushups", 200, nil)
	require.NoError(t, err)
	c.nextDay()
	_, err = e.LogExercise(ctx, "squats", 15, nil)
	require.NoError(t, err)

	raw, err := e.ExportJSON(ctx)
	require.NoError(t, err)

	fresh, _ := newTestEngine(t)
	_, err = fresh.Import(ctx, raw, command.ImportReplace)
	require.NoError(t, err)

	want, err := e.Export(ctx)
	require.NoError(t, err)
	got, err := fresh.Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.Progression, got.Progression)
	assert.Equal(t, want.Streak, got.Streak)
	assert.Equal(t, want.PersonalBests, got.PersonalBests)
	assert.Equal(t, want.Entries, got.Entries)
}

func TestEngine_ResetsAreIndependent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.LogExercise(ctx, "pushups", 200, nil)
	require.NoError(t, err)

	require.NoError(t, e.ResetProgression(ctx))

	unlocked, err := e.IsUnlocked(ctx, "dumbbell_curls")
	require.NoError(t, err)
	assert.False(t, unlocked)

	// Streak survives the progression wipe.
	view, err := e.StreakStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Data.Current)
}

func TestEngine_SubscribeReceivesEvents(t *testing.T) {
	e, _ := newTestEngine(t)

	var levelUps int
	require.NoError(t, e.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		levelUps++
		return nil
	}))

	_, err := e.LogExercise(context.Background(), "pushups", 200, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, levelUps)
}

func TestEngine_ClosedEngineRejectsWrites(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Close())

	_, err := e.LogExercise(context.Background(), "pushups", 10, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = e.UseFreeze(context.Background())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestEngine_LifetimeStatsFollowEvents(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.LogExercise(ctx, "pushups", 200, nil)
	require.NoError(t, err)

	stats, err := e.LifetimeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LevelUps)
	assert.Equal(t, 3, stats.ExercisesUnlocked)
	assert.Equal(t, 5, stats.AchievementsUnlocked)
	assert.Equal(t, 1, stats.PersonalBests)
	// The logged set plus one grant per rewarded achievement.
	assert.Equal(t, 6, stats.XPEvents)
	assert.Equal(t, 125, stats.RewardXP)

	require.NoError(t, e.ResetLifetimeStats(ctx))
	stats, err = e.LifetimeStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.LevelUps)
}

func TestEngine_UnlockQueries(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	unlocked, err := e.IsUnlocked(ctx, "pushups")
	require.NoError(t, err)
	assert.True(t, unlocked)

	pct, err := e.UnlockProgress(ctx, "dumbbell_curls")
	require.NoError(t, err)
	assert.Zero(t, pct)

	_, err = e.LogExercise(ctx, "pushups", 200, nil)
	require.NoError(t, err)

	pct, err = e.UnlockProgress(ctx, "dumbbell_curls")
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	overview, err := e.UnlockOverview(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, overview)
}
