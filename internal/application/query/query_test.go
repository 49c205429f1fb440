package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/messaging"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

var day1 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestProgressionQuery_Unlocks(t *testing.T) {
	store := kv.NewMemoryStore()
	prog := kvrepo.NewProgressionRepo(store)
	q := NewProgressionQuery(prog)
	ctx := context.Background()

	unlocked, err := q.IsUnlocked(ctx, "pushups")
	require.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = q.IsUnlocked(ctx, "squats")
	require.NoError(t, err)
	assert.False(t, unlocked)

	// Starters always read as fully unlocked.
	pct, err := q.UnlockProgress(ctx, "pushups")
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	// Unknown exercises report zero.
	pct, err = q.UnlockProgress(ctx, "bench_press")
	require.NoError(t, err)
	assert.Zero(t, pct)
}

func TestProgressionQuery_ProgressMovesWithXP(t *testing.T) {
	store := kv.NewMemoryStore()
	prog := kvrepo.NewProgressionRepo(store)
	q := NewProgressionQuery(prog)
	ctx := context.Background()

	snap, err := prog.Get(ctx)
	require.NoError(t, err)
	snap.AddXP("pushups", 2500, day1)
	require.NoError(t, prog.Save(ctx, snap))

	// dumbbell_deadlifts is gated on 5,000 total XP.
	pct, err := q.UnlockProgress(ctx, "dumbbell_deadlifts")
	require.NoError(t, err)
	assert.Equal(t, 50, pct)
}

func TestProgressionQuery_UnlockOverview(t *testing.T) {
	store := kv.NewMemoryStore()
	q := NewProgressionQuery(kvrepo.NewProgressionRepo(store))

	overview, err := q.UnlockOverview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview, q.CatalogSize())

	assert.Equal(t, "pushups", overview[0].ExerciseID)
	assert.True(t, overview[0].Unlocked)
	assert.NotEmpty(t, overview[3].Description)
	assert.False(t, overview[3].Unlocked)
}

func TestProgressionQuery_ExerciseLevel(t *testing.T) {
	store := kv.NewMemoryStore()
	prog := kvrepo.NewProgressionRepo(store)
	q := NewProgressionQuery(prog)
	ctx := context.Background()

	snap, err := prog.Get(ctx)
	require.NoError(t, err)
	snap.AddXP("pushups", 400, day1)
	require.NoError(t, prog.Save(ctx, snap))

	info, err := q.ExerciseLevel(ctx, "pushups", day1)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Level)
	assert.Equal(t, "Beginner", info.Title)
	assert.Equal(t, 50, info.Progress)
}

func TestStreakQuery_Status(t *testing.T) {
	store := kv.NewMemoryStore()
	streaks := kvrepo.NewStreakRepo(store, kvrepo.NewEntryRepo(store))
	q := NewStreakQuery(streaks, nil, logger.Nop(), time.UTC)
	ctx := context.Background()

	data := streak.NewData()
	data.Current = 8
	data.Longest = 8
	data.LastActiveDate = datekey.FromTime(day1)
	require.NoError(t, streaks.Save(ctx, data))
	require.NoError(t, store.Set(ctx, kv.KeyStreakRepaired, []byte("true")))

	view, err := q.Status(ctx, day1)
	require.NoError(t, err)
	assert.True(t, view.IsActive)
	assert.False(t, view.IsAtRisk)
	assert.Equal(t, streak.TierMedium, view.Tier)
	assert.Equal(t, 14, view.NextMilestone)
}

func TestStreakQuery_SelfHealsStaleStreak(t *testing.T) {
	store := kv.NewMemoryStore()
	streaks := kvrepo.NewStreakRepo(store, kvrepo.NewEntryRepo(store))
	bus := messaging.NewInMemoryEventBus(nil)
	q := NewStreakQuery(streaks, bus, logger.Nop(), time.UTC)
	ctx := context.Background()

	var broken bool
	require.NoError(t, bus.Subscribe(shared.EventStreakBroken, func(shared.Event) error {
		broken = true
		return nil
	}))

	data := streak.NewData()
	data.Current = 5
	data.Longest = 5
	data.LastActiveDate = datekey.FromTime(day1.AddDate(0, 0, -4))
	require.NoError(t, streaks.Save(ctx, data))
	require.NoError(t, store.Set(ctx, kv.KeyStreakRepaired, []byte("true")))

	view, err := q.Status(ctx, day1)
	require.NoError(t, err)
	assert.Zero(t, view.Data.Current)
	assert.Equal(t, 5, view.Data.Longest)
	assert.True(t, broken)

	// The break was persisted.
	stored, err := streaks.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored.Current)
}

func TestStreakQuery_AtRiskWhenNoActivityToday(t *testing.T) {
	store := kv.NewMemoryStore()
	streaks := kvrepo.NewStreakRepo(store, kvrepo.NewEntryRepo(store))
	q := NewStreakQuery(streaks, nil, logger.Nop(), time.UTC)
	ctx := context.Background()

	data := streak.NewData()
	data.Current = 3
	data.Longest = 3
	data.LastActiveDate = datekey.FromTime(day1.AddDate(0, 0, -1))
	require.NoError(t, streaks.Save(ctx, data))
	require.NoError(t, store.Set(ctx, kv.KeyStreakRepaired, []byte("true")))

	view, err := q.Status(ctx, day1)
	require.NoError(t, err)
	assert.False(t, view.IsActive)
	assert.True(t, view.IsAtRisk)
	assert.Equal(t, 3, view.Data.Current)
}
