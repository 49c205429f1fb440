package progression

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_AddXP(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()

	res := s.AddXP("pushups", 50, now)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.Progress.Level)
	assert.Equal(t, 50, res.Progress.XP)
	assert.Equal(t, 50, s.TotalXP)
	assert.Equal(t, now.UnixMilli(), s.StartedAt)

	res = s.AddXP("pushups", 150, now)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, 2, res.Progress.Level)
	assert.Equal(t, 200, s.TotalXP)
}

func TestSnapshot_AddXP_StartedAtSetOnce(t *testing.T) {
	s := NewSnapshot()
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	s.AddXP("pushups", 10, first)
	s.AddXP("squats", 10, later)

	assert.Equal(t, first.UnixMilli(), s.StartedAt)
}

func TestSnapshot_AddXP_MultiLevelJump(t *testing.T) {
	s := NewSnapshot()

	res := s.AddXP("plank", 700, time.Now())
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, 3, res.Progress.Level)
}

func TestSnapshot_ProgressFor_StarterDefault(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()

	p := s.ProgressFor("pushups", now)
	assert.True(t, p.Unlocked)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.XP)

	locked := s.ProgressFor("plank", now)
	assert.False(t, locked.Unlocked)

	// Lazy defaults are not materialized into the snapshot.
	assert.Empty(t, s.Exercises)
}

func TestSnapshot_UnlockExercise_Idempotent(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()

	assert.True(t, s.UnlockExercise("squats", now))
	assert.False(t, s.UnlockExercise("squats", now))
	assert.True(t, s.IsUnlocked("squats"))
}

func TestSnapshot_IsUnlocked_StarterWithoutRecord(t *testing.T) {
	s := NewSnapshot()
	assert.True(t, s.IsUnlocked("jumping_jacks"))
	assert.False(t, s.IsUnlocked("plank"))
}

func TestSnapshot_GrantAchievement_Idempotent(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()

	assert.True(t, s.GrantAchievement("first_rep", now))
	assert.False(t, s.GrantAchievement("first_rep", now))
	assert.True(t, s.IsAchievementUnlocked("first_rep"))
	assert.Len(t, s.Achievements, 1)
}

func TestSnapshot_CountAtLevel_SkipsLocked(t *testing.T) {
	s := NewSnapshot()
	now := time.Now()

	s.AddXP("pushups", 600, now) // level 3, still locked in the record
	assert.Equal(t, 0, s.CountAtLevel(3))

	s.UnlockExercise("pushups", now)
	assert.Equal(t, 1, s.CountAtLevel(3))
	assert.Equal(t, 1, s.CountAtLevel(2))
	assert.Equal(t, 0, s.CountAtLevel(4))
}

func TestSnapshot_Normalize_RepairsCorruptRecord(t *testing.T) {
	raw := `{"exercises":{"pushups":{"xp":650,"level":1,"unlocked":true},"squats":{"xp":-10,"level":7,"unlocked":false}},"totalXp":-5}`

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	s.Normalize()

	assert.Equal(t, 3, s.Exercises["pushups"].Level)
	assert.Equal(t, 0, s.Exercises["squats"].XP)
	assert.Equal(t, 1, s.Exercises["squats"].Level)
	assert.Equal(t, 0, s.TotalXP)
	assert.NotNil(t, s.Achievements)
}

func TestSnapshot_JSONShape(t *testing.T) {
	s := NewSnapshot()
	now := time.UnixMilli(1700000000000)
	s.AddXP("pushups", 100, now)
	s.GrantAchievement("first_rep", now)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "exercises")
	assert.Contains(t, decoded, "achievements")
	assert.Contains(t, decoded, "totalXp")
	assert.Contains(t, decoded, "startedAt")
}
