package progression

import (
	"time"
)

// ExerciseProgress is the persisted per-exercise progression record.
// The level field is always recomputed from xp before the record is written;
// it is carried in the JSON for the UI but never trusted on read.
type ExerciseProgress struct {
	// XP is the total XP earned for this exercise.
	XP int `json:"xp"`

	// Level is the current level (1-10), always CalculateLevel(XP).
	Level int `json:"level"`

	// Unlocked reports whether the exercise is available. Monotone: an
	// unlocked exercise never locks again.
	Unlocked bool `json:"unlocked"`

	// UnlockedAt is when the exercise unlocked, in Unix milliseconds.
	// Zero when locked.
	UnlockedAt int64 `json:"unlockedAt,omitempty"`
}

// UnlockedAchievement is one granted achievement. Set semantics: an
// achievement ID appears at most once in a snapshot.
type UnlockedAchievement struct {
	AchievementID string `json:"achievementId"`
	UnlockedAt    int64  `json:"unlockedAt"`
}

// Snapshot is the full persisted progression state.
//
// TotalXP is not the sum of per-exercise XP: achievement rewards are added to
// both the triggering exercise and the total, so TotalXP >= sum of exercise XP.
type Snapshot struct {
	// Exercises maps exercise ID to its progress record.
	Exercises map[string]ExerciseProgress `json:"exercises"`

	// Achievements lists granted achievements, in grant order.
	Achievements []UnlockedAchievement `json:"achievements"`

	// TotalXP is the aggregate XP across all exercises plus rewards.
	TotalXP int `json:"totalXp"`

	// StartedAt is the Unix-millisecond timestamp of the first XP gain ever.
	// Zero until then; set once.
	StartedAt int64 `json:"startedAt,omitempty"`
}

// NewSnapshot returns the default empty progression state.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Exercises:    make(map[string]ExerciseProgress),
		Achievements: make([]UnlockedAchievement, 0),
	}
}

// Normalize repairs a snapshot loaded from storage: nil maps from partial
// JSON become empty, and every level is re-derived from xp so a corrupt or
// hand-edited record can never carry an inconsistent level.
func (s *Snapshot) Normalize() {
	if s.Exercises == nil {
		s.Exercises = make(map[string]ExerciseProgress)
	}
	if s.Achievements == nil {
		s.Achievements = make([]UnlockedAchievement, 0)
	}
	for id, p := range s.Exercises {
		if p.XP < 0 {
			p.XP = 0
		}
		p.Level = CalculateLevel(p.XP)
		s.Exercises[id] = p
	}
	if s.TotalXP < 0 {
		s.TotalXP = 0
	}
}

// ProgressFor returns the progress record for an exercise, materializing the
// lazy default (level 1, unlocked only for starters) when none is stored.
func (s *Snapshot) ProgressFor(exerciseID string, now time.Time) ExerciseProgress {
	if p, ok := s.Exercises[exerciseID]; ok {
		return p
	}
	p := ExerciseProgress{XP: 0, Level: 1}
	if IsStarter(exerciseID) {
		p.Unlocked = true
		p.UnlockedAt = now.UnixMilli()
	}
	return p
}

// AddXPResult describes the outcome of an XP addition.
type AddXPResult struct {
	Progress      ExerciseProgress
	LeveledUp     bool
	PreviousLevel int
	NewTotalXP    int
}

// AddXP adds XP to one exercise, re-derives its level, and updates the
// aggregate counters. First-ever XP gain stamps StartedAt.
func (s *Snapshot) AddXP(exerciseID string, amount int, now time.Time) AddXPResult {
	current := s.ProgressFor(exerciseID, now)
	previousLevel := current.Level

	current.XP += amount
	current.Level = CalculateLevel(current.XP)
	s.Exercises[exerciseID] = current
	s.TotalXP += amount

	if s.StartedAt == 0 {
		s.StartedAt = now.UnixMilli()
	}

	return AddXPResult{
		Progress:      current,
		LeveledUp:     current.Level > previousLevel,
		PreviousLevel: previousLevel,
		NewTotalXP:    s.TotalXP,
	}
}

// UnlockExercise marks an exercise unlocked. Idempotent: unlocking an already
// unlocked exercise reports false and changes nothing.
func (s *Snapshot) UnlockExercise(exerciseID string, now time.Time) bool {
	current := s.ProgressFor(exerciseID, now)
	if current.Unlocked {
		return false
	}
	current.Unlocked = true
	current.UnlockedAt = now.UnixMilli()
	s.Exercises[exerciseID] = current
	return true
}

// IsUnlocked reports whether the exercise is available.
func (s *Snapshot) IsUnlocked(exerciseID string) bool {
	if p, ok := s.Exercises[exerciseID]; ok {
		return p.Unlocked
	}
	return IsStarter(exerciseID)
}

// GrantAchievement appends an achievement grant. Idempotent: a second grant
// of the same ID reports false and changes nothing (append-only set).
func (s *Snapshot) GrantAchievement(achievementID string, now time.Time) bool {
	if s.IsAchievementUnlocked(achievementID) {
		return false
	}
	s.Achievements = append(s.Achievements, UnlockedAchievement{
		AchievementID: achievementID,
		UnlockedAt:    now.UnixMilli(),
	})
	return true
}

// IsAchievementUnlocked reports whether the achievement has been granted.
func (s *Snapshot) IsAchievementUnlocked(achievementID string) bool {
	for _, a := range s.Achievements {
		if a.AchievementID == achievementID {
			return true
		}
	}
	return false
}

// UnlockedCount returns the number of unlocked exercises recorded in the
// snapshot. Starters only count once they have a materialized record.
func (s *Snapshot) UnlockedCount() int {
	n := 0
	for _, p := range s.Exercises {
		if p.Unlocked {
			n++
		}
	}
	return n
}

// CountAtLevel returns the number of unlocked exercises at or above the level.
func (s *Snapshot) CountAtLevel(level int) int {
	n := 0
	for _, p := range s.Exercises {
		if p.Unlocked && p.Level >= level {
			n++
		}
	}
	return n
}

// HighestLevel returns the highest level held by any exercise, at least 1.
func (s *Snapshot) HighestLevel() int {
	best := 1
	for _, p := range s.Exercises {
		if p.Level > best {
			best = p.Level
		}
	}
	return best
}

// MasteredCount returns the number of exercises at the level cap.
func (s *Snapshot) MasteredCount() int {
	n := 0
	for _, p := range s.Exercises {
		if p.Level >= MaxLevel {
			n++
		}
	}
	return n
}
