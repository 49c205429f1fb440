// Package query holds the read-side lookups. Queries read the records fresh
// on every call and never mutate them, with one documented exception: the
// streak status query self-heals a stale streak on access, because the engine
// cannot rely on being invoked every day.
package query

import (
	"context"
	"time"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/domain/progression"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
)

// UnlockStatus is the per-exercise gate readout for locked-card display.
type UnlockStatus struct {
	ExerciseID  string
	Unlocked    bool
	Progress    int
	Description string
}

// LevelInfo is the derived level readout for one exercise.
type LevelInfo struct {
	ExerciseID string
	XP         int
	Level      int
	Title      string
	Progress   int
}

// ProgressionQuery answers unlock, achievement, and level lookups.
type ProgressionQuery struct {
	progression *kvrepo.ProgressionRepo
}

// NewProgressionQuery wires the query side over the snapshot repository.
func NewProgressionQuery(prog *kvrepo.ProgressionRepo) *ProgressionQuery {
	return &ProgressionQuery{progression: prog}
}

// IsUnlocked reports whether the exercise is currently available.
func (q *ProgressionQuery) IsUnlocked(ctx context.Context, exerciseID string) (bool, error) {
	snap, err := q.progression.Get(ctx)
	if err != nil {
		return false, err
	}
	return snap.IsUnlocked(exerciseID), nil
}

// UnlockProgress returns how close the exercise is to unlocking, 0-100.
// Unknown exercises report zero progress.
func (q *ProgressionQuery) UnlockProgress(ctx context.Context, exerciseID string) (int, error) {
	req, ok := progression.RequirementFor(exerciseID)
	if !ok {
		return 0, nil
	}
	snap, err := q.progression.Get(ctx)
	if err != nil {
		return 0, err
	}
	if snap.IsUnlocked(exerciseID) {
		return 100, nil
	}
	return req.Progress(snap), nil
}

// UnlockOverview returns the gate status of every catalog exercise, in
// catalog order.
func (q *ProgressionQuery) UnlockOverview(ctx context.Context) ([]UnlockStatus, error) {
	snap, err := q.progression.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UnlockStatus, 0, len(progression.UnlockCatalog))
	for _, cfg := range progression.UnlockCatalog {
		status := UnlockStatus{
			ExerciseID:  cfg.ExerciseID,
			Unlocked:    snap.IsUnlocked(cfg.ExerciseID),
			Description: cfg.Requirement.Description,
		}
		if status.Unlocked {
			status.Progress = 100
		} else {
			status.Progress = cfg.Requirement.Progress(snap)
		}
		out = append(out, status)
	}
	return out, nil
}

// IsAchievementUnlocked reports whether the achievement has been granted.
func (q *ProgressionQuery) IsAchievementUnlocked(ctx context.Context, achievementID string) (bool, error) {
	snap, err := q.progression.Get(ctx)
	if err != nil {
		return false, err
	}
	return snap.IsAchievementUnlocked(achievementID), nil
}

// ExerciseLevel returns the derived level readout for one exercise. Unknown
// exercises report the lazy default.
func (q *ProgressionQuery) ExerciseLevel(ctx context.Context, exerciseID string, now time.Time) (LevelInfo, error) {
	snap, err := q.progression.Get(ctx)
	if err != nil {
		return LevelInfo{}, err
	}

	p := snap.ProgressFor(exerciseID, now)
	return LevelInfo{
		ExerciseID: exerciseID,
		XP:         p.XP,
		Level:      p.Level,
		Title:      progression.LevelTitle(p.Level),
		Progress:   progression.LevelProgress(p.XP, p.Level),
	}, nil
}

// TotalXP returns the aggregate XP counter.
func (q *ProgressionQuery) TotalXP(ctx context.Context) (int, error) {
	snap, err := q.progression.Get(ctx)
	if err != nil {
		return 0, err
	}
	return snap.TotalXP, nil
}

// CatalogSize returns the number of exercises in the registry.
func (q *ProgressionQuery) CatalogSize() int {
	return exercise.Count()
}
