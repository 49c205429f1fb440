// Package command holds the write-side handlers. Each handler owns one
// state-changing operation: it reads the records it needs fresh from the
// repositories, applies the domain rules, writes the changed records back,
// and publishes the resulting events.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/ext-flex/extflex-engine/config"
	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/domain/progression"
	"github.com/ext-flex/extflex-engine/internal/domain/records"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// XP source tags carried on XPGainedEvent.
const (
	XPSourceExercise = "exercise_logged"
	XPSourceReward   = "achievement_reward"
)

// LogExerciseInput is one logged set.
type LogExerciseInput struct {
	ExerciseID string
	Value      int
	Weight     *int
}

// LogExerciseOutput collects everything one logged set produced, in the order
// it happened. UnlockedExercises and UnlockedAchievements are the raw material
// for the notification queue.
type LogExerciseOutput struct {
	Entry  exercise.Entry
	PB     records.CheckResult
	XP     progression.AddXPResult
	Streak streak.ActivityResult

	// StreakLength is the streak after today's activity was recorded.
	StreakLength int

	UnlockedExercises    []string
	UnlockedAchievements []progression.Achievement
}

// AddXPOutput is the result of a direct XP grant.
type AddXPOutput struct {
	XP                   progression.AddXPResult
	UnlockedExercises    []string
	UnlockedAchievements []progression.Achievement
}

// Orchestrator sequences the progression pipeline for a single logged event:
// personal-best check, streak activity, XP addition, unlock scan, achievement
// scan with reward XP folded back in. It is the only writer of the full
// progression snapshot; each logical record is read fresh at the start of a
// call and written back once.
type Orchestrator struct {
	entries     *kvrepo.EntryRepo
	progression *kvrepo.ProgressionRepo
	pbs         *kvrepo.PBRepo
	streaks     *kvrepo.StreakRepo
	bus         shared.EventPublisher
	features    *config.FeatureFlags
	log         *logger.Logger
	loc         *time.Location
}

// NewOrchestrator wires the pipeline over the given repositories.
func NewOrchestrator(
	entries *kvrepo.EntryRepo,
	prog *kvrepo.ProgressionRepo,
	pbs *kvrepo.PBRepo,
	streaks *kvrepo.StreakRepo,
	bus shared.EventPublisher,
	features *config.FeatureFlags,
	log *logger.Logger,
	loc *time.Location,
) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	if features == nil {
		features = config.LoadFeatureFlags()
	}
	return &Orchestrator{
		entries:     entries,
		progression: prog,
		pbs:         pbs,
		streaks:     streaks,
		bus:         bus,
		features:    features,
		log:         log,
		loc:         loc,
	}
}

// LogExercise runs the full pipeline for one logged set. XP is awarded one
// point per rep or second logged. The daily counters are updated in place so
// the caller's same-day state stays current across calls.
//
// The steps are at-least-once, not atomic: a failure partway leaves earlier
// writes in place with no rollback.
func (o *Orchestrator) LogExercise(ctx context.Context, in LogExerciseInput, now time.Time, daily *progression.DailyCounters) (*LogExerciseOutput, error) {
	entry, err := exercise.NewEntry(in.ExerciseID, in.Value, in.Weight, now)
	if err != nil {
		return nil, err
	}

	out := &LogExerciseOutput{Entry: entry}

	// Streak first: the one-time repair scan must not see today's entry as
	// pre-existing history on a fresh install.
	streakLength, err := o.recordStreakActivity(ctx, now, out)
	if err != nil {
		return nil, err
	}

	if err := o.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("log exercise: %w", err)
	}
	o.publish(shared.NewRecordChangedEvent(shared.EventEntriesChanged, "entries"))

	if err := o.checkPersonalBest(ctx, in, now, out); err != nil {
		return nil, err
	}

	snap, err := o.progression.Get(ctx)
	if err != nil {
		return nil, err
	}

	xpRes := o.applyXP(snap, in.ExerciseID, in.Value, now, daily, XPSourceExercise)
	daily.Exercises[in.ExerciseID] = struct{}{}
	out.XP = xpRes

	out.UnlockedExercises = o.scanUnlocks(snap, now)
	out.UnlockedAchievements = o.scanAchievements(ctx, snap, in.ExerciseID, streakLength, now, daily, out)

	if err := o.progression.Save(ctx, snap); err != nil {
		return nil, err
	}
	o.publish(shared.NewRecordChangedEvent(shared.EventProgressionChanged, "progression"))

	o.log.Info("exercise logged",
		logger.ExerciseID(in.ExerciseID),
		logger.XPAmount(in.Value),
		logger.Bool("new_pb", out.PB.IsNewPB),
		logger.StreakDays(streakLength),
	)
	return out, nil
}

// AddXP grants XP outside of a logged set and runs the same unlock and
// achievement pipeline, so a grant can trigger level-ups and unlocks exactly
// like an ordinary log would.
func (o *Orchestrator) AddXP(ctx context.Context, exerciseID string, amount int, now time.Time, daily *progression.DailyCounters) (*AddXPOutput, error) {
	if !exercise.IsValidID(exerciseID) {
		return nil, shared.ErrExerciseNotFound
	}
	if amount < 0 {
		return nil, shared.ErrNegativeXP
	}

	today := datekey.FromTime(now.In(o.loc))
	weekStart := datekey.WeekStart(now.In(o.loc))
	streakData, err := o.streaks.Get(ctx, today, weekStart, o.loc)
	if err != nil {
		return nil, err
	}

	snap, err := o.progression.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := &AddXPOutput{}
	out.XP = o.applyXP(snap, exerciseID, amount, now, daily, XPSourceExercise)
	out.UnlockedExercises = o.scanUnlocks(snap, now)

	carrier := &LogExerciseOutput{}
	out.UnlockedAchievements = o.scanAchievements(ctx, snap, exerciseID, streakData.Current, now, daily, carrier)
	out.UnlockedExercises = append(out.UnlockedExercises, carrier.UnlockedExercises...)

	if err := o.progression.Save(ctx, snap); err != nil {
		return nil, err
	}
	o.publish(shared.NewRecordChangedEvent(shared.EventProgressionChanged, "progression"))
	return out, nil
}

// RecordActivity marks today active without logging a set. Exposed for
// callers that track activity from outside the exercise log.
func (o *Orchestrator) RecordActivity(ctx context.Context, now time.Time) (streak.ActivityResult, error) {
	out := &LogExerciseOutput{}
	if _, err := o.recordStreakActivity(ctx, now, out); err != nil {
		return streak.ActivityResult{}, err
	}
	return out.Streak, nil
}

// checkPersonalBest runs the PB comparison and persists only on a new best.
func (o *Orchestrator) checkPersonalBest(ctx context.Context, in LogExerciseInput, now time.Time, out *LogExerciseOutput) error {
	if def, ok := exercise.ByID(in.ExerciseID); ok && def.RequiresWeight {
		if !o.features.IsEnabled(config.FeatureWeightedPBs) {
			return nil
		}
	}

	pbs, err := o.pbs.Get(ctx, in.ExerciseID)
	if err != nil {
		return err
	}

	out.PB = pbs.Check(in.Value, in.Weight, now)
	if !out.PB.IsNewPB {
		return nil
	}

	if err := o.pbs.Save(ctx, pbs); err != nil {
		return err
	}

	previous := 0
	if out.PB.PreviousPB != nil {
		previous = out.PB.PreviousPB.Value
	}
	o.publish(shared.NewNewPersonalBestEvent(in.ExerciseID, in.Value, in.Weight, previous))
	o.publish(shared.NewRecordChangedEvent(shared.EventRecordsChanged, "personal_bests"))
	return nil
}

// recordStreakActivity marks today active and returns the resulting streak
// length for the achievement scan.
func (o *Orchestrator) recordStreakActivity(ctx context.Context, now time.Time, out *LogExerciseOutput) (int, error) {
	today := datekey.FromTime(now.In(o.loc))
	weekStart := datekey.WeekStart(now.In(o.loc))

	data, err := o.streaks.Get(ctx, today, weekStart, o.loc)
	if err != nil {
		return 0, err
	}

	out.Streak = data.RecordActivity(today, now)
	out.StreakLength = data.Current
	if !out.Streak.StreakIncreased {
		return data.Current, nil
	}

	if err := o.streaks.Save(ctx, data); err != nil {
		return 0, err
	}
	o.publish(shared.NewStreakUpdatedEvent(data.Current, data.Longest, out.Streak.Broken))
	if out.Streak.MilestoneHit {
		o.publish(shared.NewStreakMilestoneEvent(out.Streak.NewMilestone))
	}
	o.publish(shared.NewRecordChangedEvent(shared.EventStreakChanged, "streak"))
	return data.Current, nil
}

// applyXP adds XP to the snapshot, folds it into the daily counters, and
// publishes the gain and any level-up.
func (o *Orchestrator) applyXP(snap *progression.Snapshot, exerciseID string, amount int, now time.Time, daily *progression.DailyCounters, source string) progression.AddXPResult {
	res := snap.AddXP(exerciseID, amount, now)
	daily.XP += amount

	o.publish(shared.NewXPGainedEvent(exerciseID, amount, res.NewTotalXP, source))
	if res.LeveledUp {
		o.publish(shared.NewLevelUpEvent(exerciseID, res.PreviousLevel, res.Progress.Level))
	}
	return res
}

// scanUnlocks re-evaluates every still-locked catalog item and unlocks the
// ones whose requirement now holds.
func (o *Orchestrator) scanUnlocks(snap *progression.Snapshot, now time.Time) []string {
	var unlocked []string
	for _, cfg := range progression.UnlockCatalog {
		if snap.IsUnlocked(cfg.ExerciseID) {
			continue
		}
		if !cfg.Requirement.IsMet(snap) {
			continue
		}
		if snap.UnlockExercise(cfg.ExerciseID, now) {
			unlocked = append(unlocked, cfg.ExerciseID)
			o.publish(shared.NewExerciseUnlockedEvent(cfg.ExerciseID))
		}
	}
	return unlocked
}

// scanAchievements walks the achievement catalog once, in order. Reward XP is
// folded into the snapshot and daily counters before later achievements are
// evaluated, so a reward can satisfy the next condition within the same walk.
// The pass is bounded to this single walk: a reward granted near the end of
// the catalog cannot re-trigger an earlier entry until the next event.
func (o *Orchestrator) scanAchievements(ctx context.Context, snap *progression.Snapshot, exerciseID string, streakLength int, now time.Time, daily *progression.DailyCounters, out *LogExerciseOutput) []progression.Achievement {
	rewardsEnabled := o.features.IsEnabled(config.FeatureAchievementRewards)

	var granted []progression.Achievement
	for _, a := range progression.Achievements {
		if snap.IsAchievementUnlocked(a.ID) {
			continue
		}
		evalCtx := progression.EvalContext{
			Snapshot:     snap,
			Daily:        *daily,
			StreakLength: streakLength,
			CatalogSize:  exercise.Count(),
		}
		if !progression.Evaluate(a, evalCtx) {
			continue
		}

		snap.GrantAchievement(a.ID, now)
		granted = append(granted, a)
		o.publish(shared.NewAchievementUnlockedEvent(a.ID, a.XPReward))
		o.log.Info("achievement unlocked", logger.AchievementID(a.ID), logger.XPAmount(a.XPReward))

		if a.XPReward > 0 && rewardsEnabled {
			o.applyXP(snap, exerciseID, a.XPReward, now, daily, XPSourceReward)
			out.UnlockedExercises = append(out.UnlockedExercises, o.scanUnlocks(snap, now)...)
		}
	}
	return granted
}

func (o *Orchestrator) publish(event shared.Event) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(event); err != nil {
		o.log.Warn("event publish failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}
