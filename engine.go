// Package extflex is the embeddable habit progression engine behind the
// Ext & Flex tracker: logged exercise sets become XP, levels, tiered content
// unlocks, achievement badges, a freeze-protected day streak, and per-weight
// personal bests.
//
// The Engine is the single public surface. It owns the storage backend, the
// event bus, the ephemeral daily counters, and the celebration notification
// queue; everything else lives behind it.
package extflex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ext-flex/extflex-engine/config"
	"github.com/ext-flex/extflex-engine/internal/application/command"
	"github.com/ext-flex/extflex-engine/internal/application/eventhandler"
	"github.com/ext-flex/extflex-engine/internal/application/query"
	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/domain/progression"
	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/messaging"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kvrepo"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// Engine is the public facade over the progression pipeline.
//
// Operations are serialized by an internal mutex: the engine mirrors the
// original single-threaded event-loop model, one logged event processed to
// completion at a time. Separate engine instances over a shared backend are
// independent writers; the last write wins and a lost increment is an
// accepted hazard, not a detected error.
type Engine struct {
	cfg   *config.Config
	log   *logger.Logger
	store kv.Store
	bus   *messaging.InMemoryEventBus

	// ownsStore marks stores opened by the engine itself, closed on Close.
	ownsStore bool

	entries     *kvrepo.EntryRepo
	progression *kvrepo.ProgressionRepo
	pbs         *kvrepo.PBRepo
	streaks     *kvrepo.StreakRepo

	orch     *command.Orchestrator
	freeze   *command.UseFreezeHandler
	resets   *command.ResetHandler
	transfer *command.TransferHandler

	progQuery   *query.ProgressionQuery
	streakQuery *query.StreakQuery

	stats *eventhandler.StatsProjector

	queue *notificationQueue

	// now is swapped in tests to drive day rollovers.
	now func() time.Time

	mu       sync.Mutex
	daily    progression.DailyCounters
	dailyKey datekey.Key

	pollerStop chan struct{}
	pollerDone chan struct{}
	closed     bool
}

// New opens the configured storage backend and builds an engine over it.
// A nil config is loaded from the environment.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	store, err := persistence.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("extflex: open storage: %w", err)
	}

	e := build(cfg, store)
	e.ownsStore = true
	e.startPoller()
	return e, nil
}

// NewWithStore builds an engine over a caller-provided store. The caller
// keeps ownership of the store; Close leaves it open.
func NewWithStore(cfg *config.Config, store kv.Store) (*Engine, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	e := build(cfg, store)
	e.startPoller()
	return e, nil
}

func build(cfg *config.Config, store kv.Store) *Engine {
	log := logger.New(logger.Options{Level: logger.ParseLevel(cfg.Observability.LogLevel)})
	if cfg.Features == nil {
		cfg.Features = config.LoadFeatureFlags()
	}
	loc := cfg.App.Location
	if loc == nil {
		loc = time.Local
	}

	bus := messaging.NewInMemoryEventBus(log)

	entries := kvrepo.NewEntryRepo(store)
	prog := kvrepo.NewProgressionRepo(store)
	pbs := kvrepo.NewPBRepo(store)
	streaks := kvrepo.NewStreakRepo(store, entries)
	streaks.RepairEnabled = cfg.Features.IsEnabled(config.FeatureStreakRepair)

	e := &Engine{
		cfg:         cfg,
		log:         log,
		store:       store,
		bus:         bus,
		entries:     entries,
		progression: prog,
		pbs:         pbs,
		streaks:     streaks,
		orch:        command.NewOrchestrator(entries, prog, pbs, streaks, bus, cfg.Features, log, loc),
		freeze:      command.NewUseFreezeHandler(streaks, bus, cfg.Features, log, loc),
		resets:      command.NewResetHandler(prog, streaks, pbs, bus, log),
		transfer:    command.NewTransferHandler(entries, prog, pbs, streaks, bus, log),
		progQuery:   query.NewProgressionQuery(prog),
		streakQuery: query.NewStreakQuery(streaks, bus, log, loc),
		queue:       newNotificationQueue(cfg.Engine.NotificationBuffer),
		stats:       eventhandler.NewStatsProjector(store, log),
		now:         time.Now,
		daily:       progression.DailyCounters{Exercises: make(map[string]struct{})},
	}
	if err := e.stats.Register(bus); err != nil {
		log.Warn("lifetime stats projector not registered", logger.Err(err))
	}
	e.dailyKey = datekey.FromTime(e.now().In(loc))
	return e
}

func (e *Engine) loc() *time.Location {
	if e.cfg.App.Location != nil {
		return e.cfg.App.Location
	}
	return time.Local
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// LogExercise runs the full pipeline for one logged set and queues the
// resulting celebrations.
func (e *Engine) LogExercise(ctx context.Context, exerciseID string, value int, weight *int) (*command.LogExerciseOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, shared.ErrInvalidState
	}

	now := e.now()
	e.rolloverLocked(now)

	out, err := e.orch.LogExercise(ctx, command.LogExerciseInput{
		ExerciseID: exerciseID,
		Value:      value,
		Weight:     weight,
	}, now, &e.daily)
	if err != nil {
		return nil, err
	}

	e.enqueueLevelUp(out.XP, exerciseID, now)
	e.enqueueUnlocks(out.UnlockedExercises, now)
	e.enqueueAchievements(out.UnlockedAchievements, now)
	if out.Streak.MilestoneHit {
		e.queue.push(Notification{
			Kind:    NotificationStreakMilestone,
			Title:   fmt.Sprintf("%d-day streak!", out.Streak.NewMilestone),
			Message: "Milestone reached, keep it going",
			At:      now,
		})
	}
	return out, nil
}

// AddXP grants XP directly and runs the same unlock and achievement pipeline
// a logged set would.
func (e *Engine) AddXP(ctx context.Context, exerciseID string, amount int) (*command.AddXPOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, shared.ErrInvalidState
	}

	now := e.now()
	e.rolloverLocked(now)

	out, err := e.orch.AddXP(ctx, exerciseID, amount, now, &e.daily)
	if err != nil {
		return nil, err
	}

	e.enqueueLevelUp(out.XP, exerciseID, now)
	e.enqueueUnlocks(out.UnlockedExercises, now)
	e.enqueueAchievements(out.UnlockedAchievements, now)
	return out, nil
}

// RecordActivity marks today active on the streak without logging a set.
func (e *Engine) RecordActivity(ctx context.Context) (streak.ActivityResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return streak.ActivityResult{}, shared.ErrInvalidState
	}
	return e.orch.RecordActivity(ctx, e.now())
}

// UseFreeze spends a streak freeze on today. Rejection comes back in the
// result, not as an error.
func (e *Engine) UseFreeze(ctx context.Context) (streak.FreezeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return streak.FreezeResult{}, shared.ErrInvalidState
	}
	return e.freeze.Handle(ctx, e.now())
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// IsUnlocked reports whether the exercise is currently available.
func (e *Engine) IsUnlocked(ctx context.Context, exerciseID string) (bool, error) {
	return e.progQuery.IsUnlocked(ctx, exerciseID)
}

// UnlockProgress returns how close the exercise is to unlocking, 0-100.
func (e *Engine) UnlockProgress(ctx context.Context, exerciseID string) (int, error) {
	return e.progQuery.UnlockProgress(ctx, exerciseID)
}

// UnlockOverview returns the gate status of every catalog exercise.
func (e *Engine) UnlockOverview(ctx context.Context) ([]query.UnlockStatus, error) {
	return e.progQuery.UnlockOverview(ctx)
}

// IsAchievementUnlocked reports whether the achievement has been granted.
func (e *Engine) IsAchievementUnlocked(ctx context.Context, achievementID string) (bool, error) {
	return e.progQuery.IsAchievementUnlocked(ctx, achievementID)
}

// ExerciseLevel returns the derived level readout for one exercise.
func (e *Engine) ExerciseLevel(ctx context.Context, exerciseID string) (query.LevelInfo, error) {
	return e.progQuery.ExerciseLevel(ctx, exerciseID, e.now())
}

// LifetimeStats returns the running event tallies maintained off the bus.
func (e *Engine) LifetimeStats(ctx context.Context) (eventhandler.LifetimeStats, error) {
	return e.stats.Stats(ctx)
}

// ResetLifetimeStats wipes the tallies. The projection rebuilds from zero as
// new events arrive.
func (e *Engine) ResetLifetimeStats(ctx context.Context) error {
	return e.stats.Reset(ctx)
}

// StreakStatus returns the streak readout for right now, self-healing a
// streak that silently died since the last visit.
func (e *Engine) StreakStatus(ctx context.Context) (query.StreakView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return query.StreakView{}, shared.ErrInvalidState
	}
	return e.streakQuery.Status(ctx, e.now())
}

// ══════════════════════════════════════════════════════════════════════════════
// RESETS AND TRANSFER
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgression wipes XP, levels, unlocks, and achievements.
func (e *Engine) ResetProgression(ctx context.Context) error {
	return e.resets.ResetProgression(ctx)
}

// ResetStreak wipes the streak record.
func (e *Engine) ResetStreak(ctx context.Context) error {
	return e.resets.ResetStreak(ctx)
}

// ClearPersonalBests wipes every stored personal best.
func (e *Engine) ClearPersonalBests(ctx context.Context) error {
	return e.resets.ClearPersonalBests(ctx)
}

// Export assembles the full state dump.
func (e *Engine) Export(ctx context.Context) (*command.ExportPayload, error) {
	return e.transfer.Export(ctx, e.now())
}

// ExportJSON renders the state dump as JSON.
func (e *Engine) ExportJSON(ctx context.Context) ([]byte, error) {
	return e.transfer.ExportJSON(ctx, e.now())
}

// Import restores state from a dump produced by Export.
func (e *Engine) Import(ctx context.Context, raw []byte, mode command.ImportMode) (*command.ImportSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, shared.ErrInvalidState
	}
	return e.transfer.Import(ctx, raw, mode)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS AND EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// NextNotification dequeues the oldest pending celebration.
func (e *Engine) NextNotification() (Notification, bool) {
	return e.queue.pop()
}

// PendingNotifications returns the queue depth.
func (e *Engine) PendingNotifications() int {
	return e.queue.size()
}

// Subscribe registers a handler for one event type.
func (e *Engine) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return e.bus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for every event.
func (e *Engine) SubscribeAll(handler shared.EventHandler) error {
	return e.bus.SubscribeAll(handler)
}

// Close stops the rollover poller, closes the bus, and closes the store if
// the engine opened it.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	stop := e.pollerStop
	done := e.pollerDone
	e.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	_ = e.bus.Close()
	if e.ownsStore {
		return e.store.Close()
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY ROLLOVER
// ══════════════════════════════════════════════════════════════════════════════

// rolloverLocked resets the daily counters when the local day key moved on.
// The counters are ephemeral: a restart also resets them, even mid-day.
func (e *Engine) rolloverLocked(now time.Time) {
	key := datekey.FromTime(now.In(e.loc()))
	if key == e.dailyKey {
		return
	}
	e.dailyKey = key
	e.daily = progression.DailyCounters{Exercises: make(map[string]struct{})}
	e.log.Debug("daily counters rolled over", logger.String("day", key.String()))
}

// startPoller launches the background day-change check. The counters also
// self-heal on access, so the poller only tightens the reset latency.
func (e *Engine) startPoller() {
	if !e.cfg.Features.IsEnabled(config.FeatureRolloverPoller) {
		return
	}
	interval := e.cfg.Engine.RolloverCheckInterval
	if interval <= 0 {
		interval = time.Minute
	}

	e.pollerStop = make(chan struct{})
	e.pollerDone = make(chan struct{})

	go func() {
		defer close(e.pollerDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.mu.Lock()
				e.rolloverLocked(e.now())
				e.mu.Unlock()
			case <-e.pollerStop:
				return
			}
		}
	}()
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION ASSEMBLY
// ══════════════════════════════════════════════════════════════════════════════

func (e *Engine) enqueueLevelUp(res progression.AddXPResult, exerciseID string, now time.Time) {
	if !res.LeveledUp {
		return
	}
	name := exerciseID
	if def, ok := exercise.ByID(exerciseID); ok {
		name = def.Name
	}
	e.queue.push(Notification{
		Kind:    NotificationLevelUp,
		RefID:   exerciseID,
		Title:   fmt.Sprintf("%s reached Level %d", name, res.Progress.Level),
		Message: progression.LevelTitle(res.Progress.Level),
		At:      now,
	})
}

func (e *Engine) enqueueUnlocks(ids []string, now time.Time) {
	for _, id := range ids {
		name := id
		if def, ok := exercise.ByID(id); ok {
			name = def.Name
		}
		e.queue.push(Notification{
			Kind:    NotificationExerciseUnlocked,
			RefID:   id,
			Title:   name,
			Message: "New exercise unlocked",
			At:      now,
		})
	}
}

func (e *Engine) enqueueAchievements(granted []progression.Achievement, now time.Time) {
	for _, a := range granted {
		e.queue.push(Notification{
			Kind:    NotificationAchievementUnlocked,
			RefID:   a.ID,
			Title:   a.Name,
			Message: a.Description,
			At:      now,
		})
	}
}
