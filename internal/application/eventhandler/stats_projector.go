// Package eventhandler contains event-driven subscribers (Event Handlers).
// Handlers react to domain events published on the bus and maintain derived
// state; they never drive the write pipeline themselves.
package eventhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIFETIME STATS PROJECTOR
// Folds celebration events into a single lifetime-stats document. The document
// is derived state: it can be deleted at any time and simply starts counting
// again from zero.
// ══════════════════════════════════════════════════════════════════════════════

// LifetimeStats is the projected document.
type LifetimeStats struct {
	// XPEvents counts every XP grant, logged sets and achievement rewards alike.
	XPEvents int `json:"xpEvents"`

	// RewardXP is the XP earned from achievement rewards only.
	RewardXP int `json:"rewardXP"`

	LevelUps             int `json:"levelUps"`
	ExercisesUnlocked    int `json:"exercisesUnlocked"`
	AchievementsUnlocked int `json:"achievementsUnlocked"`
	PersonalBests        int `json:"personalBests"`
	FreezesUsed          int `json:"freezesUsed"`
	StreaksBroken        int `json:"streaksBroken"`

	// LastEventAt is the unix timestamp of the most recent counted event.
	LastEventAt int64 `json:"lastEventAt"`
}

// StatsProjector subscribes to celebration events and keeps LifetimeStats
// current in the store.
type StatsProjector struct {
	store kv.Store
	log   *logger.Logger

	// mu serializes the read-modify-write cycle; the bus delivers events
	// synchronously but callers of Stats may race with it.
	mu sync.Mutex
}

// NewStatsProjector creates the projector. It does not subscribe; call
// Register with the bus the write side publishes on.
func NewStatsProjector(store kv.Store, log *logger.Logger) *StatsProjector {
	if log == nil {
		log = logger.Nop()
	}
	return &StatsProjector{store: store, log: log}
}

// Register subscribes the projector to every event type it folds.
func (p *StatsProjector) Register(bus shared.EventBus) error {
	types := []shared.EventType{
		shared.EventXPGained,
		shared.EventLevelUp,
		shared.EventExerciseUnlocked,
		shared.EventAchievementUnlocked,
		shared.EventNewPersonalBest,
		shared.EventStreakFrozen,
		shared.EventStreakBroken,
	}
	for _, t := range types {
		if err := bus.Subscribe(t, p.handle); err != nil {
			return fmt.Errorf("eventhandler: subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Stats returns the current projection. A missing document reads as all zeros.
func (p *StatsProjector) Stats(ctx context.Context) (LifetimeStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(ctx)
}

// Reset deletes the projection.
func (p *StatsProjector) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Remove(ctx, kv.KeyStats)
}

func (p *StatsProjector) handle(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx := context.Background()
	stats, err := p.load(ctx)
	if err != nil {
		return err
	}

	switch e := event.(type) {
	case shared.XPGainedEvent:
		stats.XPEvents++
		if e.Source == "achievement_reward" {
			stats.RewardXP += e.Amount
		}
	case shared.LevelUpEvent:
		stats.LevelUps++
	case shared.ExerciseUnlockedEvent:
		stats.ExercisesUnlocked++
	case shared.AchievementUnlockedEvent:
		stats.AchievementsUnlocked++
	case shared.NewPersonalBestEvent:
		stats.PersonalBests++
	case shared.StreakFrozenEvent:
		stats.FreezesUsed++
	case shared.StreakBrokenEvent:
		stats.StreaksBroken++
	default:
		return nil
	}
	stats.LastEventAt = event.OccurredAt().Unix()

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("eventhandler: marshal stats: %w", err)
	}
	if err := p.store.Set(ctx, kv.KeyStats, data); err != nil {
		p.log.Warn("failed to persist lifetime stats", logger.Err(err))
		return err
	}
	return nil
}

// load reads the projection, treating a missing or malformed document as empty.
func (p *StatsProjector) load(ctx context.Context) (LifetimeStats, error) {
	var stats LifetimeStats

	data, err := p.store.Get(ctx, kv.KeyStats)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return stats, nil
		}
		return stats, fmt.Errorf("eventhandler: load stats: %w", err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		p.log.Warn("discarding malformed lifetime stats document", logger.Err(err))
		return LifetimeStats{}, nil
	}
	return stats, nil
}
