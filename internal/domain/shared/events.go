// Package shared contains common domain types, errors, and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Record-change events, one per logical persisted record. Consumers that
	// render a single record subscribe to exactly one of these instead of a
	// store-wide broadcast channel.
	EventProgressionChanged EventType = "progression.changed"
	EventStreakChanged      EventType = "streak.changed"
	EventRecordsChanged     EventType = "records.changed"
	EventEntriesChanged     EventType = "entries.changed"

	// Progression events
	EventXPGained            EventType = "progression.xp_gained"
	EventLevelUp             EventType = "progression.level_up"
	EventExerciseUnlocked    EventType = "progression.exercise_unlocked"
	EventAchievementUnlocked EventType = "progression.achievement_unlocked"

	// Streak events
	EventStreakUpdated   EventType = "streak.updated"
	EventStreakMilestone EventType = "streak.milestone"
	EventStreakFrozen    EventType = "streak.frozen"
	EventStreakBroken    EventType = "streak.broken"

	// Personal-best events
	EventNewPersonalBest EventType = "records.new_pb"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single event.
type EventHandler func(Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus combines publishing with subscription management.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Record-Change Events
// ═══════════════════════════════════════════════════════════════════════════

// RecordChangedEvent is emitted whenever a persisted logical record is written.
// The aggregate ID is the record name ("progression", "streak", ...).
type RecordChangedEvent struct {
	BaseEvent
	Record string `json:"record"`
}

// Payload implements Event interface.
func (e RecordChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"record": e.Record}
}

// NewRecordChangedEvent creates a change event for the given record name.
func NewRecordChangedEvent(eventType EventType, record string) RecordChangedEvent {
	return RecordChangedEvent{
		BaseEvent: NewBaseEvent(eventType, record),
		Record:    record,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when an exercise earns XP.
type XPGainedEvent struct {
	BaseEvent
	ExerciseID string `json:"exercise_id"`
	Amount     int    `json:"amount"`
	NewTotalXP int    `json:"new_total_xp"`
	Source     string `json:"source"` // "exercise_logged" or "achievement_reward"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"exercise_id":  e.ExerciseID,
		"amount":       e.Amount,
		"new_total_xp": e.NewTotalXP,
		"source":       e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(exerciseID string, amount, newTotalXP int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent:  NewBaseEvent(EventXPGained, exerciseID),
		ExerciseID: exerciseID,
		Amount:     amount,
		NewTotalXP: newTotalXP,
		Source:     source,
	}
}

// LevelUpEvent is emitted when an exercise reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	ExerciseID    string `json:"exercise_id"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"exercise_id":    e.ExerciseID,
		"previous_level": e.PreviousLevel,
		"new_level":      e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(exerciseID string, previousLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:     NewBaseEvent(EventLevelUp, exerciseID),
		ExerciseID:    exerciseID,
		PreviousLevel: previousLevel,
		NewLevel:      newLevel,
	}
}

// ExerciseUnlockedEvent is emitted when a gated exercise becomes available.
type ExerciseUnlockedEvent struct {
	BaseEvent
	ExerciseID string `json:"exercise_id"`
}

// Payload implements Event interface.
func (e ExerciseUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"exercise_id": e.ExerciseID}
}

// NewExerciseUnlockedEvent creates a new ExerciseUnlockedEvent.
func NewExerciseUnlockedEvent(exerciseID string) ExerciseUnlockedEvent {
	return ExerciseUnlockedEvent{
		BaseEvent:  NewBaseEvent(EventExerciseUnlocked, exerciseID),
		ExerciseID: exerciseID,
	}
}

// AchievementUnlockedEvent is emitted when an achievement is granted.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	XPReward      int    `json:"xp_reward,omitempty"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"xp_reward":      e.XPReward,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(achievementID string, xpReward int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, achievementID),
		AchievementID: achievementID,
		XPReward:      xpReward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when activity extends or restarts the streak.
type StreakUpdatedEvent struct {
	BaseEvent
	Current int  `json:"current"`
	Longest int  `json:"longest"`
	Resumed bool `json:"resumed"` // true when a broken streak restarted at 1
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"current": e.Current,
		"longest": e.Longest,
		"resumed": e.Resumed,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(current, longest int, resumed bool) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, "streak"),
		Current:   current,
		Longest:   longest,
		Resumed:   resumed,
	}
}

// StreakMilestoneEvent is emitted when the streak hits a milestone length.
type StreakMilestoneEvent struct {
	BaseEvent
	Milestone int `json:"milestone"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"milestone": e.Milestone}
}

// NewStreakMilestoneEvent creates a new StreakMilestoneEvent.
func NewStreakMilestoneEvent(milestone int) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent: NewBaseEvent(EventStreakMilestone, "streak"),
		Milestone: milestone,
	}
}

// StreakFrozenEvent is emitted when a freeze is consumed for the current day.
type StreakFrozenEvent struct {
	BaseEvent
	Date             string `json:"date"`
	FreezesRemaining int    `json:"freezes_remaining"`
}

// Payload implements Event interface.
func (e StreakFrozenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"date":              e.Date,
		"freezes_remaining": e.FreezesRemaining,
	}
}

// NewStreakFrozenEvent creates a new StreakFrozenEvent.
func NewStreakFrozenEvent(date string, freezesRemaining int) StreakFrozenEvent {
	return StreakFrozenEvent{
		BaseEvent:        NewBaseEvent(EventStreakFrozen, "streak"),
		Date:             date,
		FreezesRemaining: freezesRemaining,
	}
}

// StreakBrokenEvent is emitted when validation force-breaks a stale streak.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"previous_streak": e.PreviousStreak}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, "streak"),
		PreviousStreak: previousStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Personal-Best Events
// ═══════════════════════════════════════════════════════════════════════════

// NewPersonalBestEvent is emitted when a logged value supersedes the stored record.
type NewPersonalBestEvent struct {
	BaseEvent
	ExerciseID    string `json:"exercise_id"`
	Value         int    `json:"value"`
	Weight        *int   `json:"weight,omitempty"`
	PreviousValue int    `json:"previous_value"` // 0 when there was no previous PB
}

// Payload implements Event interface.
func (e NewPersonalBestEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"exercise_id":    e.ExerciseID,
		"value":          e.Value,
		"previous_value": e.PreviousValue,
	}
	if e.Weight != nil {
		p["weight"] = *e.Weight
	}
	return p
}

// NewNewPersonalBestEvent creates a new NewPersonalBestEvent.
func NewNewPersonalBestEvent(exerciseID string, value int, weight *int, previousValue int) NewPersonalBestEvent {
	return NewPersonalBestEvent{
		BaseEvent:     NewBaseEvent(EventNewPersonalBest, exerciseID),
		ExerciseID:    exerciseID,
		Value:         value,
		Weight:        weight,
		PreviousValue: previousValue,
	}
}
