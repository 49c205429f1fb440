// Package streak implements the consecutive-day activity ledger: increments,
// freeze consumption, weekly freeze refills, milestone detection, self-healing
// validation, and the history rebuild used by the one-time date-key repair.
//
// All functions are pure state transitions over Data with explicit day keys.
// Persistence and "what day is it" both live with the caller.
package streak

import (
	"math"
	"time"

	"github.com/ext-flex/extflex-engine/pkg/datekey"
)

// FreezesPerWeek is the weekly freeze allowance. Refills every Monday.
const FreezesPerWeek = 2

// Milestones are the streak lengths that trigger a celebration, ascending.
var Milestones = []int{7, 14, 30, 60, 90, 180, 365}

// Data is the persisted streak record.
type Data struct {
	// Current is the consecutive-day count. Zero means no live streak.
	Current int `json:"current"`

	// Longest is the best streak ever reached. Never less than Current.
	Longest int `json:"longest"`

	// LastActiveDate is the day key of the most recent activity.
	LastActiveDate datekey.Key `json:"lastActiveDate,omitempty"`

	// FreezesRemaining is the freeze allowance left this week.
	FreezesRemaining int `json:"freezesRemaining"`

	// FreezesResetDate is the week-start key of the last freeze refill.
	FreezesResetDate datekey.Key `json:"freezesResetDate,omitempty"`

	// FrozenDates lists the day keys on which a freeze was spent.
	// Cleared when the streak breaks.
	FrozenDates []datekey.Key `json:"frozenDates"`

	// StartedAt is when the first activity was recorded, in Unix milliseconds.
	StartedAt int64 `json:"startedAt,omitempty"`
}

// NewData returns the default streak record for a fresh install.
func NewData() Data {
	return Data{
		FreezesRemaining: FreezesPerWeek,
		FrozenDates:      make([]datekey.Key, 0),
	}
}

// Normalize repairs a record loaded from storage: nil slices from partial
// JSON become empty and negative counters are clamped.
func (d *Data) Normalize() {
	if d.FrozenDates == nil {
		d.FrozenDates = make([]datekey.Key, 0)
	}
	if d.Current < 0 {
		d.Current = 0
	}
	if d.Longest < d.Current {
		d.Longest = d.Current
	}
	if d.FreezesRemaining < 0 {
		d.FreezesRemaining = 0
	}
}

// IsFrozen reports whether a freeze was spent on the given day.
func (d *Data) IsFrozen(day datekey.Key) bool {
	for _, f := range d.FrozenDates {
		if f == day {
			return true
		}
	}
	return false
}

// ActivityResult describes what recording a day of activity did.
type ActivityResult struct {
	// StreakIncreased is false only when today was already recorded.
	StreakIncreased bool

	// Broken means the previous streak did not survive to today and the
	// count restarted at 1.
	Broken bool

	// PreviousStreak is the count before a break. Zero otherwise.
	PreviousStreak int

	// MilestoneHit reports whether the new count landed on a milestone.
	MilestoneHit bool

	// NewMilestone is the milestone reached, zero if none.
	NewMilestone int
}

// RecordActivity marks today as active and advances the streak.
//
// Idempotent per day: a second call with the same key is a no-op. The streak
// continues when yesterday was active or frozen; otherwise it restarts at 1
// and the frozen-day history is cleared.
func (d *Data) RecordActivity(today datekey.Key, now time.Time) ActivityResult {
	if d.LastActiveDate == today {
		return ActivityResult{}
	}

	yesterday := today.Prev()
	res := ActivityResult{StreakIncreased: true}

	switch {
	case d.LastActiveDate == yesterday || d.IsFrozen(yesterday):
		d.Current++

	case d.LastActiveDate.IsZero():
		// First activity ever.
		d.Current = 1
		if d.StartedAt == 0 {
			d.StartedAt = now.UnixMilli()
		}

	default:
		res.Broken = true
		res.PreviousStreak = d.Current
		d.Current = 1
		d.FrozenDates = make([]datekey.Key, 0)
	}

	d.LastActiveDate = today
	if d.Current > d.Longest {
		d.Longest = d.Current
	}

	if IsMilestone(d.Current) {
		res.MilestoneHit = true
		res.NewMilestone = d.Current
	}
	return res
}

// Freeze rejection reasons, in the order the checks run.
const (
	ReasonAlreadyActive = "Already logged activity today"
	ReasonAlreadyFrozen = "Freeze already used today"
	ReasonNoFreezesLeft = "No freezes remaining this week"
)

// FreezeResult describes a freeze attempt.
type FreezeResult struct {
	Success bool
	Reason  string
}

// UseFreeze spends a freeze on today. A freeze is pointless on an active day,
// can only be spent once per day, and requires remaining allowance.
func (d *Data) UseFreeze(today datekey.Key) FreezeResult {
	if d.LastActiveDate == today {
		return FreezeResult{Reason: ReasonAlreadyActive}
	}
	if d.IsFrozen(today) {
		return FreezeResult{Reason: ReasonAlreadyFrozen}
	}
	if d.FreezesRemaining <= 0 {
		return FreezeResult{Reason: ReasonNoFreezesLeft}
	}

	d.FreezesRemaining--
	d.FrozenDates = append(d.FrozenDates, today)
	return FreezeResult{Success: true}
}

// ResetFreezesIfNewWeek refills the allowance when the stored reset marker is
// not the current week start. Reports whether the record changed.
func (d *Data) ResetFreezesIfNewWeek(weekStart datekey.Key) bool {
	if d.FreezesResetDate == weekStart {
		return false
	}
	d.FreezesRemaining = FreezesPerWeek
	d.FreezesResetDate = weekStart
	return true
}

// Validate self-heals a stale record. The engine cannot rely on being invoked
// every day, so on load it checks whether the streak silently died: if the
// last activity is older than yesterday and yesterday was not frozen, the
// count drops to zero and the frozen history clears. Reports whether the
// record changed.
func (d *Data) Validate(today datekey.Key) bool {
	if d.LastActiveDate == today || d.LastActiveDate == today.Prev() {
		return false
	}
	if d.IsFrozen(today.Prev()) {
		return false
	}
	if d.LastActiveDate.IsZero() || d.Current == 0 {
		return false
	}
	if today.DaysSince(d.LastActiveDate) > 1 {
		d.Current = 0
		d.FrozenDates = make([]datekey.Key, 0)
		return true
	}
	return false
}

// Status is the derived at-a-glance streak state for a given day.
type Status struct {
	Data     Data
	IsActive bool
	IsFrozen bool
	IsAtRisk bool
}

// StatusFor derives the streak status for the given day. The streak is at
// risk when it is live but today has neither activity nor a freeze.
func (d *Data) StatusFor(today datekey.Key) Status {
	active := d.LastActiveDate == today
	frozen := d.IsFrozen(today)
	return Status{
		Data:     *d,
		IsActive: active,
		IsFrozen: frozen,
		IsAtRisk: !active && !frozen && d.Current > 0,
	}
}

// ComputeFromHistory recomputes the streak count by walking backwards from
// the last active day: active days count, frozen days bridge a gap without
// counting, and the walk stops at the first day that is neither.
//
// This feeds the one-time repair for records written before day keys were
// timezone-stable, where two local days could collapse into one and the
// stored count undershot the real history.
func ComputeFromHistory(lastActive datekey.Key, activeDays, frozenDays map[datekey.Key]struct{}) int {
	current := 0
	cursor := lastActive

	for cursor.IsValid() {
		if _, ok := activeDays[cursor]; ok {
			current++
		}

		prev := cursor.Prev()
		_, active := activeDays[prev]
		_, frozen := frozenDays[prev]
		if !active && !frozen {
			break
		}
		cursor = prev
	}

	return current
}

// RepairFromHistory adopts the history-derived streak when it beats the
// stored count. Reports whether the record changed. Records without recent
// activity (today or yesterday) are left alone: a dead streak stays dead.
func (d *Data) RepairFromHistory(activeDays map[datekey.Key]struct{}, today datekey.Key) bool {
	if len(activeDays) == 0 {
		return false
	}

	_, activeToday := activeDays[today]
	_, activeYesterday := activeDays[today.Prev()]
	if !activeToday && !activeYesterday {
		return false
	}

	var lastActive datekey.Key
	for day := range activeDays {
		if lastActive.IsZero() || day > lastActive {
			lastActive = day
		}
	}

	frozen := make(map[datekey.Key]struct{}, len(d.FrozenDates))
	for _, f := range d.FrozenDates {
		frozen[f] = struct{}{}
	}

	computed := ComputeFromHistory(lastActive, activeDays, frozen)
	if computed <= d.Current {
		return false
	}

	d.Current = computed
	d.LastActiveDate = lastActive
	if d.Longest < computed {
		d.Longest = computed
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONES AND TIERS
// ══════════════════════════════════════════════════════════════════════════════

// Tier buckets streak lengths for display styling.
type Tier string

const (
	TierNone   Tier = "none"
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
	TierEpic   Tier = "epic"
)

// TierFor returns the display tier for a streak length.
func TierFor(current int) Tier {
	switch {
	case current <= 0:
		return TierNone
	case current < 7:
		return TierSmall
	case current < 14:
		return TierMedium
	case current < 30:
		return TierLarge
	default:
		return TierEpic
	}
}

// FlameIntensity maps the tier to a 0-4 animation scale.
func FlameIntensity(current int) int {
	switch TierFor(current) {
	case TierSmall:
		return 1
	case TierMedium:
		return 2
	case TierLarge:
		return 3
	case TierEpic:
		return 4
	default:
		return 0
	}
}

// IsMilestone reports whether the count lands exactly on a milestone.
func IsMilestone(current int) bool {
	for _, m := range Milestones {
		if current == m {
			return true
		}
	}
	return false
}

// NextMilestone returns the first milestone above the count, zero when the
// last milestone is already passed.
func NextMilestone(current int) int {
	for _, m := range Milestones {
		if current < m {
			return m
		}
	}
	return 0
}

// MilestoneProgress returns the percentage [0,100] of the way from the
// previous milestone to the next one.
func MilestoneProgress(current int) int {
	next := NextMilestone(current)
	if next == 0 {
		return 100
	}
	if current <= 0 {
		return 0
	}

	prev := 0
	for _, m := range Milestones {
		if m < next && m <= current {
			prev = m
		}
	}

	pct := int(math.Round(float64(current-prev) / float64(next-prev) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}
