package exercise

import (
	"time"

	"github.com/google/uuid"

	"github.com/ext-flex/extflex-engine/internal/domain/shared"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
)

// Entry is one logged set: an exercise, the value achieved, and when.
// Entries are append-only; the streak repair scan and export/import both
// read them back as the raw activity history.
type Entry struct {
	// ID is a unique entry identifier.
	ID string `json:"id"`

	// ExerciseID references the catalog.
	ExerciseID string `json:"exerciseId"`

	// Value is the reps count or duration in seconds.
	Value int `json:"value"`

	// Weight is the dumbbell weight used, for weighted exercises.
	Weight *int `json:"weight,omitempty"`

	// Timestamp is when the entry was logged, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewEntry creates a validated entry for the given exercise.
func NewEntry(exerciseID string, value int, weight *int, at time.Time) (Entry, error) {
	if !IsValidID(exerciseID) {
		return Entry{}, shared.ErrExerciseNotFound
	}
	if value <= 0 {
		return Entry{}, shared.ErrInvalidValue
	}
	return Entry{
		ID:         uuid.NewString(),
		ExerciseID: exerciseID,
		Value:      value,
		Weight:     weight,
		Timestamp:  at.UnixMilli(),
	}, nil
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// DayKey returns the calendar day the entry was logged on, in the given location.
func (e Entry) DayKey(loc *time.Location) datekey.Key {
	if loc == nil {
		loc = time.Local
	}
	return datekey.FromTime(e.Time().In(loc))
}

// IsValid reports whether a deserialized entry has the minimum viable shape.
// Used by import to drop corrupt records without aborting the whole restore.
func (e Entry) IsValid() bool {
	return e.ID != "" && e.ExerciseID != "" && e.Value > 0 && e.Timestamp > 0
}

// ActiveDays collects the distinct day keys on which any of the entries were
// logged. The repair scan feeds this into the streak rebuild.
func ActiveDays(entries []Entry, loc *time.Location) map[datekey.Key]struct{} {
	days := make(map[datekey.Key]struct{}, len(entries))
	for _, e := range entries {
		if e.Timestamp <= 0 {
			continue
		}
		days[e.DayKey(loc)] = struct{}{}
	}
	return days
}
