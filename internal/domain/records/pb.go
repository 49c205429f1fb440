// Package records implements the personal-best tracker.
//
// Non-weighted exercises keep a single best value. Weighted exercises keep an
// independent slate per weight level, so a 10kg best and a 12kg best coexist.
// Comparison is strictly greater-than: matching a best never replaces it.
package records

import (
	"strconv"
	"time"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
)

// PersonalBest is one best-ever mark.
type PersonalBest struct {
	// Value is the reps count or duration in seconds.
	Value int `json:"value"`

	// Timestamp is when the mark was set, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Weight is the dumbbell weight the mark was set at, for weighted
	// exercises.
	Weight *int `json:"weight,omitempty"`
}

// ExercisePersonalBests holds every best for one exercise.
type ExercisePersonalBests struct {
	ExerciseID string `json:"exerciseId"`

	// PB is the single slate for non-weighted exercises.
	PB *PersonalBest `json:"pb,omitempty"`

	// WeightedPBs maps a weight key (the decimal string of the weight) to
	// the best at that weight.
	WeightedPBs map[string]PersonalBest `json:"weightedPbs,omitempty"`
}

// WeightKey renders a weight as the map key used in WeightedPBs.
func WeightKey(weight int) string {
	return strconv.Itoa(weight)
}

// CheckResult describes the outcome of a PB check.
type CheckResult struct {
	// IsNewPB reports whether the value beat the relevant slate.
	IsNewPB bool

	// NewPB is the recorded mark, set only when IsNewPB.
	NewPB *PersonalBest

	// PreviousPB is the mark that was beaten or defended, if one existed.
	PreviousPB *PersonalBest
}

// Check compares a logged value against the relevant slate and records it
// when it wins. The receiver is mutated only on a new best.
//
// Unknown exercises and weighted exercises logged without a weight are a
// quiet no-op: no comparison, no mutation.
func (e *ExercisePersonalBests) Check(value int, weight *int, at time.Time) CheckResult {
	def, ok := exercise.ByID(e.ExerciseID)
	if !ok {
		return CheckResult{}
	}

	if def.RequiresWeight {
		if weight == nil {
			return CheckResult{}
		}
		key := WeightKey(*weight)
		var previous *PersonalBest
		if prev, ok := e.WeightedPBs[key]; ok {
			previous = &prev
		}

		if previous != nil && value <= previous.Value {
			return CheckResult{PreviousPB: previous}
		}

		newPB := PersonalBest{Value: value, Timestamp: at.UnixMilli(), Weight: weight}
		if e.WeightedPBs == nil {
			e.WeightedPBs = make(map[string]PersonalBest)
		}
		e.WeightedPBs[key] = newPB
		return CheckResult{IsNewPB: true, NewPB: &newPB, PreviousPB: previous}
	}

	previous := e.PB
	if previous != nil && value <= previous.Value {
		return CheckResult{PreviousPB: previous}
	}

	newPB := PersonalBest{Value: value, Timestamp: at.UnixMilli()}
	e.PB = &newPB
	return CheckResult{IsNewPB: true, NewPB: &newPB, PreviousPB: previous}
}

// CurrentPB returns the best on the relevant slate: the per-weight mark when
// a weight is given for a weighted exercise, otherwise the single slate.
func (e *ExercisePersonalBests) CurrentPB(weight *int) *PersonalBest {
	def, ok := exercise.ByID(e.ExerciseID)
	if ok && def.RequiresWeight && weight != nil {
		if pb, ok := e.WeightedPBs[WeightKey(*weight)]; ok {
			return &pb
		}
		return nil
	}
	return e.PB
}

// HighestWeightedPB returns the best across all weight slates, nil when none
// exist. Useful for an "overall best" display.
func (e *ExercisePersonalBests) HighestWeightedPB() *PersonalBest {
	var best *PersonalBest
	for _, pb := range e.WeightedPBs {
		pb := pb
		if best == nil || pb.Value > best.Value {
			best = &pb
		}
	}
	return best
}
