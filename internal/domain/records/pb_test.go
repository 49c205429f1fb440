package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCheck_NonWeighted(t *testing.T) {
	e := &ExercisePersonalBests{ExerciseID: "pushups"}
	now := time.Now()

	res := e.Check(20, nil, now)
	assert.True(t, res.IsNewPB)
	require.NotNil(t, res.NewPB)
	assert.Equal(t, 20, res.NewPB.Value)
	assert.Nil(t, res.PreviousPB)

	// Matching the best is not a new best.
	res = e.Check(20, nil, now)
	assert.False(t, res.IsNewPB)
	require.NotNil(t, res.PreviousPB)
	assert.Equal(t, 20, res.PreviousPB.Value)
	assert.Equal(t, 20, e.PB.Value)

	res = e.Check(25, nil, now)
	assert.True(t, res.IsNewPB)
	assert.Equal(t, 20, res.PreviousPB.Value)
	assert.Equal(t, 25, e.PB.Value)
}

func TestCheck_WeightedPerWeightSlates(t *testing.T) {
	e := &ExercisePersonalBests{ExerciseID: "dumbbell_curls"}
	now := time.Now()

	res := e.Check(12, intPtr(10), now)
	assert.True(t, res.IsNewPB)

	// A lower value at a different weight is its own slate.
	res = e.Check(8, intPtr(12), now)
	assert.True(t, res.IsNewPB)

	// The 10kg slate is untouched by the 12kg mark.
	assert.Equal(t, 12, e.WeightedPBs[WeightKey(10)].Value)
	assert.Equal(t, 8, e.WeightedPBs[WeightKey(12)].Value)

	res = e.Check(10, intPtr(10), now)
	assert.False(t, res.IsNewPB)
	assert.Equal(t, 12, e.WeightedPBs[WeightKey(10)].Value)
}

func TestCheck_WeightedWithoutWeightIsNoOp(t *testing.T) {
	e := &ExercisePersonalBests{ExerciseID: "dumbbell_curls"}

	res := e.Check(50, nil, time.Now())
	assert.False(t, res.IsNewPB)
	assert.Nil(t, res.PreviousPB)
	assert.Nil(t, e.PB)
	assert.Empty(t, e.WeightedPBs)
}

func TestCheck_UnknownExerciseIsNoOp(t *testing.T) {
	e := &ExercisePersonalBests{ExerciseID: "nonexistent"}

	res := e.Check(50, nil, time.Now())
	assert.False(t, res.IsNewPB)
	assert.Nil(t, e.PB)
}

func TestCurrentPB(t *testing.T) {
	now := time.Now()

	e := &ExercisePersonalBests{ExerciseID: "pushups"}
	assert.Nil(t, e.CurrentPB(nil))
	e.Check(20, nil, now)
	require.NotNil(t, e.CurrentPB(nil))
	assert.Equal(t, 20, e.CurrentPB(nil).Value)

	w := &ExercisePersonalBests{ExerciseID: "dumbbell_curls"}
	w.Check(12, intPtr(10), now)
	require.NotNil(t, w.CurrentPB(intPtr(10)))
	assert.Equal(t, 12, w.CurrentPB(intPtr(10)).Value)
	assert.Nil(t, w.CurrentPB(intPtr(12)))
}

func TestHighestWeightedPB(t *testing.T) {
	e := &ExercisePersonalBests{ExerciseID: "dumbbell_curls"}
	assert.Nil(t, e.HighestWeightedPB())

	now := time.Now()
	e.Check(12, intPtr(10), now)
	e.Check(8, intPtr(12), now)
	e.Check(15, intPtr(8), now)

	best := e.HighestWeightedPB()
	require.NotNil(t, best)
	assert.Equal(t, 15, best.Value)
}
