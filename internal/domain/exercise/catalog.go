// Package exercise holds the static exercise catalog and the logged-entry type.
// The catalog is a fixed registry: the engine never mutates it, it only looks
// exercises up by ID to learn how a value is tracked and whether a weight is
// required.
package exercise

// TrackingType describes how a logged value is measured.
type TrackingType string

const (
	// TrackReps - value is a repetition count.
	TrackReps TrackingType = "reps"

	// TrackDuration - value is a duration in seconds.
	TrackDuration TrackingType = "duration"
)

// Category groups exercises for display purposes.
type Category string

const (
	CategoryUpperBody Category = "upper_body"
	CategoryLowerBody Category = "lower_body"
	CategoryCore      Category = "core"
	CategoryCardio    Category = "cardio"
	CategoryStretch   Category = "stretch"
	CategoryEyes      Category = "eyes"
)

// Definition describes one exercise in the catalog.
type Definition struct {
	// ID is the stable identifier used in all persisted records.
	ID string

	// Name is the human-readable display name.
	Name string

	// Icon is the emoji shown in the UI.
	Icon string

	// Category groups the exercise for display.
	Category Category

	// TrackingType says whether values are reps or seconds.
	TrackingType TrackingType

	// RequiresWeight marks dumbbell exercises whose personal bests are
	// tracked per weight level.
	RequiresWeight bool
}

// Registry is the full exercise catalog, in unlock-tier order.
var Registry = []Definition{
	// Tier 0 - starters
	{ID: "pushups", Name: "Push-ups", Icon: "💪", Category: CategoryUpperBody, TrackingType: TrackReps},
	{ID: "jumping_jacks", Name: "Jumping Jacks", Icon: "⭐", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "neck_rolls", Name: "Neck Rolls", Icon: "🔄", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 1
	{ID: "dumbbell_curls", Name: "Dumbbell Curls", Icon: "🏋️", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "high_knees", Name: "High Knees", Icon: "🏃", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "shoulder_stretch", Name: "Shoulder Stretch", Icon: "💆", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 2
	{ID: "squats", Name: "Squats", Icon: "🦵", Category: CategoryLowerBody, TrackingType: TrackReps},
	{ID: "burpees", Name: "Burpees", Icon: "💥", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "wrist_circles", Name: "Wrist Circles", Icon: "🖐️", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 3
	{ID: "dumbbell_shoulder_press", Name: "Shoulder Press", Icon: "🔱", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "jump_squats", Name: "Jump Squats", Icon: "🦘", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "hip_flexor_stretch", Name: "Hip Flexor Stretch", Icon: "🧘", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 4
	{ID: "tricep_dips", Name: "Tricep Dips", Icon: "💺", Category: CategoryUpperBody, TrackingType: TrackReps},
	{ID: "mountain_climbers", Name: "Mountain Climbers", Icon: "⛰️", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "spinal_twist", Name: "Seated Spinal Twist", Icon: "🌀", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 5
	{ID: "dumbbell_rows", Name: "Dumbbell Rows", Icon: "🚣", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "butt_kicks", Name: "Butt Kicks", Icon: "🦶", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "quad_stretch", Name: "Standing Quad Stretch", Icon: "🦩", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 6
	{ID: "goblet_squats", Name: "Goblet Squats", Icon: "🏆", Category: CategoryLowerBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "jump_lunges", Name: "Jump Lunges", Icon: "🔥", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "hamstring_stretch", Name: "Hamstring Stretch", Icon: "🙆", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 7
	{ID: "dumbbell_lunges", Name: "Dumbbell Lunges", Icon: "🚶", Category: CategoryLowerBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "skaters", Name: "Skaters", Icon: "⛸️", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "deep_breathing", Name: "Deep Breathing", Icon: "🌬️", Category: CategoryStretch, TrackingType: TrackDuration},

	// Tier 8
	{ID: "dumbbell_chest_press", Name: "Floor Chest Press", Icon: "🛋️", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "tuck_jumps", Name: "Tuck Jumps", Icon: "🎯", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "eye_20_20_20", Name: "20-20-20 Rule", Icon: "👁️", Category: CategoryEyes, TrackingType: TrackDuration},

	// Tier 9
	{ID: "plank", Name: "Plank", Icon: "🧱", Category: CategoryCore, TrackingType: TrackDuration},
	{ID: "star_jumps", Name: "Star Jumps", Icon: "🌟", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "full_body_stretch", Name: "Full Body Stretch", Icon: "🧘‍♀️", Category: CategoryStretch, TrackingType: TrackDuration},

	// Bonus tier - total-XP milestones
	{ID: "dumbbell_deadlifts", Name: "Dumbbell Deadlifts", Icon: "🏗️", Category: CategoryLowerBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "lateral_raises", Name: "Lateral Raises", Icon: "🦅", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "hammer_curls", Name: "Hammer Curls", Icon: "🔨", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "overhead_tricep_extension", Name: "Tricep Extension", Icon: "🎪", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "dumbbell_flyes", Name: "Floor Dumbbell Flyes", Icon: "🦋", Category: CategoryUpperBody, TrackingType: TrackReps, RequiresWeight: true},
	{ID: "wall_sit", Name: "Wall Sit", Icon: "🧱", Category: CategoryLowerBody, TrackingType: TrackDuration},
	{ID: "crunches", Name: "Crunches", Icon: "🔥", Category: CategoryCore, TrackingType: TrackReps},
	{ID: "bicycle_crunches", Name: "Bicycle Crunches", Icon: "🚴", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "cat_cow_stretch", Name: "Cat-Cow Stretch", Icon: "🐱", Category: CategoryStretch, TrackingType: TrackDuration},
	{ID: "russian_twists", Name: "Russian Twists", Icon: "🌀", Category: CategoryCore, TrackingType: TrackReps},
	{ID: "speed_skaters", Name: "Speed Skaters", Icon: "⚡", Category: CategoryCardio, TrackingType: TrackReps},
	{ID: "childs_pose", Name: "Child's Pose", Icon: "🙏", Category: CategoryStretch, TrackingType: TrackDuration},
}

var registryByID = func() map[string]Definition {
	m := make(map[string]Definition, len(Registry))
	for _, def := range Registry {
		m[def.ID] = def
	}
	return m
}()

// ByID returns the catalog entry for the given exercise ID.
func ByID(id string) (Definition, bool) {
	def, ok := registryByID[id]
	return def, ok
}

// IsValidID reports whether the ID exists in the catalog.
func IsValidID(id string) bool {
	_, ok := registryByID[id]
	return ok
}

// Count returns the number of exercises in the catalog.
func Count() int {
	return len(Registry)
}

// ByCategory returns all catalog entries in the given category.
func ByCategory(c Category) []Definition {
	var out []Definition
	for _, def := range Registry {
		if def.Category == c {
			out = append(out, def)
		}
	}
	return out
}
