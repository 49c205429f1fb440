package progression

import (
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK REQUIREMENTS
// Tier-based gating: reaching a new level in any exercise opens the next tier
// of three (strength, cardio, wellness); bonus exercises open on total XP.
// ══════════════════════════════════════════════════════════════════════════════

// RequirementType identifies an unlock requirement variant.
type RequirementType string

const (
	// ReqStarter - available from the start.
	ReqStarter RequirementType = "starter"

	// ReqExerciseLevel - a specific exercise must reach a level.
	ReqExerciseLevel RequirementType = "exercise_level"

	// ReqTotalXP - aggregate XP must reach a threshold.
	ReqTotalXP RequirementType = "total_xp"

	// ReqExercisesAtLevel - N unlocked exercises must be at or above a level.
	ReqExercisesAtLevel RequirementType = "exercises_at_level"

	// ReqAchievement - a specific achievement must be unlocked.
	ReqAchievement RequirementType = "achievement"
)

// Requirement is the tagged unlock-gate variant. Only the fields relevant to
// the Type are set.
type Requirement struct {
	Type RequirementType `json:"type"`

	// ExerciseID - for exercise_level: which exercise.
	ExerciseID string `json:"exerciseId,omitempty"`

	// Level - for exercise_level and exercises_at_level.
	Level int `json:"level,omitempty"`

	// XPThreshold - for total_xp.
	XPThreshold int `json:"xpThreshold,omitempty"`

	// Count - for exercises_at_level.
	Count int `json:"count,omitempty"`

	// AchievementID - for achievement.
	AchievementID string `json:"achievementId,omitempty"`

	// Description is the human-readable gate text shown on locked cards.
	Description string `json:"description"`
}

// UnlockConfig pairs an exercise with its single gating requirement.
type UnlockConfig struct {
	ExerciseID  string
	Requirement Requirement
}

func starter() Requirement {
	return Requirement{Type: ReqStarter, Description: "Available from the start"}
}

func anyAtLevel(level int, description string) Requirement {
	return Requirement{Type: ReqExercisesAtLevel, Level: level, Count: 1, Description: description}
}

func totalXP(threshold int, description string) Requirement {
	return Requirement{Type: ReqTotalXP, XPThreshold: threshold, Description: description}
}

// UnlockCatalog lists the gating requirement for every exercise in the
// registry. Each exercise has exactly one requirement.
var UnlockCatalog = []UnlockConfig{
	// Tier 0 - starters
	{"pushups", starter()},
	{"jumping_jacks", starter()},
	{"neck_rolls", starter()},

	// Tier 1
	{"dumbbell_curls", anyAtLevel(2, "Reach Level 2 in any exercise")},
	{"high_knees", anyAtLevel(2, "Reach Level 2 in any exercise")},
	{"shoulder_stretch", anyAtLevel(2, "Reach Level 2 in any exercise")},

	// Tier 2
	{"squats", anyAtLevel(3, "Reach Level 3 in any exercise")},
	{"burpees", anyAtLevel(3, "Reach Level 3 in any exercise")},
	{"wrist_circles", anyAtLevel(3, "Reach Level 3 in any exercise")},

	// Tier 3
	{"dumbbell_shoulder_press", anyAtLevel(4, "Reach Level 4 in any exercise")},
	{"jump_squats", anyAtLevel(4, "Reach Level 4 in any exercise")},
	{"hip_flexor_stretch", anyAtLevel(4, "Reach Level 4 in any exercise")},

	// Tier 4
	{"tricep_dips", anyAtLevel(5, "Reach Level 5 in any exercise")},
	{"mountain_climbers", anyAtLevel(5, "Reach Level 5 in any exercise")},
	{"spinal_twist", anyAtLevel(5, "Reach Level 5 in any exercise")},

	// Tier 5
	{"dumbbell_rows", anyAtLevel(6, "Reach Level 6 in any exercise")},
	{"butt_kicks", anyAtLevel(6, "Reach Level 6 in any exercise")},
	{"quad_stretch", anyAtLevel(6, "Reach Level 6 in any exercise")},

	// Tier 6
	{"goblet_squats", anyAtLevel(7, "Reach Level 7 in any exercise")},
	{"jump_lunges", anyAtLevel(7, "Reach Level 7 in any exercise")},
	{"hamstring_stretch", anyAtLevel(7, "Reach Level 7 in any exercise")},

	// Tier 7
	{"dumbbell_lunges", anyAtLevel(8, "Reach Level 8 in any exercise")},
	{"skaters", anyAtLevel(8, "Reach Level 8 in any exercise")},
	{"deep_breathing", anyAtLevel(8, "Reach Level 8 in any exercise")},

	// Tier 8
	{"dumbbell_chest_press", anyAtLevel(9, "Reach Level 9 in any exercise")},
	{"tuck_jumps", anyAtLevel(9, "Reach Level 9 in any exercise")},
	{"eye_20_20_20", anyAtLevel(9, "Reach Level 9 in any exercise")},

	// Tier 9
	{"plank", anyAtLevel(10, "Reach Level 10 (Master) in any exercise")},
	{"star_jumps", anyAtLevel(10, "Reach Level 10 (Master) in any exercise")},
	{"full_body_stretch", anyAtLevel(10, "Reach Level 10 (Master) in any exercise")},

	// Bonus tier - total-XP milestones
	{"dumbbell_deadlifts", totalXP(5000, "Earn 5,000 total XP")},
	{"lateral_raises", totalXP(10000, "Earn 10,000 total XP")},
	{"hammer_curls", totalXP(15000, "Earn 15,000 total XP")},
	{"overhead_tricep_extension", totalXP(20000, "Earn 20,000 total XP")},
	{"dumbbell_flyes", totalXP(25000, "Earn 25,000 total XP")},
	{"wall_sit", totalXP(30000, "Earn 30,000 total XP")},
	{"crunches", totalXP(35000, "Earn 35,000 total XP")},
	{"bicycle_crunches", totalXP(40000, "Earn 40,000 total XP")},
	{"cat_cow_stretch", totalXP(45000, "Earn 45,000 total XP")},
	{"russian_twists", totalXP(50000, "Earn 50,000 total XP")},
	{"speed_skaters", totalXP(60000, "Earn 60,000 total XP")},
	{"childs_pose", totalXP(75000, "Earn 75,000 total XP")},
}

var unlockByID = func() map[string]UnlockConfig {
	m := make(map[string]UnlockConfig, len(UnlockCatalog))
	for _, c := range UnlockCatalog {
		m[c.ExerciseID] = c
	}
	return m
}()

// RequirementFor returns the gating requirement for an exercise.
func RequirementFor(exerciseID string) (Requirement, bool) {
	c, ok := unlockByID[exerciseID]
	return c.Requirement, ok
}

// IsStarter reports whether the exercise is available from the start.
func IsStarter(exerciseID string) bool {
	c, ok := unlockByID[exerciseID]
	return ok && c.Requirement.Type == ReqStarter
}

// StarterIDs returns the exercises unlocked by default.
func StarterIDs() []string {
	var ids []string
	for _, c := range UnlockCatalog {
		if c.Requirement.Type == ReqStarter {
			ids = append(ids, c.ExerciseID)
		}
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// IsMet evaluates the requirement against a progression snapshot.
func (r Requirement) IsMet(s *Snapshot) bool {
	switch r.Type {
	case ReqStarter:
		return true

	case ReqExerciseLevel:
		p, ok := s.Exercises[r.ExerciseID]
		// The prerequisite must itself be unlocked before it can gate others.
		return ok && p.Unlocked && p.Level >= r.Level

	case ReqTotalXP:
		return s.TotalXP >= r.XPThreshold

	case ReqExercisesAtLevel:
		return s.CountAtLevel(r.Level) >= r.Count

	case ReqAchievement:
		return s.IsAchievementUnlocked(r.AchievementID)

	default:
		return false
	}
}

// Progress returns how far along the requirement is, as a percentage [0,100].
func (r Requirement) Progress(s *Snapshot) int {
	switch r.Type {
	case ReqStarter:
		return 100

	case ReqExerciseLevel:
		p, ok := s.Exercises[r.ExerciseID]
		if !ok || !p.Unlocked {
			return 0
		}
		if p.Level >= r.Level {
			return 100
		}
		// Completed level steps plus fractional progress within the current
		// level, against the (target-1) steps between level 1 and the target.
		stepsNeeded := r.Level - 1
		if stepsNeeded <= 0 {
			return 100
		}
		stepsDone := float64(p.Level-1) + float64(LevelProgress(p.XP, p.Level))/100
		return clampPercent(int(math.Round(stepsDone / float64(stepsNeeded) * 100)))

	case ReqTotalXP:
		if r.XPThreshold <= 0 {
			return 100
		}
		return clampPercent(int(math.Round(float64(s.TotalXP) / float64(r.XPThreshold) * 100)))

	case ReqExercisesAtLevel:
		if r.Count <= 0 {
			return 100
		}
		return clampPercent(int(math.Round(float64(s.CountAtLevel(r.Level)) / float64(r.Count) * 100)))

	case ReqAchievement:
		if s.IsAchievementUnlocked(r.AchievementID) {
			return 100
		}
		return 0

	default:
		return 0
	}
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
