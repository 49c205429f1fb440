package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages engine feature toggles. Flags default to their shipped
// state and can be flipped per deployment through the environment.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// === Streak Features ===
	FeatureStreakFreezes = "streak.freezes" // weekly freeze allowance
	FeatureStreakRepair  = "streak.repair"  // one-time date-key repair on load

	// === Progression Features ===
	FeatureAchievementRewards = "progression.achievement_rewards" // XP rewards on unlock

	// === Records Features ===
	FeatureWeightedPBs = "records.weighted_pbs" // per-weight PB slates

	// === Engine Features ===
	FeatureRolloverPoller = "engine.rollover_poller" // daily-counter reset poller
)

// LoadFeatureFlags loads feature flags from environment variables.
// FEATURE_STREAK_REPAIR=false flips "streak.repair", and so on.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}

	defaults := []Feature{
		{Name: FeatureStreakFreezes, Description: "Weekly streak freeze allowance", Enabled: true},
		{Name: FeatureStreakRepair, Description: "One-time streak date-key repair on load", Enabled: true},
		{Name: FeatureAchievementRewards, Description: "Grant XP rewards when achievements unlock", Enabled: true},
		{Name: FeatureWeightedPBs, Description: "Track personal bests per weight level", Enabled: true},
		{Name: FeatureRolloverPoller, Description: "Background reset of daily counters on day change", Enabled: true},
	}

	for i := range defaults {
		f := defaults[i]
		f.Enabled = envFlagOverride(f.Name, f.Enabled)
		ff.features[f.Name] = &f
	}
	return ff
}

// IsEnabled reports whether the named flag is on. Unknown flags are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled
}

// Set flips a flag at runtime. Unknown names create a new flag.
func (ff *FeatureFlags) Set(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[name]; ok {
		f.Enabled = enabled
		return
	}
	ff.features[name] = &Feature{Name: name, Enabled: enabled}
}

// All returns a copy of every flag.
func (ff *FeatureFlags) All() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	return out
}

// envFlagOverride maps "streak.repair" to FEATURE_STREAK_REPAIR.
func envFlagOverride(name string, defaultVal bool) bool {
	envKey := "FEATURE_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(name))
	val := os.Getenv(envKey)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
