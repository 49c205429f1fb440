package kvrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/domain/streak"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
	"github.com/ext-flex/extflex-engine/pkg/datekey"
)

// StreakRepo persists the streak record. Loads run two maintenance passes:
// a one-time repair that recomputes the streak from the exercise log (older
// installs derived day keys from UTC, which could collapse two local days
// into one and undercount), and a weekly freeze refill.
type StreakRepo struct {
	store   kv.Store
	entries *EntryRepo

	// RepairEnabled gates the one-time history repair.
	RepairEnabled bool
}

// NewStreakRepo creates a repository over the given store. The entry
// repository feeds the repair scan.
func NewStreakRepo(store kv.Store, entries *EntryRepo) *StreakRepo {
	return &StreakRepo{store: store, entries: entries, RepairEnabled: true}
}

// Get loads the streak record and runs the maintenance passes for the given
// day. Changed records are written back before returning.
func (r *StreakRepo) Get(ctx context.Context, today datekey.Key, weekStart datekey.Key, loc *time.Location) (streak.Data, error) {
	data, err := r.Load(ctx)
	if err != nil {
		return streak.Data{}, err
	}

	changed := false
	if r.RepairEnabled {
		repaired, err := r.maybeRepair(ctx, &data, today, loc)
		if err == nil && repaired {
			changed = true
		}
	}
	if data.ResetFreezesIfNewWeek(weekStart) {
		changed = true
	}

	if changed {
		if err := r.Save(ctx, data); err != nil {
			return streak.Data{}, err
		}
	}
	return data, nil
}

// Load reads the raw record without running the maintenance passes. Export
// uses this to dump the record exactly as stored. Missing or malformed
// documents yield the default record.
func (r *StreakRepo) Load(ctx context.Context) (streak.Data, error) {
	raw, err := r.store.Get(ctx, kv.KeyStreak)
	if err != nil {
		if err == kv.ErrKeyNotFound {
			return streak.NewData(), nil
		}
		return streak.Data{}, fmt.Errorf("kvrepo: load streak: %w", err)
	}

	var data streak.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return streak.NewData(), nil
	}
	data.Normalize()
	return data, nil
}

// Save writes the record back.
func (r *StreakRepo) Save(ctx context.Context, data streak.Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("kvrepo: encode streak: %w", err)
	}
	if err := r.store.Set(ctx, kv.KeyStreak, raw); err != nil {
		return fmt.Errorf("kvrepo: save streak: %w", err)
	}
	return nil
}

// Reset removes the stored record, returning reads to the default.
func (r *StreakRepo) Reset(ctx context.Context) error {
	if err := r.store.Remove(ctx, kv.KeyStreak); err != nil {
		return fmt.Errorf("kvrepo: reset streak: %w", err)
	}
	return nil
}

// maybeRepair runs the one-time history rebuild. The flag is written even
// when nothing changes, so the scan happens at most once per install.
func (r *StreakRepo) maybeRepair(ctx context.Context, data *streak.Data, today datekey.Key, loc *time.Location) (bool, error) {
	if _, err := r.store.Get(ctx, kv.KeyStreakRepaired); err == nil {
		return false, nil
	} else if err != kv.ErrKeyNotFound {
		return false, fmt.Errorf("kvrepo: read repair flag: %w", err)
	}

	entries, err := r.entries.All(ctx)
	if err != nil {
		return false, err
	}

	changed := data.RepairFromHistory(exercise.ActiveDays(entries, loc), today)

	if err := r.store.Set(ctx, kv.KeyStreakRepaired, []byte("true")); err != nil {
		return changed, fmt.Errorf("kvrepo: write repair flag: %w", err)
	}
	return changed, nil
}
