package kvrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ext-flex/extflex-engine/internal/domain/records"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
)

// PBRepo persists personal bests: one document holding a map from exercise
// ID to its slates.
type PBRepo struct {
	store kv.Store
}

// NewPBRepo creates a repository over the given store.
func NewPBRepo(store kv.Store) *PBRepo {
	return &PBRepo{store: store}
}

// All returns every stored personal best. Missing or malformed documents
// yield an empty map.
func (r *PBRepo) All(ctx context.Context) (map[string]records.ExercisePersonalBests, error) {
	data, err := r.store.Get(ctx, kv.KeyPersonalBests)
	if err != nil {
		if err == kv.ErrKeyNotFound {
			return map[string]records.ExercisePersonalBests{}, nil
		}
		return nil, fmt.Errorf("kvrepo: load personal bests: %w", err)
	}

	var all map[string]records.ExercisePersonalBests
	if err := json.Unmarshal(data, &all); err != nil || all == nil {
		return map[string]records.ExercisePersonalBests{}, nil
	}
	return all, nil
}

// Get returns the slates for one exercise, materializing an empty record
// when none is stored.
func (r *PBRepo) Get(ctx context.Context, exerciseID string) (records.ExercisePersonalBests, error) {
	all, err := r.All(ctx)
	if err != nil {
		return records.ExercisePersonalBests{}, err
	}
	if pbs, ok := all[exerciseID]; ok {
		return pbs, nil
	}
	return records.ExercisePersonalBests{ExerciseID: exerciseID}, nil
}

// Save writes one exercise's slates back into the document.
func (r *PBRepo) Save(ctx context.Context, pbs records.ExercisePersonalBests) error {
	all, err := r.All(ctx)
	if err != nil {
		return err
	}
	all[pbs.ExerciseID] = pbs
	return r.SaveAll(ctx, all)
}

// SaveAll overwrites the whole document. Import uses this.
func (r *PBRepo) SaveAll(ctx context.Context, all map[string]records.ExercisePersonalBests) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("kvrepo: encode personal bests: %w", err)
	}
	if err := r.store.Set(ctx, kv.KeyPersonalBests, data); err != nil {
		return fmt.Errorf("kvrepo: save personal bests: %w", err)
	}
	return nil
}

// Clear removes every personal best.
func (r *PBRepo) Clear(ctx context.Context) error {
	if err := r.store.Remove(ctx, kv.KeyPersonalBests); err != nil {
		return fmt.Errorf("kvrepo: clear personal bests: %w", err)
	}
	return nil
}
