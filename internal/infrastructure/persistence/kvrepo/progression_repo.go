// Package kvrepo maps the engine's persisted records onto the kv.Store
// contract. Each record is one JSON document under a well-known key, loaded
// fresh on every read and written back whole. Malformed documents are
// replaced by defaults instead of failing the load: a corrupt record should
// cost stored progress at worst, never brick the engine.
package kvrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ext-flex/extflex-engine/internal/domain/progression"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
)

// ProgressionRepo persists the progression snapshot.
type ProgressionRepo struct {
	store kv.Store
}

// NewProgressionRepo creates a repository over the given store.
func NewProgressionRepo(store kv.Store) *ProgressionRepo {
	return &ProgressionRepo{store: store}
}

// Get loads the snapshot. Missing or malformed documents yield the default
// empty snapshot. Levels are re-derived on every load.
func (r *ProgressionRepo) Get(ctx context.Context) (*progression.Snapshot, error) {
	data, err := r.store.Get(ctx, kv.KeyProgression)
	if err != nil {
		if err == kv.ErrKeyNotFound {
			return progression.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("kvrepo: load progression: %w", err)
	}

	var snap progression.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return progression.NewSnapshot(), nil
	}
	snap.Normalize()
	return &snap, nil
}

// Save writes the snapshot back.
func (r *ProgressionRepo) Save(ctx context.Context, snap *progression.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("kvrepo: encode progression: %w", err)
	}
	if err := r.store.Set(ctx, kv.KeyProgression, data); err != nil {
		return fmt.Errorf("kvrepo: save progression: %w", err)
	}
	return nil
}

// Reset removes the stored snapshot, returning reads to the default.
func (r *ProgressionRepo) Reset(ctx context.Context) error {
	if err := r.store.Remove(ctx, kv.KeyProgression); err != nil {
		return fmt.Errorf("kvrepo: reset progression: %w", err)
	}
	return nil
}
