package kvrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ext-flex/extflex-engine/internal/domain/exercise"
	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
)

// EntryRepo persists the append-only exercise log.
type EntryRepo struct {
	store kv.Store
}

// NewEntryRepo creates a repository over the given store.
func NewEntryRepo(store kv.Store) *EntryRepo {
	return &EntryRepo{store: store}
}

// All returns every logged entry, oldest first. Missing or malformed
// documents yield an empty log.
func (r *EntryRepo) All(ctx context.Context) ([]exercise.Entry, error) {
	data, err := r.store.Get(ctx, kv.KeyEntries)
	if err != nil {
		if err == kv.ErrKeyNotFound {
			return []exercise.Entry{}, nil
		}
		return nil, fmt.Errorf("kvrepo: load entries: %w", err)
	}

	var entries []exercise.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return []exercise.Entry{}, nil
	}
	return entries, nil
}

// Append adds one entry to the log.
func (r *EntryRepo) Append(ctx context.Context, entry exercise.Entry) error {
	entries, err := r.All(ctx)
	if err != nil {
		return err
	}
	return r.ReplaceAll(ctx, append(entries, entry))
}

// ReplaceAll overwrites the whole log. Import uses this after filtering.
func (r *EntryRepo) ReplaceAll(ctx context.Context, entries []exercise.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("kvrepo: encode entries: %w", err)
	}
	if err := r.store.Set(ctx, kv.KeyEntries, data); err != nil {
		return fmt.Errorf("kvrepo: save entries: %w", err)
	}
	return nil
}

// Clear removes the whole log.
func (r *EntryRepo) Clear(ctx context.Context) error {
	if err := r.store.Remove(ctx, kv.KeyEntries); err != nil {
		return fmt.Errorf("kvrepo: clear entries: %w", err)
	}
	return nil
}
