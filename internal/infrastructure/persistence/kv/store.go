// Package kv defines the key-value storage contract the engine persists
// through. Records are independent JSON documents under well-known keys;
// there are no multi-key transactions, only read-your-writes per key.
package kv

import (
	"context"
	"errors"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrKeyNotFound is returned by Get for keys that were never written.
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("kv: store is closed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Well-known record keys. Every backend stores the same documents under the
// same names, so an export from one backend imports cleanly into another.
const (
	KeyEntries       = "extFlex_exercise_entries"
	KeyProgression   = "extFlex_progression"
	KeyStreak        = "extFlex_streak"
	KeyPersonalBests = "extFlex_personal_bests"

	// KeyStreakRepaired flags that the one-time streak date-key repair ran.
	KeyStreakRepaired = "extFlex_streak_local_date_keys_repaired_v1"

	// KeyStats holds the lifetime-stats projection maintained off the event bus.
	KeyStats = "extFlex_lifetime_stats"
)

// Change describes one key update delivered to observers.
type Change struct {
	// Key is the record that changed.
	Key string

	// Value is the new raw document. Nil means the key was removed.
	Value []byte
}

// ChangeHandler receives change notifications. Handlers must not block.
type ChangeHandler func(Change)

// Store is the persistence contract. Implementations must provide
// read-your-writes consistency per key: a Get after a successful Set on the
// same store observes that Set.
type Store interface {
	// Get returns the raw document under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the raw document under key, creating or replacing it.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear deletes every key in the store.
	Clear(ctx context.Context) error

	// OnChange registers an observer for key updates made through this
	// store. The returned function unsubscribes.
	OnChange(handler ChangeHandler) func()

	// Close releases backend resources. The store is unusable afterwards.
	Close() error
}
