package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It is the default backend and the one
// the test suites run against.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	handlers map[int]ChangeHandler
	nextID   int
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		handlers: make(map[int]ChangeHandler),
	}
}

// Get returns the document under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	value, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set writes the document under key and notifies observers.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored

	handlers := s.snapshotHandlers()
	s.mu.Unlock()

	for _, h := range handlers {
		h(Change{Key: key, Value: stored})
	}
	return nil
}

// Remove deletes the key and notifies observers if it existed.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	_, existed := s.data[key]
	delete(s.data, key)

	var handlers []ChangeHandler
	if existed {
		handlers = s.snapshotHandlers()
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(Change{Key: key})
	}
	return nil
}

// Clear deletes every key.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.data = make(map[string][]byte)

	handlers := s.snapshotHandlers()
	s.mu.Unlock()

	for _, key := range keys {
		for _, h := range handlers {
			h(Change{Key: key})
		}
	}
	return nil
}

// OnChange registers a change observer.
func (s *MemoryStore) OnChange(handler ChangeHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// Close marks the store closed. Further operations fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = make(map[int]ChangeHandler)
	return nil
}

// snapshotHandlers must be called with the lock held.
func (s *MemoryStore) snapshotHandlers() []ChangeHandler {
	out := make([]ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}
