// Package memory is an in-process phenotree.Store. It is the default backing
// for a single local session and the store used throughout the tests.
package memory

import (
	"context"
	"sync"

	"github.com/meikuraledutech/phenotree"
)

// Store keeps slot values in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.slots[key]
	if !ok {
		return nil, phenotree.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key. No error if it doesn't exist.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)
	return nil
}

// Len returns the number of stored slots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
