// Package memory provides an in-process KeyValueStore used by tests and by
// the service's ephemeral storage mode.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// Store is a map guarded by a RWMutex. The zero value is ready to use.
type Store struct {
	mu     sync.RWMutex
	values map[string]string

	// SetErr, when non-nil, is returned by every Set without storing anything.
	SetErr error
}

// New returns a store pre-populated with seed.
func New(seed map[string]string) *Store {
	values := make(map[string]string, len(seed))
	maps.Copy(values, seed)

	return &Store{values: values}
}

// Get implements ports.KeyValueStore.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]

	return v, ok, nil
}

// Set implements ports.KeyValueStore.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SetErr != nil {
		return s.SetErr
	}

	if s.values == nil {
		s.values = make(map[string]string)
	}

	s.values[key] = value

	return nil
}

// Dump returns a copy of every stored value.
func (s *Store) Dump() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.values)
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "storage" }

// Check implements ports.HealthChecker. Memory storage is always healthy.
func (s *Store) Check(context.Context) error { return nil }
