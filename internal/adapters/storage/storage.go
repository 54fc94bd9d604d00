// Package storage selects the durable key-value backend for the quote store.
package storage

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage/file"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Backend is a KeyValueStore that can report health and release resources.
type Backend interface {
	ports.KeyValueStore
	ports.HealthChecker
	Close() error
}

// Open returns the backend for driver. path is ignored by the memory driver.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverMemory:
		return nopCloser{memory.New(nil)}, nil
	case DriverFile:
		s, err := file.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening file storage: %w", err)
		}

		return nopCloser{s}, nil
	case DriverSQLite:
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

type kvChecker interface {
	ports.KeyValueStore
	Name() string
	Check(ctx context.Context) error
}

type nopCloser struct {
	kvChecker
}

func (nopCloser) Close() error { return nil }
