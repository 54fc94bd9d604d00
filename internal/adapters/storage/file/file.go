// Package file persists the key-value store as a single JSON document on disk.
// Every Set rewrites the whole document through a temp file and rename, so a
// reader never observes a half-written file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

const (
	fileMode = 0o600

	// CorruptSuffix is appended to a document that could not be parsed when it
	// is moved aside.
	CorruptSuffix = ".corrupt"
)

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// Store is a file-backed KeyValueStore.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open reads path if it exists. A missing file starts an empty store; the
// parent directory is created on first write. A document that cannot be
// parsed is renamed to path+CorruptSuffix and the store starts empty, so the
// quote store falls back to its defaults. Only I/O failures are returned.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return s, nil
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		if err := quarantine(path, domain.NewPersistenceDecodeError(path, err)); err != nil {
			return nil, err
		}

		return s, nil
	}

	if values != nil {
		s.values = values
	}

	return s, nil
}

// quarantine moves an unreadable document out of the way so the next Set
// does not overwrite it.
func quarantine(path string, cause error) error {
	aside := path + CorruptSuffix

	if err := os.Rename(path, aside); err != nil {
		return fmt.Errorf("moving unreadable %s aside: %w", path, err)
	}

	slog.Default().Warn("persisted document unreadable, starting empty",
		slog.String("component", "file-storage"),
		slog.String("path", path),
		slog.String("moved_to", aside),
		slog.Any("error", cause),
	)

	return nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Get implements ports.KeyValueStore.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]

	return v, ok, nil
}

// Set implements ports.KeyValueStore. The in-memory map only changes once
// the new document is on disk.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	next[key] = value

	if err := s.write(next); err != nil {
		return err
	}

	s.values = next

	return nil
}

func (s *Store) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".quotes-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, fileMode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "storage" }

// Check verifies the document directory is still reachable.
func (s *Store) Check(context.Context) error {
	dir := filepath.Dir(s.path)

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		// Created lazily on first Set.
		return nil
	}

	if err != nil {
		return domain.NewUnavailableError(s.Name(), err.Error())
	}

	if !info.IsDir() {
		return domain.NewUnavailableError(s.Name(), dir+" is not a directory")
	}

	return nil
}
