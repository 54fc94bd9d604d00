// Package app contains the application services: the quote store and the
// reconciler that keeps it in step with the remote collection.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// QuoteStore holds the quote collection in memory and mirrors every change to
// a durable key-value store. After any mutating call returns nil, the
// persisted snapshot equals the in-memory one.
type QuoteStore struct {
	kv     ports.KeyValueStore
	logger *slog.Logger
	intn   func(n int) int

	mu     sync.RWMutex
	quotes domain.Collection

	// unread is set when Load could not read storage. The defaults being
	// served must not be written over the real snapshot, so mutations re-read
	// first and fail while storage stays unreadable.
	unread bool
}

// QuoteStoreConfig contains the store's dependencies.
type QuoteStoreConfig struct {
	KV     ports.KeyValueStore
	Logger *slog.Logger

	// Intn picks a random index in [0, n). Defaults to math/rand/v2.IntN.
	Intn func(n int) int
}

// NewQuoteStore creates a store seeded with the built-in defaults. Call Load
// to replace them with the persisted snapshot.
func NewQuoteStore(cfg QuoteStoreConfig) *QuoteStore {
	if cfg.KV == nil {
		panic("app: QuoteStore requires a KeyValueStore")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	intn := cfg.Intn
	if intn == nil {
		intn = rand.IntN
	}

	return &QuoteStore{
		kv:     cfg.KV,
		logger: logger.With(slog.String("component", "quote-store")),
		intn:   intn,
		quotes: domain.DefaultCollection(),
	}
}

// Load reads the persisted snapshot. It fails soft: a missing, unreadable or
// malformed snapshot yields the built-in defaults. The in-memory collection is
// replaced in one step, never partially. When storage itself could not be
// read, mutations are held back until a later read succeeds.
func (s *QuoteStore) Load(ctx context.Context) domain.Collection {
	loaded, err := s.readSnapshot(ctx)
	unread := err != nil && !domain.IsPersistenceDecode(err)

	switch {
	case unread:
		s.logger.WarnContext(ctx, "storage unreadable, serving default quotes until it recovers",
			slog.Any("error", err),
		)

		loaded = domain.DefaultCollection()
	case err != nil:
		s.logger.WarnContext(ctx, "using default quotes",
			slog.Any("error", err),
		)

		loaded = domain.DefaultCollection()
	case loaded == nil:
		s.logger.DebugContext(ctx, "no persisted quotes, using defaults")

		loaded = domain.DefaultCollection()
	default:
		s.logger.DebugContext(ctx, "loaded persisted quotes",
			slog.Int("count", len(loaded)),
		)
	}

	s.mu.Lock()
	s.quotes = loaded
	s.unread = unread
	s.mu.Unlock()

	return loaded.Clone()
}

// refreshLocked retries the read Load could not complete. Mutations call it so
// they build on the persisted snapshot rather than on the defaults.
func (s *QuoteStore) refreshLocked(ctx context.Context) error {
	if !s.unread {
		return nil
	}

	loaded, err := s.readSnapshot(ctx)
	if err != nil && !domain.IsPersistenceDecode(err) {
		return domain.NewUnavailableError("storage", "persisted quotes could not be read: "+err.Error())
	}

	if loaded == nil {
		loaded = domain.DefaultCollection()
	}

	s.logger.InfoContext(ctx, "storage readable again, persisted quotes loaded",
		slog.Int("count", len(loaded)),
	)

	s.quotes = loaded
	s.unread = false

	return nil
}

// readSnapshot returns nil, nil when nothing has been persisted yet.
func (s *QuoteStore) readSnapshot(ctx context.Context) (domain.Collection, error) {
	raw, ok, err := s.kv.Get(ctx, ports.KeyQuotes)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", ports.KeyQuotes, err)
	}

	if !ok {
		return nil, nil
	}

	var decoded domain.Collection
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, domain.NewPersistenceDecodeError(ports.KeyQuotes, err)
	}

	if decoded == nil {
		return nil, domain.NewPersistenceDecodeError(ports.KeyQuotes, fmt.Errorf("snapshot is not an array"))
	}

	if err := decoded.Validate(); err != nil {
		return nil, domain.NewPersistenceDecodeError(ports.KeyQuotes, err)
	}

	return decoded, nil
}

// ReplaceAll overwrites the whole collection. The snapshot is written with a
// single Set and memory is swapped only after the write succeeds.
func (s *QuoteStore) ReplaceAll(ctx context.Context, quotes domain.Collection) error {
	if err := quotes.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitLocked(ctx, quotes.Clone())
}

// Update applies fn to the current collection and commits its result as one
// read-modify-write. fn must not call back into the store.
func (s *QuoteStore) Update(ctx context.Context, fn func(current domain.Collection) domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return err
	}

	next := fn(s.quotes.Clone())
	if err := next.Validate(); err != nil {
		return err
	}

	return s.commitLocked(ctx, next)
}

// Append trims and validates q, then adds it to the end of the collection.
// An invalid quote returns a domain.ValidationError and changes nothing.
func (s *QuoteStore) Append(ctx context.Context, q domain.Quote) (domain.Quote, error) {
	q = q.Normalized()
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return domain.Quote{}, err
	}

	next := append(s.quotes.Clone(), q)
	if err := s.commitLocked(ctx, next); err != nil {
		return domain.Quote{}, err
	}

	s.logger.InfoContext(ctx, "quote added",
		slog.String("category", q.Category),
		slog.Int("total", len(next)),
	)

	return q, nil
}

// AppendAll is the bulk path used by import. Every quote is validated before
// anything is written; one invalid entry rejects the whole batch.
func (s *QuoteStore) AppendAll(ctx context.Context, quotes domain.Collection) (domain.Collection, error) {
	cleaned := make(domain.Collection, 0, len(quotes))

	for i := range quotes {
		q := quotes[i].Normalized()
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("quote %d: %w", i, err)
		}

		cleaned = append(cleaned, q)
	}

	if len(cleaned) == 0 {
		return cleaned, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}

	next := append(s.quotes.Clone(), cleaned...)
	if err := s.commitLocked(ctx, next); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "quotes imported",
		slog.Int("count", len(cleaned)),
		slog.Int("total", len(next)),
	)

	return cleaned, nil
}

func (s *QuoteStore) commitLocked(ctx context.Context, next domain.Collection) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.kv.Set(ctx, ports.KeyQuotes, string(data)); err != nil {
		return fmt.Errorf("persisting quotes: %w", err)
	}

	s.quotes = next
	s.unread = false

	return nil
}

// Snapshot returns a copy of the current collection.
func (s *QuoteStore) Snapshot() domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.quotes.Clone()
}

// Categories returns the distinct categories in first-seen order.
func (s *QuoteStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.quotes.Categories()
}

// Filter returns the quotes in category; "" and domain.FilterAll return all.
func (s *QuoteStore) Filter(category string) domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.quotes.Filter(category)
}

// Random picks a quote from category. It returns a domain.NotFoundError when
// the category has no quotes.
func (s *QuoteStore) Random(category string) (domain.Quote, error) {
	candidates := s.Filter(category)
	if len(candidates) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quote", "")
	}

	return candidates[s.intn(len(candidates))], nil
}

// SetLastFilter persists the chosen category filter. A blank value is stored
// as domain.FilterAll.
func (s *QuoteStore) SetLastFilter(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.FilterAll
	}

	if err := s.kv.Set(ctx, ports.KeyLastSelectedCategory, category); err != nil {
		return fmt.Errorf("persisting filter: %w", err)
	}

	return nil
}

// LastFilter returns the persisted category filter. The boolean is false when
// the value is missing, blank, unreadable, or names a category that no longer
// exists; callers treat that as "no filter".
func (s *QuoteStore) LastFilter(ctx context.Context) (string, bool) {
	value, ok, err := s.kv.Get(ctx, ports.KeyLastSelectedCategory)
	if err != nil {
		s.logger.WarnContext(ctx, "reading last filter failed", slog.Any("error", err))
		return "", false
	}

	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false
	}

	if value == domain.FilterAll {
		return value, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !containsCategory(s.quotes, value) {
		return "", false
	}

	return value, true
}

func containsCategory(c domain.Collection, category string) bool {
	for i := range c {
		if c[i].Category == category {
			return true
		}
	}

	return false
}
