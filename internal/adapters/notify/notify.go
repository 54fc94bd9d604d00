// Package notify implements the notification sink for sync results.
//
// A [Feed] keeps the most recent notifications in memory for the HTTP API and
// the CLI. A [LogPublisher] writes them to the structured log. [Multi] fans
// one event out to several publishers.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// DefaultFeedSize is used when NewFeed is given a non-positive size.
const DefaultFeedSize = 20

// Notification is one delivered event as shown to a user.
type Notification struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// FromEvent builds a Notification. Events without a Message method are
// shown by type.
func FromEvent(event ports.Event, at time.Time) Notification {
	message := event.EventType()
	if m, ok := event.(ports.Messenger); ok {
		message = m.Message()
	}

	return Notification{
		ID:      uuid.NewString(),
		Type:    event.EventType(),
		Message: message,
		Payload: event.Payload(),
		At:      at,
	}
}

// Feed is a fixed-size ring of recent notifications.
type Feed struct {
	mu    sync.RWMutex
	ring  []Notification
	next  int
	count int
	now   func() time.Time
}

var _ ports.EventPublisher = (*Feed)(nil)

// NewFeed creates a feed holding at most size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}

	return &Feed{ring: make([]Notification, size), now: time.Now}
}

// Publish implements ports.EventPublisher. It never fails.
func (f *Feed) Publish(_ context.Context, event ports.Event) error {
	n := FromEvent(event, f.now())

	f.mu.Lock()
	defer f.mu.Unlock()

	f.ring[f.next] = n
	f.next = (f.next + 1) % len(f.ring)

	if f.count < len(f.ring) {
		f.count++
	}

	return nil
}

// Recent returns up to limit notifications, newest first. A non-positive
// limit returns everything held.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > f.count {
		limit = f.count
	}

	out := make([]Notification, limit)
	for i := range limit {
		idx := (f.next - 1 - i + len(f.ring)) % len(f.ring)
		out[i] = f.ring[idx]
	}

	return out
}

// Len returns how many notifications the feed holds.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.count
}

// LogPublisher writes every event to a logger at info level.
type LogPublisher struct {
	logger *slog.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a LogPublisher. A nil logger means slog.Default.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogPublisher{logger: logger.With(slog.String("component", "notify"))}
}

// Publish implements ports.EventPublisher.
func (p *LogPublisher) Publish(ctx context.Context, event ports.Event) error {
	n := FromEvent(event, time.Now())

	p.logger.InfoContext(ctx, n.Message, slog.String("event_type", n.Type))

	return nil
}

// Multi delivers each event to every publisher, in order, and joins their
// errors. A failing publisher does not stop the rest.
type Multi []ports.EventPublisher

var _ ports.EventPublisher = Multi(nil)

// Publish implements ports.EventPublisher.
func (m Multi) Publish(ctx context.Context, event ports.Event) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
