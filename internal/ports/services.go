// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrRemoteFetch, ErrUnavailable, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// Storage keys shared by every KeyValueStore implementation.
const (
	// KeyQuotes holds the JSON-encoded quote collection.
	KeyQuotes = "quotes"

	// KeyLastSelectedCategory holds the last category filter chosen by the user.
	KeyLastSelectedCategory = "lastSelectedCategory"
)

// KeyValueStore is the durable string store backing the quote collection.
// There is no transaction across keys; callers tolerate a crash between two Sets.
//
// Example usage in application layer:
//
//	store := app.NewQuoteStore(app.QuoteStoreConfig{KV: kv, Logger: logger})
//	collection := store.Load(ctx)
type KeyValueStore interface {
	// Get returns the value stored under key. The boolean is false when the
	// key has never been written.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites the value stored under key. A successful return means
	// a subsequent Get observes the new value in full.
	Set(ctx context.Context, key, value string) error
}

// RemoteAck is the opaque acknowledgment returned by the remote collection
// after a successful post.
type RemoteAck struct {
	// ID is whatever identifier the remote assigned, rendered as a string.
	ID string `json:"id,omitempty"`

	// Raw is the undecoded response body.
	Raw []byte `json:"-"`
}

// QuoteSource is the remote quote collection.
//
// Key considerations:
//   - Handle timeouts via context deadline
//   - Map remote records to domain quotes (title -> text, category "Server")
//   - Wrap failures with domain.NewRemoteFetchError / domain.NewRemotePostError
type QuoteSource interface {
	// FetchQuotes retrieves at most limit quotes from the remote collection.
	FetchQuotes(ctx context.Context, limit int) (domain.Collection, error)

	// PostQuote sends a single quote upstream.
	PostQuote(ctx context.Context, quote domain.Quote) (*RemoteAck, error)
}

// EventPublisher defines the contract for publishing domain events.
// The notification sink for sync results is an EventPublisher.
type EventPublisher interface {
	// Publish sends an event to the configured destination.
	// Returns domain.ErrUnavailable if the sink is unreachable.
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event that can be published.
type Event interface {
	// EventType returns the type identifier for routing.
	EventType() string

	// Payload returns the event data for serialization.
	Payload() any
}

// Messenger is implemented by events that carry a user-facing message.
type Messenger interface {
	Message() string
}
