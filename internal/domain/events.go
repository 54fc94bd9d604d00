package domain

import (
	"fmt"
	"time"
)

// EventQuotesSynced is the event type published when a sync cycle adds quotes.
const EventQuotesSynced = "quotes-synced"

// QuotesSynced is published after a merge commit introduced at least one quote.
type QuotesSynced struct {
	Added    Collection `json:"added"`
	Total    int        `json:"total"`
	SyncedAt time.Time  `json:"syncedAt"`
}

// EventType implements ports.Event.
func (e QuotesSynced) EventType() string {
	return EventQuotesSynced
}

// Payload implements ports.Event.
func (e QuotesSynced) Payload() any {
	return e
}

// Message is the human-readable summary shown to the user.
func (e QuotesSynced) Message() string {
	noun := "quotes"
	if len(e.Added) == 1 {
		noun = "quote"
	}

	return fmt.Sprintf("Quotes synced with server: %d new %s added.", len(e.Added), noun)
}
