package dto

import (
	"time"

	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// QuoteRequest is the body of POST /api/v1/quotes.
type QuoteRequest struct {
	Text     string `json:"text"     validate:"notblank,max=2000"`
	Category string `json:"category" validate:"notblank,max=100"`
}

// ToDomain returns the trimmed quote.
func (r QuoteRequest) ToDomain() domain.Quote {
	return domain.Quote{Text: r.Text, Category: r.Category}.Normalized()
}

// QuoteResponse is a quote on the wire.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a collection, never returning nil.
func NewQuoteResponses(c domain.Collection) []QuoteResponse {
	out := make([]QuoteResponse, len(c))
	for i := range c {
		out[i] = NewQuoteResponse(c[i])
	}

	return out
}

// ListQuotesRequest is the query of GET /api/v1/quotes.
type ListQuotesRequest struct {
	Category string `form:"category" validate:"max=100"`
	Cursor   string `form:"cursor"`
	Limit    int    `form:"limit"    validate:"omitempty,min=1,max=100"`
}

// Page returns the pagination part of the query.
func (r ListQuotesRequest) Page() PageRequest {
	return PageRequest{Cursor: r.Cursor, Limit: r.Limit}
}

// CategoryQuery is the optional ?category= filter.
type CategoryQuery struct {
	Category string `form:"category" validate:"max=100"`
}

// CategoriesResponse lists the distinct categories in first-seen order.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// FilterRequest is the body of PUT /api/v1/filter. A blank category clears
// the filter.
type FilterRequest struct {
	Category string `json:"category" validate:"max=100"`
}

// FilterResponse reports the active filter and the quotes it selects.
type FilterResponse struct {
	Category string          `json:"category"`
	Stored   bool            `json:"stored"`
	Quotes   []QuoteResponse `json:"quotes"`
}

// ImportResponse summarises POST /api/v1/import.
type ImportResponse struct {
	Imported int  `json:"imported"`
	Total    int  `json:"total"`
	Upstream bool `json:"upstream"`
}

// SyncStatusResponse is the body of GET /api/v1/sync.
type SyncStatusResponse struct {
	Enabled  bool            `json:"enabled"`
	State    app.SyncState   `json:"state"`
	Interval string          `json:"interval"`
	Last     *app.SyncResult `json:"last,omitempty"`
}

// NewSyncStatusResponse builds the status body.
func NewSyncStatusResponse(enabled bool, state app.SyncState, interval time.Duration, last *app.SyncResult) SyncStatusResponse {
	return SyncStatusResponse{
		Enabled:  enabled,
		State:    state,
		Interval: interval.String(),
		Last:     last,
	}
}

// NotificationsQuery is the query of GET /api/v1/notifications.
type NotificationsQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=1000"`
}
