package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 20

	// MaxLimit is the largest page size accepted.
	MaxLimit = 100
)

// ErrInvalidCursor is returned when a cursor cannot be decoded or does not
// belong to the requested listing.
var ErrInvalidCursor = errors.New("invalid cursor")

// PageRequest carries the pagination query parameters.
type PageRequest struct {
	// Cursor is the opaque NextCursor of a previous page.
	Cursor string `form:"cursor"`

	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

// PageSize returns Limit clamped to [1, MaxLimit], defaulting to DefaultLimit.
func (p PageRequest) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Cursor is the position of the next page within one filtered listing.
// The collection is append-only between syncs, so an offset stays valid.
type Cursor struct {
	Offset int    `json:"o"`
	Scope  string `json:"s,omitempty"`
}

// EncodeCursor returns the opaque form of c.
func EncodeCursor(c Cursor) string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. An empty string is the first page.
func DecodeCursor(encoded string) (Cursor, error) {
	if encoded == "" {
		return Cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.Offset < 0 {
		return Cursor{}, ErrInvalidCursor
	}

	return c, nil
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// Paginate cuts the page req asks for out of items. scope ties the cursor to
// one listing (the category filter); a cursor from another scope, or one that
// points past the end, is rejected.
func Paginate[T any](items []T, req PageRequest, scope string) (*Page[T], error) {
	cur, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	if req.Cursor != "" && (cur.Scope != scope || cur.Offset > len(items)) {
		return nil, ErrInvalidCursor
	}

	end := min(cur.Offset+req.PageSize(), len(items))

	page := &Page[T]{
		Items: append([]T{}, items[cur.Offset:end]...),
		Total: len(items),
	}

	if end < len(items) {
		page.HasMore = true
		page.NextCursor = EncodeCursor(Cursor{Offset: end, Scope: scope})
	}

	return page, nil
}
