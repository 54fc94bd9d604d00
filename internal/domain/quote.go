package domain

import (
	"slices"
	"strings"
)

const (
	// FilterAll is the category filter value meaning "no filter".
	FilterAll = "all"

	// ServerCategory is assigned to every quote that arrives from the remote source.
	ServerCategory = "Server"
)

// Quote is a quotation and the category it was filed under.
// Two quotes are the same quote when their Text is byte-for-byte equal;
// Category plays no part in identity.
type Quote struct {
	// Text is the quotation itself. It is the deduplication key.
	Text string `json:"text"`

	// Category is a free-form grouping label.
	Category string `json:"category"`
}

// Validate reports whether both fields are non-empty.
func (q Quote) Validate() error {
	if q.Text == "" {
		return NewValidationError("text", "is required")
	}

	if q.Category == "" {
		return NewValidationErrorWithValue("category", "is required", q.Text)
	}

	return nil
}

// Normalized returns a copy with surrounding whitespace trimmed from both fields,
// the way user input is cleaned before it is stored.
func (q Quote) Normalized() Quote {
	return Quote{
		Text:     strings.TrimSpace(q.Text),
		Category: strings.TrimSpace(q.Category),
	}
}

// Collection is the ordered set of quotes held by the application.
// Order is insertion order; duplicates are allowed.
type Collection []Quote

// Clone returns an independent copy. A nil collection clones to an empty one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)

	return out
}

// Validate checks every quote and reports the first invalid one.
func (c Collection) Validate() error {
	for i := range c {
		if err := c[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Texts returns the set of quote texts in the collection.
func (c Collection) Texts() map[string]struct{} {
	set := make(map[string]struct{}, len(c))
	for i := range c {
		set[c[i].Text] = struct{}{}
	}

	return set
}

// Contains reports whether a quote with exactly this text is present.
func (c Collection) Contains(text string) bool {
	return slices.ContainsFunc(c, func(q Quote) bool { return q.Text == text })
}

// Categories returns the distinct categories in first-seen order.
func (c Collection) Categories() []string {
	seen := make(map[string]struct{}, len(c))
	categories := make([]string, 0, len(c))

	for i := range c {
		if _, ok := seen[c[i].Category]; ok {
			continue
		}

		seen[c[i].Category] = struct{}{}
		categories = append(categories, c[i].Category)
	}

	return categories
}

// Filter returns the quotes in category, or a copy of everything for FilterAll
// and the empty string.
func (c Collection) Filter(category string) Collection {
	if category == "" || category == FilterAll {
		return c.Clone()
	}

	out := make(Collection, 0, len(c))

	for i := range c {
		if c[i].Category == category {
			out = append(out, c[i])
		}
	}

	return out
}

// DefaultCollection returns the built-in seed quotes used at cold start.
func DefaultCollection() Collection {
	return Collection{
		{
			Text:     "The only limit to our realization of tomorrow is our doubts of today.",
			Category: "Motivation",
		},
		{
			Text:     "Life is 10% what happens to us and 90% how we react to it.",
			Category: "Inspiration",
		},
	}
}
