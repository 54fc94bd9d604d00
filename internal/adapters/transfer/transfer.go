// Package transfer moves quote collections in and out of JSON documents.
//
// The document is a JSON array of {"text","category"} objects, indented two
// spaces on export. Import accepts the same shape and appends every entry
// through the store's all-or-nothing bulk path.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

const (
	// DefaultFileName is the suggested name for an exported document.
	DefaultFileName = "quotes.json"

	// MaxDocumentBytes caps what Decode reads.
	MaxDocumentBytes = 4 << 20
)

// Appender is the store operation Import needs.
type Appender interface {
	AppendAll(ctx context.Context, quotes domain.Collection) (domain.Collection, error)
}

// Export writes c as an indented JSON array. A nil collection is written as [].
func Export(w io.Writer, c domain.Collection) error {
	if c == nil {
		c = domain.Collection{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}

	return nil
}

// Decode reads a document. Anything other than a JSON array of objects is a
// validation error on field "file".
func Decode(r io.Reader) (domain.Collection, error) {
	var raw []json.RawMessage

	dec := json.NewDecoder(io.LimitReader(r, MaxDocumentBytes))
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.NewValidationError("file", "must be a JSON array of quotes: "+describe(err))
	}

	if raw == nil {
		return nil, domain.NewValidationError("file", "must be a JSON array of quotes")
	}

	out := make(domain.Collection, 0, len(raw))

	for i, item := range raw {
		var q domain.Quote
		if err := json.Unmarshal(item, &q); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("file[%d]", i), "must be an object with text and category")
		}

		out = append(out, q)
	}

	return out, nil
}

func describe(err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	}

	if errors.Is(err, io.EOF) {
		return "empty document"
	}

	return err.Error()
}

// Import decodes r and appends every quote to the store. Nothing is written
// unless every entry is valid. It returns the quotes as stored.
func Import(ctx context.Context, r io.Reader, store Appender) (domain.Collection, error) {
	quotes, err := Decode(r)
	if err != nil {
		return nil, err
	}

	added, err := store.AppendAll(ctx, quotes)
	if err != nil {
		return nil, fmt.Errorf("importing quotes: %w", err)
	}

	return added, nil
}
