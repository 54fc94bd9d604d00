package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// printer renders a command result as indented JSON or as text.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) *printer {
	return &printer{format: opts.Format, w: w}
}

// print writes v as JSON, or calls text when the format is text.
func (p *printer) print(v any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}

		return nil
	}

	text(p.w)

	return nil
}

func writeQuote(w io.Writer, q domain.Quote) {
	fmt.Fprintf(w, "%s [%s]\n", q.Text, q.Category)
}

func writeQuotes(w io.Writer, quotes domain.Collection) {
	for _, q := range quotes {
		writeQuote(w, q)
	}
}
