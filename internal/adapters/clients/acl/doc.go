// Package acl is the anti-corruption layer between the remote quote
// collection and the domain.
//
// The remote speaks a posts API: a GET returns a JSON array of records whose
// title field carries the quote text, and a POST accepts a new record and
// echoes it back with an id. Nothing from that shape leaks past this
// package. [QuoteClient] turns records into domain quotes in the "Server"
// category, and [MapHTTPError] turns transport and status failures into
// domain errors.
//
// Translation helpers:
//
//   - [BaseAdapter]: Get/Post wrappers that map failures through [MapHTTPError]
//   - [DecodeResponse]: generic JSON body decoder
//   - [TranslateSlice]: batch translation that drops records marked [ErrSkip]
//   - [ParseErrorResponse]: best-effort parse of an error body
package acl
