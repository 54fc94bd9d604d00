package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PartialResult holds a result or an error for partial success patterns.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartialLimit runs fns with at most limit in flight and collects
// every result, in input order. One failure does not cancel the others.
//
// Example:
//
//	results := ParallelPartialLimit(ctx, 4, postFuncs...)
//	for _, r := range results {
//	    if r.Err != nil { ... }
//	}
func ParallelPartialLimit[T any](
	ctx context.Context,
	limit int,
	fns ...func(context.Context) (T, error),
) []PartialResult[T] {
	if limit <= 0 {
		limit = 1
	}

	results := make([]PartialResult[T], len(fns))

	// Errors are collected per slot, never returned to the group, so one
	// failure does not stop the rest.
	var g errgroup.Group
	g.SetLimit(limit)

	for i, fn := range fns {
		g.Go(func() error {
			value, err := fn(ctx)
			results[i] = PartialResult[T]{Value: value, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return results
}
