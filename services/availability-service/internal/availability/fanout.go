package availability

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Concurrency is the ceiling on upstream lookups in flight for one inbound request.
const Concurrency = 6

// Result is the outcome of one fanned-out lookup.
type Result[T any] struct {
	ID    string
	Value T
	Err   error
}

// FanOut runs lookup for every id with at most limit calls in flight and
// returns the results in the order of ids. A failing or panicking lookup only
// affects its own slot.
func FanOut[T any](ctx context.Context, ids []string, limit int, lookup func(ctx context.Context, id string) (T, error)) []Result[T] {
	if limit <= 0 {
		limit = Concurrency
	}
	out := make([]Result[T], len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			out[i] = runLookup(ctx, id, lookup)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func runLookup[T any](ctx context.Context, id string, lookup func(ctx context.Context, id string) (T, error)) (res Result[T]) {
	res.ID = id
	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("lookup for resource %s panicked: %v", id, rec)
		}
	}()
	res.Value, res.Err = lookup(ctx, id)
	return res
}
