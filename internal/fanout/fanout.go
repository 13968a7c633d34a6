// Package fanout provides a bounded keyed worker pool for fetching data
// for a set of keys concurrently. It replaces ad hoc future-based fan-out
// with an explicit, testable abstraction: callers pass the keys and a
// fetch function and receive a per-key result map. A failing key never
// aborts the batch.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of fetching one key.
type Result[V any] struct {
	Value V
	Err   error
}

// Fetch runs fn for every key with at most width concurrent workers and
// returns a map keyed by input key. Duplicate keys are fetched once.
// fn errors are captured per key, not propagated; Fetch itself only
// returns early on context cancellation, in which case missing keys carry
// the context error.
func Fetch[V any](ctx context.Context, keys []string, width int, fn func(context.Context, string) (V, error)) map[string]Result[V] {
	if width <= 0 {
		width = 1
	}

	seen := make(map[string]bool, len(keys))
	distinct := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			distinct = append(distinct, k)
		}
	}

	type keyed struct {
		key string
		res Result[V]
	}
	out := make(chan keyed, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)
	for _, key := range distinct {
		key := key
		g.Go(func() error {
			v, err := fn(gctx, key)
			out <- keyed{key: key, res: Result[V]{Value: v, Err: err}}
			return nil
		})
	}
	// Workers never return errors, so this only waits for completion.
	_ = g.Wait()
	close(out)

	results := make(map[string]Result[V], len(distinct))
	for kv := range out {
		results[kv.key] = kv.res
	}
	for _, k := range distinct {
		if _, ok := results[k]; !ok {
			results[k] = Result[V]{Err: ctx.Err()}
		}
	}

	return results
}
