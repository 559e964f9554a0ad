// Package batch runs a unary operation over an ordered input set with a
// bounded number of concurrent invocations.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidLimit is returned when the concurrency limit is below one.
var ErrInvalidLimit = errors.New("concurrency limit must be >= 1")

// Func is the operation applied to every input.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Map calls fn for every input with at most limit invocations in flight and
// returns the outputs in input order.
//
// A failure fails the whole batch: Map returns the first error observed and
// no outputs. Invocations that already started are not canceled and are
// awaited before Map returns; inputs that have not started when the failure
// is observed are skipped.
func Map[In, Out any](ctx context.Context, inputs []In, limit int, fn Func[In, Out]) ([]Out, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if fn == nil {
		return nil, errors.New("batch func is required")
	}

	outputs := make([]Out, len(inputs))
	var (
		group  errgroup.Group
		failed atomic.Bool
	)
	group.SetLimit(limit)

	for i, in := range inputs {
		// Go blocks while limit invocations are running, so the flag is
		// checked once a slot is free.
		if failed.Load() {
			break
		}
		group.Go(func() error {
			if failed.Load() {
				return nil
			}
			out, err := fn(ctx, in)
			if err != nil {
				failed.Store(true)
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
