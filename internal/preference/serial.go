package preference

import (
	"context"
	"sync"
)

// serialWriter issues remote writes for one target strictly one at a
// time. Values are staged first; a staged value replaces any value not
// yet sent, so only the latest one goes out once the in-flight write
// settles. Values are never sent out of order.
type serialWriter[T any] struct {
	write func(context.Context, T) error

	mu      sync.Mutex
	busy    bool
	pending *T
}

func newSerialWriter[T any](write func(context.Context, T) error) *serialWriter[T] {
	return &serialWriter[T]{write: write}
}

// Stage builds the next value under the writer's lock and parks it as
// the latest. Local state changes made by build are therefore ordered
// exactly like the values that Flush sends.
func (w *serialWriter[T]) Stage(build func() T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := build()
	w.pending = &v
}

// Flush sends parked values until none remain and returns the error of
// the last write. When another Flush is already sending, or the parked
// value was already taken, it returns nil at once.
func (w *serialWriter[T]) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.busy || w.pending == nil {
		w.mu.Unlock()
		return nil
	}
	w.busy = true
	v := *w.pending
	w.pending = nil
	w.mu.Unlock()

	for {
		err := w.write(ctx, v)

		w.mu.Lock()
		if w.pending == nil {
			w.busy = false
			w.mu.Unlock()
			return err
		}
		v = *w.pending
		w.pending = nil
		w.mu.Unlock()
	}
}

// Submit stages a value and flushes it.
func (w *serialWriter[T]) Submit(ctx context.Context, build func() T) error {
	w.Stage(build)
	return w.Flush(ctx)
}

// Busy reports whether a write is in flight or parked.
func (w *serialWriter[T]) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy || w.pending != nil
}
