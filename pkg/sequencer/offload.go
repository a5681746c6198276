package sequencer

import "context"

type result[T any] struct {
	value T
	err   error
}

// Offload runs a blocking fn on its own goroutine and waits for its result.
// If ctx ends first the result is dropped; fn keeps running until it
// returns on its own.
func Offload[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn()
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
