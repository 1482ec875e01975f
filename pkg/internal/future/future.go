// Package future provides a deferred result that is observed through continuations.
package future

import (
	"context"
	"sync"
)

// Future holds a value of type T that is set exactly once, and the callbacks
// waiting for it.
//
// Callbacks run on the goroutine that completes the Future, or inline in
// ThenAccept if the Future is already completed. They must not block.
type Future[T any] struct {
	mu        sync.Mutex // Mutex for thread safety
	value     T          // The value that completes the Future
	callback  []func(T)  // The callbacks that get called when the Future is completed
	completed bool       // A flag to check if the Future is completed
	done      chan struct{}
}

// New returns a new Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a new Future already completed with value.
func Completed[T any](value T) *Future[T] {
	return New[T]().Complete(value)
}

// ThenAccept registers a callback to be called when the Future is completed.
// If the Future is already completed the callback is called immediately.
func (f *Future[T]) ThenAccept(callback func(T)) *Future[T] {
	f.mu.Lock()
	if !f.completed {
		f.callback = append(f.callback, callback)
		f.mu.Unlock()
		return f
	}
	v := f.value
	f.mu.Unlock()
	callback(v)
	return f
}

// Complete sets the value and calls the registered callbacks.
// Only the first call has an effect.
func (f *Future[T]) Complete(value T) *Future[T] {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return f
	}
	f.value = value
	f.completed = true
	callbacks := f.callback
	f.callback = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(value)
	}
	return f
}

// Value returns the value and true if the Future is completed.
func (f *Future[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.completed
}

// Done returns a channel that is closed once the Future is completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get blocks until the Future is completed or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		v, _ := f.Value()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ThenApply returns a new Future that completes with the
// result of fn applied to the value of f.
func ThenApply[T, R any](f *Future[T], fn func(T) R) *Future[R] {
	r := New[R]()
	f.ThenAccept(func(v T) { r.Complete(fn(v)) })
	return r
}

// ThenCompose returns a new Future that completes with the value of the
// Future returned by fn.
func ThenCompose[T, R any](f *Future[T], fn func(T) *Future[R]) *Future[R] {
	r := New[R]()
	f.ThenAccept(func(v T) {
		fn(v).ThenAccept(func(v R) { r.Complete(v) })
	})
	return r
}
