package future

import (
	"errors"
	"fmt"

	"go.minekube.com/bridge/pkg/proto"
)

// Outcome is the result of a lookup. A failed lookup is an
// unresolved Outcome carrying an error that matches proto.ErrLookupFailed.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Resolved returns a successful Outcome.
func Resolved[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

// Unresolved returns a failed Outcome.
func Unresolved[T any](err error) Outcome[T] {
	switch {
	case err == nil:
		err = proto.ErrLookupFailed
	case !errors.Is(err, proto.ErrLookupFailed):
		err = fmt.Errorf("%w: %w", proto.ErrLookupFailed, err)
	}
	return Outcome[T]{Err: err}
}

// Ok reports whether the lookup succeeded.
func (o Outcome[T]) Ok() bool { return o.Err == nil }

// Attempt runs fn in a new goroutine and returns a Future completed with its Outcome.
// A panic in fn resolves the Outcome as failed.
func Attempt[T any](fn func() (T, error)) *Future[Outcome[T]] {
	f := New[Outcome[T]]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Complete(Unresolved[T](fmt.Errorf("panic: %v", r)))
			}
		}()
		v, err := fn()
		if err != nil {
			f.Complete(Unresolved[T](err))
			return
		}
		f.Complete(Resolved(v))
	}()
	return f
}
