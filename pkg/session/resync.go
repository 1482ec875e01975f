package session

import (
	"go.minekube.com/bridge/pkg/internal/future"
)

// Resync runs fn with the value of f on the loop of s.
//
// If f is already completed and the caller runs on the loop, fn runs inline.
// Otherwise fn is submitted to the loop once f completes and runs after the
// tasks queued by then. fn is dropped if s is closed before it runs.
func Resync[T any](s *Session, f *future.Future[T], fn func(T)) {
	if v, ok := f.Value(); ok && s.InLoop() {
		if !s.Closed() {
			fn(v)
		}
		return
	}
	f.ThenAccept(func(v T) {
		s.Submit(func() {
			if s.Closed() {
				return
			}
			fn(v)
		})
	})
}
