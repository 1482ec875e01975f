// Package reload watches files that can change at runtime and announces the values
// parsed from them through an event.Manager.
package reload

import (
	"github.com/robinbraemer/event"
)

// ConfigUpdateEvent is fired after a watched file was parsed successfully.
type ConfigUpdateEvent[T any] struct {
	// Config is the new value.
	Config *T
	// PrevConfig is the value it replaced, nil on the first load.
	PrevConfig *T
}

var _ event.Event = (*ConfigUpdateEvent[any])(nil)

// Subscribe subscribes handler to updates of T.
// The returned function unsubscribes it.
func Subscribe[T any](mgr event.Manager, handler func(*ConfigUpdateEvent[T])) func() {
	return event.Subscribe(mgr, 0, handler)
}

// FireConfigUpdate fires a ConfigUpdateEvent replacing prev with config.
func FireConfigUpdate[T any](mgr event.Manager, config, prev *T) {
	mgr.Fire(&ConfigUpdateEvent[T]{Config: config, PrevConfig: prev})
}
