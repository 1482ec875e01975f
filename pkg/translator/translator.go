// Package translator maps decoded packets of one edition to the translators that
// rewrite them for the other edition, and runs them on the session's loop.
package translator

import (
	"errors"
	"fmt"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/session"
)

// Translator translates one packet for a session.
// It runs on the session's loop.
type Translator interface {
	Translate(s *session.Session, p proto.Packet) error
}

// Func adapts a function translating packets of type P to a Translator.
type Func[P proto.Packet] func(s *session.Session, p P) error

// Translate implements Translator.
func (fn Func[P]) Translate(s *session.Session, p proto.Packet) error {
	pk, ok := p.(P)
	if !ok {
		return fmt.Errorf("translator for %T got %T", pk, p)
	}
	return fn(s, pk)
}

type entry struct {
	Translator
	name            string
	requiresSpawned bool
}

// Option configures a registered translator.
type Option func(*entry)

// RequiresSpawned drops packets arriving before the session is spawned.
func RequiresSpawned() Option {
	return func(e *entry) { e.requiresSpawned = true }
}

// Builder collects translators to build a Registry.
type Builder struct {
	entries map[proto.Kind]*entry
	errs    []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: map[proto.Kind]*entry{}}
}

// Register registers t for packets of kind.
// Registering a kind twice makes Build fail.
func (b *Builder) Register(kind proto.Kind, t Translator, opts ...Option) *Builder {
	e := &entry{Translator: t, name: fmt.Sprintf("%T", t)}
	for _, o := range opts {
		o(e)
	}
	if prev, ok := b.entries[kind]; ok {
		b.errs = append(b.errs, fmt.Errorf("duplicate translator for kind %s: %s and %s", kind, prev.name, e.name))
		return b
	}
	b.entries[kind] = e
	return b
}

// Register registers fn for the packets of type P.
func Register[P proto.Packet](b *Builder, fn func(*session.Session, P) error, opts ...Option) *Builder {
	var zero P
	return b.Register(zero.Kind(), Func[P](fn), opts...)
}

// Build returns the immutable Registry of all registered translators.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) != 0 {
		return nil, errors.Join(b.errs...)
	}
	r := &Registry{entries: make(map[proto.Kind]*entry, len(b.entries))}
	for k, e := range b.entries {
		r.entries[k] = e
	}
	return r, nil
}

// Registry maps packet kinds to translators.
// It is never mutated after Build and safe for concurrent use.
type Registry struct {
	entries map[proto.Kind]*entry
}

// Lookup returns the translator of kind.
func (r *Registry) Lookup(kind proto.Kind) (Translator, bool) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, false
	}
	return e.Translator, true
}

// RequiresSpawned reports whether the translator of kind only runs on spawned sessions.
func (r *Registry) RequiresSpawned(kind proto.Kind) bool {
	e, ok := r.entries[kind]
	return ok && e.requiresSpawned
}

// Len returns the number of registered translators.
func (r *Registry) Len() int { return len(r.entries) }
