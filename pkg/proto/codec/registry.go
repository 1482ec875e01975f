package codec

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"go.minekube.com/bridge/pkg/proto"
)

var log = logr.Discard().WithName("proto-registry")

// SetLogger sets the logger used while building registries.
func SetLogger(l logr.Logger) { log = l.WithName("proto-registry") }

// Registry is the process-wide, read-only set of resolved codec tables of one edition.
// It is built once at startup by NewRegistry and never mutated afterwards,
// so it is safe for concurrent use without synchronization.
type Registry struct {
	versions []*proto.Version
	tables   map[proto.Protocol]*Table
}

// Table is the fully resolved codec of every packet kind for one protocol version.
// Looking up a codec is a single map access.
type Table struct {
	Version *proto.Version
	codecs  map[proto.Kind]*Definition
}

// NewRegistry validates the version chains in defs and resolves them
// for every supported version.
//
// It returns an error wrapping proto.ErrUnresolvedVersion if a chain has a gap,
// overlaps itself or has an empty range, and if a chain not marked Partial
// leaves a supported version uncovered.
func NewRegistry(versions []*proto.Version, defs ...[]Definition) (*Registry, error) {
	if len(versions) == 0 {
		return nil, errors.New("registry requires at least one supported version")
	}
	versions = slices.Clone(versions)
	slices.SortFunc(versions, func(a, b *proto.Version) int { return int(a.Protocol - b.Protocol) })

	chains := map[proto.Kind][]*Definition{}
	for _, group := range defs {
		for i := range group {
			d := &group[i]
			if d.Codec == nil {
				return nil, fmt.Errorf("%s: missing codec", d)
			}
			chains[d.Kind] = append(chains[d.Kind], d)
		}
	}

	var errs []error
	for kind, chain := range chains {
		slices.SortFunc(chain, func(a, b *Definition) int { return int(a.IntroducedAt - b.IntroducedAt) })
		if err := validateChain(chain); err != nil {
			errs = append(errs, fmt.Errorf("kind %s: %w", kind, err))
		}
	}
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}

	r := &Registry{
		versions: versions,
		tables:   make(map[proto.Protocol]*Table, len(versions)),
	}
	for _, v := range versions {
		t := &Table{Version: v, codecs: make(map[proto.Kind]*Definition, len(chains))}
		for kind, chain := range chains {
			d := resolve(chain, v.Protocol)
			if d == nil {
				if !partial(chain) {
					errs = append(errs, fmt.Errorf("%w: kind %s (%s) does not cover version %s",
						proto.ErrUnresolvedVersion, kind, chain[0].Name, v))
				}
				continue
			}
			t.codecs[kind] = d
		}
		r.tables[v.Protocol] = t
		log.V(1).Info("resolved codec table", "version", v, "packets", len(t.codecs))
	}
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func validateChain(chain []*Definition) error {
	for i, d := range chain {
		if d.SupersededAt != 0 && d.SupersededAt <= d.IntroducedAt {
			return fmt.Errorf("%w: %s has an empty range", proto.ErrUnresolvedVersion, d)
		}
		if i == 0 {
			continue
		}
		prev := chain[i-1]
		switch {
		case prev.SupersededAt == 0:
			return fmt.Errorf("%w: %s overlaps open ended %s", proto.ErrUnresolvedVersion, d, prev)
		case prev.SupersededAt < d.IntroducedAt:
			return fmt.Errorf("%w: gap between %s and %s", proto.ErrUnresolvedVersion, prev, d)
		case prev.SupersededAt > d.IntroducedAt:
			return fmt.Errorf("%w: %s overlaps %s", proto.ErrUnresolvedVersion, d, prev)
		}
	}
	return nil
}

func partial(chain []*Definition) bool {
	for _, d := range chain {
		if d.Partial {
			return true
		}
	}
	return false
}

// resolve returns the definition with the highest IntroducedAt <= v whose range contains v.
// The chain is sorted and validated.
func resolve(chain []*Definition, v proto.Protocol) *Definition {
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].IntroducedAt <= v {
			if chain[i].Contains(v) {
				return chain[i]
			}
			return nil
		}
	}
	return nil
}

// Resolve returns the codec table of a supported protocol version.
// Unsupported versions return an error wrapping proto.ErrUnresolvedVersion.
func (r *Registry) Resolve(p proto.Protocol) (*Table, error) {
	t, ok := r.tables[p]
	if !ok {
		return nil, fmt.Errorf("%w: protocol %s is not supported", proto.ErrUnresolvedVersion, p)
	}
	return t, nil
}

// Versions returns the supported versions in ascending order.
func (r *Registry) Versions() []*proto.Version { return slices.Clone(r.versions) }

// Lowest returns the lowest supported version.
func (r *Registry) Lowest() *proto.Version { return r.versions[0] }

// Highest returns the highest supported version.
func (r *Registry) Highest() *proto.Version { return r.versions[len(r.versions)-1] }

// Codec returns the codec of kind k, or false if the kind does not exist in this version.
func (t *Table) Codec(k proto.Kind) (Codec, bool) {
	d, ok := t.codecs[k]
	if !ok {
		return nil, false
	}
	return d.Codec, true
}

// Definition returns the definition kind k resolved to.
func (t *Table) Definition(k proto.Kind) (*Definition, bool) {
	d, ok := t.codecs[k]
	return d, ok
}

// Protocol returns the protocol version of the table.
func (t *Table) Protocol() proto.Protocol { return t.Version.Protocol }

// Len returns the number of known packet kinds.
func (t *Table) Len() int { return len(t.codecs) }
