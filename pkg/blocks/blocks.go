// Package blocks is the registry of custom Bedrock blocks that player heads
// are displayed as.
//
// The registry is read from a YAML file:
//
//	skullStates:
//	  floor: 8707 # first Java state id of minecraft:player_head
//	  wall: 8739  # first Java state id of minecraft:player_wall_head
//	blocks:
//	  - name: copper_machine
//	    runtimeId: 10250
//	    neteaseFaceDirectional: 1
//	  - name: ruby_ore
//	    runtimeId: 10262
//	    skinHash: 5a1f8c0b6c0e6b3f...
//
// A skull whose owner names a custom block (see CustomName) displays the block
// of that name. A player skull whose skin hash matches a skinHash entry displays
// that block.
package blocks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"

	"go.minekube.com/bridge/pkg/internal/reload"
)

// Descriptor is a custom block.
type Descriptor struct {
	Name      string `yaml:"name"`
	RuntimeID int32  `yaml:"runtimeId"` // Bedrock runtime id of the default state
	// NeteaseFaceDirectional is 1 if the block has four facing states following
	// the default state, in the order of Rotation.
	NeteaseFaceDirectional int    `yaml:"neteaseFaceDirectional,omitempty"`
	SkinHash               string `yaml:"skinHash,omitempty"`
}

// Directional reports whether the block has facing states.
func (d *Descriptor) Directional() bool { return d.NeteaseFaceDirectional == 1 }

// StateFor returns the runtime id of the block facing rotation.
// Blocks without facing states ignore rotation.
func (d *Descriptor) StateFor(rotation int32) int32 {
	if !d.Directional() {
		return d.RuntimeID
	}
	return d.RuntimeID + rotation
}

// File is the layout of the registry file.
type File struct {
	SkullStates SkullStates  `yaml:"skullStates,omitempty"`
	Blocks      []Descriptor `yaml:"blocks"`
}

// Snapshot is an immutable version of the registry.
type Snapshot struct {
	skulls SkullStates
	byName map[string]*Descriptor
	bySkin map[string]*Descriptor
}

// Empty is the snapshot without custom blocks.
var Empty = &Snapshot{byName: map[string]*Descriptor{}, bySkin: map[string]*Descriptor{}}

// Parse parses and validates a registry file.
func Parse(data []byte) (*Snapshot, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing custom blocks: %w", err)
	}
	return New(f)
}

// New returns the snapshot of f.
// Names are case-insensitive.
func New(f File) (*Snapshot, error) {
	s := &Snapshot{
		skulls: f.SkullStates,
		byName: make(map[string]*Descriptor, len(f.Blocks)),
		bySkin: map[string]*Descriptor{},
	}
	var errs []error
	if err := f.SkullStates.validate(); err != nil {
		errs = append(errs, err)
	}
	for i := range f.Blocks {
		d := f.Blocks[i]
		d.Name = strings.ToLower(strings.TrimSpace(d.Name))
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("block #%d: missing name", i))
			continue
		case d.RuntimeID < 0:
			errs = append(errs, fmt.Errorf("block %q: invalid runtime id %d", d.Name, d.RuntimeID))
			continue
		case d.NeteaseFaceDirectional != 0 && d.NeteaseFaceDirectional != 1:
			errs = append(errs, fmt.Errorf("block %q: neteaseFaceDirectional must be 0 or 1", d.Name))
			continue
		}
		if _, ok := s.byName[d.Name]; ok {
			errs = append(errs, fmt.Errorf("block %q: duplicate name", d.Name))
			continue
		}
		s.byName[d.Name] = &d
		if d.SkinHash != "" {
			if other, ok := s.bySkin[d.SkinHash]; ok {
				errs = append(errs, fmt.Errorf("block %q: skin hash already used by %q", d.Name, other.Name))
				continue
			}
			s.bySkin[d.SkinHash] = &d
		}
	}
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Lookup returns the block named name.
func (s *Snapshot) Lookup(name string) (Descriptor, bool) {
	d, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// LookupSkin returns the block displayed for player skulls with the skin hash.
func (s *Snapshot) LookupSkin(hash string) (Descriptor, bool) {
	if hash == "" {
		return Descriptor{}, false
	}
	d, ok := s.bySkin[hash]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// SkullStates returns the configured Java skull states.
func (s *Snapshot) SkullStates() SkullStates { return s.skulls }

// Len returns the number of blocks.
func (s *Snapshot) Len() int { return len(s.byName) }

// Registry holds the current Snapshot and replaces it on Load.
// It is safe for concurrent use, readers never block.
type Registry struct {
	path     string
	log      logr.Logger
	eventMgr event.Manager
	current  atomic.Pointer[Snapshot]
}

// NewRegistry returns a Registry of the file at path.
// An empty path is a registry without custom blocks that never reloads.
// Load must be called to read the file.
func NewRegistry(path string, mgr event.Manager, log logr.Logger) *Registry {
	if mgr == nil {
		mgr = event.Nop
	}
	r := &Registry{path: path, eventMgr: mgr, log: log.WithName("blocks")}
	r.current.Store(Empty)
	return r
}

// Snapshot returns the current snapshot.
func (r *Registry) Snapshot() *Snapshot { return r.current.Load() }

// Lookup returns the block named name in the current snapshot.
func (r *Registry) Lookup(name string) (Descriptor, bool) { return r.Snapshot().Lookup(name) }

// Load reads the registry file and swaps the snapshot.
// On error the previous snapshot stays in place.
// A reload.ConfigUpdateEvent[Snapshot] is fired after a swap.
func (r *Registry) Load() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("error reading custom blocks file: %w", err)
	}
	next, err := Parse(data)
	if err != nil {
		return err
	}
	prev := r.current.Swap(next)
	r.log.Info("loaded custom blocks", "path", r.path, "blocks", next.Len())
	reload.FireConfigUpdate(r.eventMgr, next, prev)
	return nil
}

// Watch reloads the registry whenever its file changes until ctx is canceled.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		return nil
	}
	return reload.Watch(logr.NewContext(ctx, r.log), r.path, reload.DefaultDebounce, r.Load)
}
