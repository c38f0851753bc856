// Package registry maps live heap values to their inspected entries.
//
// A Registry is a chain of layers. Each layer holds local entries and
// tombstones for keys deleted locally; reads fall through to the parent.
// Forking never copies: the current layer becomes a frozen base and both
// registries continue on fresh child layers.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"closuregen/internal/entry"
	"closuregen/internal/jsvalue"
)

var (
	ErrSealed   = errors.New("registry is sealed")
	ErrConflict = errors.New("key already holds a different entry")
)

// Error reports a registry protocol violation.
type Error struct {
	Op  string
	Key any
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry: %s %v: %v", e.Op, describeKey(e.Key), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func describeKey(key any) string {
	switch k := key.(type) {
	case *jsvalue.Object:
		return k.Class().String() + " object"
	case *jsvalue.Symbol:
		return k.String()
	default:
		return fmt.Sprintf("%T", key)
	}
}

type layer struct {
	parent  *layer
	entries map[any]*entry.Entry
	deleted map[any]struct{}
}

func newLayer(parent *layer) *layer {
	return &layer{
		parent:  parent,
		entries: make(map[any]*entry.Entry),
	}
}

func (l *layer) lookup(key any) (*entry.Entry, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if _, gone := cur.deleted[key]; gone {
			return nil, false
		}
		if e, ok := cur.entries[key]; ok {
			return e, true
		}
	}
	return nil, false
}

// Registry is safe for concurrent use. Layers below the top are never
// written again, so forks of one base do not contend.
type Registry struct {
	mu     sync.Mutex
	top    *layer
	sealed bool
	// owned holds the unresolved placeholders this registry prepared.
	owned map[*entry.Entry]struct{}
}

func New() *Registry {
	return &Registry{top: newLayer(nil)}
}

// trackable reports whether key can be tracked by identity.
func trackable(key any) bool {
	if key == nil {
		return false
	}
	switch key.(type) {
	case jsvalue.Undefined, jsvalue.Null:
		return false
	}
	return reflect.TypeOf(key).Comparable()
}

// Lookup returns the entry for key, or nil.
func (r *Registry) Lookup(key any) *entry.Entry {
	if !trackable(key) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, _ := r.top.lookup(key)
	return e
}

// Prepare reserves a pending entry for key if it has none.
func (r *Registry) Prepare(key any) error {
	_, err := r.PreparedLookup(key)
	return err
}

// PreparedLookup returns the entry for key, reserving a pending one first
// when the key is unknown.
func (r *Registry) PreparedLookup(key any) (*entry.Entry, error) {
	if !trackable(key) {
		return entry.Pending(), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.top.lookup(key)
	if ok && !(e.IsPending() && !r.ownsLocked(e)) {
		return e, nil
	}
	if r.sealed {
		if ok {
			return e, nil
		}
		return nil, &Error{Op: "prepare", Key: key, Err: ErrSealed}
	}
	// A placeholder inherited through a fork belongs to the registry that
	// prepared it; this one gets its own.
	e = entry.Pending()
	if r.owned == nil {
		r.owned = make(map[*entry.Entry]struct{})
	}
	r.owned[e] = struct{}{}
	r.putLocked(key, e)
	return e, nil
}

// Add records e for key. A pending entry already held for key is resolved
// in place to e.
func (r *Registry) Add(key any, e *entry.Entry) error {
	if !trackable(key) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return &Error{Op: "add", Key: key, Err: ErrSealed}
	}
	existing, ok := r.top.lookup(key)
	if !ok {
		r.putLocked(key, e)
		return nil
	}
	if entry.Same(existing, e) {
		return nil
	}
	if existing.IsPending() {
		if !r.ownsLocked(existing) {
			r.putLocked(key, e)
			return nil
		}
		delete(r.owned, existing)
		return existing.Canonical().Resolve(e)
	}
	return &Error{Op: "add", Key: key, Err: ErrConflict}
}

// ownsLocked reports whether p is a placeholder this registry prepared.
func (r *Registry) ownsLocked(p *entry.Entry) bool {
	_, ok := r.owned[p]
	return ok
}

func (r *Registry) putLocked(key any, e *entry.Entry) {
	r.top.entries[key] = e
	if r.top.deleted != nil {
		delete(r.top.deleted, key)
	}
}

// Remove deletes key locally and masks any value inherited from a parent.
func (r *Registry) Remove(key any) (*entry.Entry, error) {
	if !trackable(key) {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil, &Error{Op: "remove", Key: key, Err: ErrSealed}
	}
	e, _ := r.top.lookup(key)
	delete(r.top.entries, key)
	if r.top.parent != nil {
		if r.top.deleted == nil {
			r.top.deleted = make(map[any]struct{})
		}
		r.top.deleted[key] = struct{}{}
	}
	return e, nil
}

// Fork returns an independent registry that sees everything r holds now.
// A sealed registry is shared as the fork's base as is. An unsealed one is
// frozen into a base under both r and the fork. Keys still pending at fork
// time are resolved separately on each side.
func (r *Registry) Fork() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return &Registry{top: newLayer(r.top)}
	}
	base := r.top
	r.top = newLayer(base)
	return &Registry{top: newLayer(base)}
}

// Seal makes the registry read-only. Forks of it are writable.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Len counts the keys visible through r.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[any]bool)
	n := 0
	for cur := r.top; cur != nil; cur = cur.parent {
		for k := range cur.deleted {
			if _, ok := seen[k]; !ok {
				seen[k] = false
			}
		}
		for k := range cur.entries {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = true
			n++
		}
	}
	return n
}
