// Package param aggregates named state bindings into one registry that a
// component tree shares, and runs versioned migrations over them.
//
// A binding can be backed by anything with Get/Set/Update: a plain signal,
// a localstate value or a query parameter. Consumers look bindings up by name
// and never learn where the value lives.
//
//	reg, err := param.NewRegistry(
//	    param.Bind[string]("name", localstate.Use("name", "abc")),
//	    param.Bind[float64]("page", queryparam.Use("page", 1.0, encoder.Number())),
//	)
//
//	return param.Provider(param.Props{Registry: reg, Migrations: migrations}, App)
//
//	// anywhere below App
//	name := param.Use[string]("name")
package param

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vango-dev/paramstate/pkg/reactive"
)

var (
	// ErrDuplicateSlot is returned by NewRegistry when two slots share a name.
	ErrDuplicateSlot = errors.New("param: duplicate slot name")

	// ErrUnknownSlot is returned when a name is not in the registry.
	ErrUnknownSlot = errors.New("param: unknown slot")

	// ErrTypeMismatch is returned when a slot is used with a type other than
	// the one it was bound with.
	ErrTypeMismatch = errors.New("param: slot type mismatch")
)

// Binding is a readable and writable value. reactive.Signal,
// localstate.Value and queryparam.Param all satisfy it.
type Binding[T any] interface {
	Get() T
	Set(T)
	Update(func(T) T)
}

// Slot is a binding registered under a name with its value type erased.
type Slot struct {
	name    string
	typ     reflect.Type
	binding any
	get     func() any
	set     func(any) error
}

// Bind registers b under name.
func Bind[T any](name string, b Binding[T]) Slot {
	typ := reflect.TypeFor[T]()
	return Slot{
		name:    name,
		typ:     typ,
		binding: b,
		get:     func() any { return b.Get() },
		set: func(v any) error {
			t, ok := valueAs[T](v)
			if !ok {
				return fmt.Errorf("%w: %q holds %s, got %T", ErrTypeMismatch, name, typ, v)
			}
			b.Set(t)
			return nil
		},
	}
}

// valueAs converts v to T. A nil v converts to the zero value.
func valueAs[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}

// Name returns the slot name.
func (s Slot) Name() string { return s.name }

// Type returns the value type the slot was bound with.
func (s Slot) Type() reflect.Type { return s.typ }

// Get returns the binding's current value.
func (s Slot) Get() any { return s.get() }

// Set writes v through the binding. v must hold the slot's type.
func (s Slot) Set(v any) error { return s.set(v) }

// Registry is an immutable set of uniquely named slots.
type Registry struct {
	order []string
	slots map[string]Slot
}

// Context carries the registry for a component tree. Provider sets it.
var Context = reactive.CreateContext[*Registry](nil)

// NewRegistry builds a registry from slots. Names must be unique.
func NewRegistry(slots ...Slot) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(slots)),
		slots: make(map[string]Slot, len(slots)),
	}
	for _, s := range slots {
		if _, dup := r.slots[s.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSlot, s.name)
		}
		r.order = append(r.order, s.name)
		r.slots[s.name] = s
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error, for registries built
// during render from a fixed list of slots.
func MustRegistry(slots ...Slot) *Registry {
	r, err := NewRegistry(slots...)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns the slot names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Slot returns the slot registered under name.
func (r *Registry) Slot(name string) (Slot, bool) {
	if r == nil {
		return Slot{}, false
	}
	s, ok := r.slots[name]
	return s, ok
}

// Snapshot reads every slot once.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{values: make(map[string]any, r.Len())}
	for _, name := range r.Names() {
		snap.names = append(snap.names, name)
		snap.values[name] = r.slots[name].get()
	}
	return snap
}

// Get returns the binding registered under name as a Binding[T].
func Get[T any](r *Registry, name string) (Binding[T], error) {
	s, ok := r.Slot(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}
	b, ok := s.binding.(Binding[T])
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %s, requested %s", ErrTypeMismatch, name, s.typ, reflect.TypeFor[T]())
	}
	return b, nil
}

// Snapshot is the value of every slot at one instant. It is never updated.
type Snapshot struct {
	names  []string
	values map[string]any
}

// Get returns the value recorded for name.
func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the recorded slot names in registration order.
func (s Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of recorded slots.
func (s Snapshot) Len() int {
	return len(s.names)
}

// Map returns a copy of the recorded values.
func (s Snapshot) Map() map[string]any {
	m := make(map[string]any, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// Lookup returns the value recorded for name if it holds a T.
func Lookup[T any](s Snapshot, name string) (T, bool) {
	v, ok := s.values[name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
