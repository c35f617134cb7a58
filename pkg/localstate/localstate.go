// Package localstate binds a piece of component state to a durable key/value
// store: the value is read from the store when a key is first seen and
// written back in full on every change.
//
//	name := localstate.Use("name", "abc")
//	name.Get()      // "abc", or the stored value
//	name.Set("xyz") // store now holds `"xyz"`
//	name.Remove()   // entry deleted, value back to "abc"
package localstate

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/encoder"
	"github.com/vango-dev/paramstate/pkg/reactive"
	"github.com/vango-dev/paramstate/pkg/storage"
)

// ErrNoStorage is reported when a binding has no storage to read or write.
var ErrNoStorage = errors.New("localstate: no storage provided")

// bindingState tracks whether the in-memory value reflects the store for the
// current key.
type bindingState uint8

const (
	uninitialized bindingState = iota
	initialized
)

// Option configures a binding.
type Option func(*options)

type options struct {
	store   storage.Storage
	sink    diag.Sink
	encoder any
}

// WithStorage uses s instead of the storage provided by storage.Context.
func WithStorage(s storage.Storage) Option {
	return func(o *options) { o.store = s }
}

// WithSink reports failures to sink instead of the one provided by
// diag.Context.
func WithSink(sink diag.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithEncoder serializes values with enc instead of encoder.JSON. Its type
// must match the binding's value type.
func WithEncoder[T any](enc encoder.Encoder[T]) Option {
	return func(o *options) { o.encoder = enc }
}

// Value is a value persisted under a key.
type Value[T any] struct {
	key   string
	def   T
	enc   encoder.Encoder[T]
	store storage.Storage
	sink  diag.Sink

	state          bindingState
	initializedKey string

	value *reactive.Signal[T]
	err   error
}

// Use returns the binding for key. On the first render, and on any render
// where key differs from the key last read, the value is loaded from the
// store, falling back to def when the entry is missing or unreadable. It is
// a hook and must be called unconditionally.
func Use[T any](key string, def T, opts ...Option) *Value[T] {
	reactive.TrackHook(reactive.HookLocalState)

	v, _ := reactive.UseSlot("LocalState", func() *Value[T] {
		return &Value[T]{value: reactive.NewSignal(def)}
	})
	v.configure(def, opts)

	if v.state == initialized && v.initializedKey != key {
		v.state = uninitialized
	}
	if v.state == uninitialized {
		v.load(key)
	}
	return v
}

// New creates a binding outside of a component tree and loads it
// immediately. Storage and sink come from opts.
func New[T any](key string, def T, opts ...Option) *Value[T] {
	v := &Value[T]{value: reactive.NewSignal(def)}
	v.configure(def, opts)
	v.load(key)
	return v
}

func (v *Value[T]) configure(def T, opts []Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	v.def = def

	v.store = o.store
	if v.store == nil {
		if s, ok := storage.Context.Lookup(); ok {
			v.store = s
		}
	}

	v.sink = o.sink
	if v.sink == nil {
		v.sink = diag.Current()
	}

	switch enc := o.encoder.(type) {
	case nil:
		if v.enc == nil {
			v.enc = encoder.JSON[T]()
		}
	case encoder.Encoder[T]:
		v.enc = enc
	default:
		var zero T
		panic(fmt.Sprintf("localstate: encoder %T does not encode %T", o.encoder, zero))
	}
}

// load reads key from the store and moves the binding to initialized.
func (v *Value[T]) load(key string) {
	v.key = key
	v.initializedKey = key
	v.state = initialized
	v.err = nil

	value, err := v.read(key)
	if err != nil {
		v.fail(err)
		value = v.def
	}
	v.value.Set(value)
}

func (v *Value[T]) read(key string) (T, error) {
	if v.store == nil {
		return v.def, ErrNoStorage
	}
	text, ok, err := v.store.GetItem(key)
	if err != nil {
		return v.def, err
	}
	if !ok || text == "" {
		return v.def, nil
	}
	return v.enc.Decode(text, v.def)
}

func (v *Value[T]) fail(err error) {
	v.err = err
	v.sink.BindingError("localstate", v.key, err)
}

// Key returns the key the binding currently reads and writes.
func (v *Value[T]) Key() string {
	return v.key
}

// Get returns the current value and subscribes the rendering component.
func (v *Value[T]) Get() T {
	return v.value.Get()
}

// Peek returns the current value without subscribing.
func (v *Value[T]) Peek() T {
	return v.value.Peek()
}

// Set replaces the value and writes it to the store.
func (v *Value[T]) Set(value T) {
	v.value.Set(value)
	v.write(value)
}

// Update replaces the value with fn applied to the current one and writes
// the result to the store.
func (v *Value[T]) Update(fn func(T) T) {
	v.Set(fn(v.value.Peek()))
}

func (v *Value[T]) write(value T) {
	if v.store == nil {
		v.fail(ErrNoStorage)
		return
	}
	text, err := v.enc.Encode(value, v.def)
	if err != nil {
		v.fail(err)
		return
	}
	if err := v.store.SetItem(v.key, text); err != nil {
		v.fail(err)
		return
	}
	v.err = nil
}

// Remove deletes the stored entry and resets the value to the default. The
// default is not written back.
func (v *Value[T]) Remove() {
	if v.store == nil {
		v.fail(ErrNoStorage)
	} else if err := v.store.RemoveItem(v.key); err != nil {
		v.fail(err)
	} else {
		v.err = nil
	}
	v.value.Set(v.def)
}

// UsingStorage reports whether the value differs from the default.
func (v *Value[T]) UsingStorage() bool {
	return !reflect.DeepEqual(v.value.Get(), v.def)
}

// Err returns the error of the last failed read, write or remove, or nil if
// the last operation succeeded.
func (v *Value[T]) Err() error {
	return v.err
}
