// Package queryparam binds a piece of component state to one key of the URL
// query string.
//
// The value is never cached: every read parses the current location, and
// every write starts from the current location rather than the one seen at
// render time, so concurrent writers never overwrite each other's keys.
//
//	// ?page=3 reads as 3; writing 1 (the default) removes the key
//	page := queryparam.Use("page", 1.0, encoder.Number())
//
//	// Filters as sparse JSON, base64url encoded, new history entry per change
//	filters := queryparam.Use("f", Filters{}, encoder.Base64URL(encoder.Sparse[Filters]()), queryparam.Push)
package queryparam

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/encoder"
	"github.com/vango-dev/paramstate/pkg/history"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

// Mode determines how URL updates are recorded in history.
type Mode int

const (
	// ModeReplace overwrites the current history entry (default).
	ModeReplace Mode = iota

	// ModePush adds a new history entry.
	ModePush
)

func (m Mode) String() string {
	if m == ModePush {
		return "push"
	}
	return "replace"
}

// Option configures a query parameter binding.
type Option interface {
	apply(*config)
}

type config struct {
	mode    Mode
	history history.History
	sink    diag.Sink
}

// Mode options as values (not functions) to avoid collision with navigation
// methods.
var (
	// Push creates a new history entry for every change.
	Push Option = modeOption{mode: ModePush}

	// Replace updates the URL without creating a history entry.
	Replace Option = modeOption{mode: ModeReplace}
)

type modeOption struct {
	mode Mode
}

func (o modeOption) apply(c *config) {
	c.mode = o.mode
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithHistory uses h instead of the history provided by history.Context.
func WithHistory(h history.History) Option {
	return optionFunc(func(c *config) { c.history = h })
}

// WithSink reports failures to sink instead of the one provided by
// diag.Context.
func WithSink(sink diag.Sink) Option {
	return optionFunc(func(c *config) { c.sink = sink })
}

// Param is a value stored in one query key.
type Param[T any] struct {
	key  string
	def  T
	enc  encoder.Encoder[T]
	mode Mode

	h    history.History
	sink diag.Sink

	err     error
	badText string
}

// Use returns the binding for key. The calling component re-renders when
// the location changes. It is a hook and must be called unconditionally.
func Use[T any](key string, def T, enc encoder.Encoder[T], opts ...Option) *Param[T] {
	reactive.TrackHook(reactive.HookQueryParam)

	p, _ := reactive.UseSlot("QueryParam", func() *Param[T] { return &Param[T]{} })
	p.configure(key, def, enc, opts)

	history.Use(p.h)
	return p
}

// New creates a binding on h outside of a component tree.
func New[T any](h history.History, key string, def T, enc encoder.Encoder[T], opts ...Option) *Param[T] {
	p := &Param[T]{}
	p.configure(key, def, enc, append([]Option{WithHistory(h)}, opts...))
	return p
}

func (p *Param[T]) configure(key string, def T, enc encoder.Encoder[T], opts []Option) {
	var c config
	for _, opt := range opts {
		opt.apply(&c)
	}

	p.key = key
	p.def = def
	p.enc = enc
	p.mode = c.mode

	p.h = c.history
	if p.h == nil {
		if h, ok := history.Context.Lookup(); ok {
			p.h = h
		}
	}

	p.sink = c.sink
	if p.sink == nil {
		p.sink = diag.Current()
	}
}

// Key returns the query key.
func (p *Param[T]) Key() string {
	return p.key
}

// Mode returns the navigation mode used for writes.
func (p *Param[T]) Mode() Mode {
	return p.mode
}

func (p *Param[T]) params() url.Values {
	if p.h == nil {
		return url.Values{}
	}
	// ParseQuery keeps every well-formed pair even when it reports an error.
	params, _ := url.ParseQuery(p.h.Location().Search)
	return params
}

// decode reads the key from params. Repeated keys use the first value.
func (p *Param[T]) decode(params url.Values) T {
	values, ok := params[p.key]
	if !ok || len(values) == 0 {
		return p.def
	}
	text := values[0]
	value, err := p.enc.Decode(text, p.def)
	if err != nil {
		p.err = err
		if text != p.badText {
			p.badText = text
			p.sink.BindingError("queryparam", p.key, err)
		}
		return p.def
	}
	return value
}

// Get decodes the value from the current location, or returns the default
// when the key is absent or cannot be decoded.
func (p *Param[T]) Get() T {
	p.err = nil
	return p.decode(p.params())
}

// IsSet reports whether the key is present in the current location.
func (p *Param[T]) IsSet() bool {
	_, ok := p.params()[p.key]
	return ok
}

// Set writes value to the query string.
func (p *Param[T]) Set(value T) {
	p.write(func(T) T { return value })
}

// Update writes fn applied to the value decoded from the current location.
func (p *Param[T]) Update(fn func(T) T) {
	p.write(fn)
}

// Reset removes the key from the query string.
func (p *Param[T]) Reset() {
	p.Set(p.def)
}

// Err returns the error of the last failed decode or encode, or nil.
func (p *Param[T]) Err() error {
	return p.err
}

// write applies fn to the current value and navigates only if the query
// string must change: a default value removes the key, any other value sets
// it unless it is already encoded that way.
func (p *Param[T]) write(fn func(T) T) {
	if p.h == nil {
		return
	}
	p.err = nil

	params := p.params()
	next := fn(p.decode(params))
	_, present := params[p.key]

	if reflect.DeepEqual(next, p.def) {
		if !present {
			return
		}
		params.Del(p.key)
		p.navigate(params)
		return
	}

	encoded, err := p.enc.Encode(next, p.def)
	if err != nil {
		p.err = err
		p.sink.BindingError("queryparam", p.key, err)
		return
	}
	if present && params.Get(p.key) == encoded {
		return
	}
	params.Set(p.key, encoded)
	p.navigate(params)
}

// navigate re-encodes params (keys sorted, spaces as %20) and updates
// history. The path is preserved.
func (p *Param[T]) navigate(params url.Values) {
	search := strings.ReplaceAll(params.Encode(), "+", "%20")
	if p.mode == ModePush {
		p.h.Push(search)
	} else {
		p.h.Replace(search)
	}
}
