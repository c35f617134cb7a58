package paramset

import (
	"math"

	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/history"
	"github.com/vango-dev/paramstate/pkg/param"
	"github.com/vango-dev/paramstate/pkg/reactive"
	"github.com/vango-dev/paramstate/pkg/storage"
)

// Page is a mounted tree over a Set: a provider running the Set's
// migrations, with one child that records the parameter values. It must be
// driven from a single goroutine.
type Page struct {
	set  *Set
	root *reactive.Root

	reg    *param.Registry
	values map[string]any
}

// Mount creates a page whose durable values live in store and whose query
// values live in h. Nothing renders until Render.
func (s *Set) Mount(store storage.Storage, h history.History, sink diag.Sink) *Page {
	p := &Page{set: s}
	p.root = reactive.NewRoot(p.render)
	storage.Context.ProvideTo(p.root.Owner(), store)
	history.Context.ProvideTo(p.root.Owner(), h)
	diag.Context.ProvideTo(p.root.Owner(), sink)
	return p
}

func (p *Page) render() string {
	return param.Provider(param.Props{
		Registry:   p.set.Registry(),
		Migrations: p.set.Migrations(),
	}, p.children)
}

func (p *Page) children() string {
	p.reg = param.Context.Use()
	p.values = p.reg.Snapshot().Map()
	return ""
}

// Render performs the first render, running migrations, and settles.
func (p *Page) Render() {
	p.root.Render()
}

// Flush re-renders after an outside change such as a navigation.
func (p *Page) Flush() {
	p.root.Flush()
}

// Set writes value to the parameter called name and settles the tree.
func (p *Page) Set(name string, value any) error {
	slot, ok := p.reg.Slot(name)
	if !ok {
		return param.ErrUnknownSlot
	}
	var err error
	p.root.Act(func() {
		err = slot.Set(value)
	})
	return err
}

// Values returns the last rendered values in a JSON-safe form.
func (p *Page) Values() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = jsonSafe(v)
	}
	return out
}

// Registry returns the registry the children received, or nil while
// migrations are pending.
func (p *Page) Registry() *param.Registry {
	return p.reg
}

// Close disposes the tree.
func (p *Page) Close() {
	p.root.Dispose()
}

// jsonSafe maps the non-finite numbers a number binding can decode to
// null, since encoding/json rejects them.
func jsonSafe(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
