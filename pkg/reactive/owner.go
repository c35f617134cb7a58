package reactive

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DebugMode makes owners check that hooks are called in the same order on
// every render. Set it at startup.
var DebugMode bool

// HookType names a kind of hook for order checking.
type HookType uint8

const (
	HookSignal HookType = iota + 1
	HookRef
	HookEffect
	HookContext
	HookComponent
	HookLocation
	HookLocalState
	HookQueryParam
	HookParameter
	HookProvider
)

var hookNames = [...]string{
	HookSignal:     "Signal",
	HookRef:        "Ref",
	HookEffect:     "Effect",
	HookContext:    "Context",
	HookComponent:  "Component",
	HookLocation:   "Location",
	HookLocalState: "LocalState",
	HookQueryParam: "QueryParam",
	HookParameter:  "Parameter",
	HookProvider:   "Provider",
}

func (h HookType) String() string {
	if int(h) < len(hookNames) && hookNames[h] != "" {
		return hookNames[h]
	}
	return "Unknown"
}

// hookState is the per-owner bookkeeping that gives hooks a stable identity:
// the n-th hook call of every render gets the n-th slot.
type hookState struct {
	slots []any
	pos   int

	// order is recorded on the first render and checked afterwards when
	// DebugMode is set.
	order    []HookType
	orderPos int
	recorded bool
}

// Owner is the scope of one mounted component. It holds the component's hook
// slots, effects, cleanups and provided context values, and its children are
// the scopes of the components it mounted. Lookups of context values walk up
// the parent chain.
type Owner struct {
	parent *Owner

	mu       sync.Mutex
	children []*Owner
	effects  []*Effect
	queued   []*Effect
	cleanups []func()
	values   map[any]any

	disposed atomic.Bool
	hooks    hookState
}

// NewOwner creates an owner under parent, or a root owner when parent is nil.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{parent: parent}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

// IsDisposed reports whether Dispose has been called.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

// OnCleanup registers fn to run when the owner is disposed. On an owner that
// is already disposed fn runs right away.
func (o *Owner) OnCleanup(fn func()) {
	o.mu.Lock()
	if !o.disposed.Load() {
		o.cleanups = append(o.cleanups, fn)
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()
	fn()
}

// SetValue provides value under key to this owner and its descendants.
func (o *Owner) SetValue(key, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = map[any]any{}
	}
	o.values[key] = value
}

// GetValue returns the value provided under key by this owner or the nearest
// ancestor, or nil.
func (o *Owner) GetValue(key any) any {
	for cur := o; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		v, ok := cur.values[key]
		cur.mu.Unlock()
		if ok {
			return v
		}
	}
	return nil
}

// Dispose tears down the owner: children first, newest first, then effects,
// then cleanups in reverse registration order.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}
	if p := o.parent; p != nil {
		p.mu.Lock()
		for i, c := range p.children {
			if c == o {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	}

	o.mu.Lock()
	children, effects, cleanups := o.children, o.effects, o.cleanups
	o.children, o.effects, o.cleanups, o.queued = nil, nil, nil, nil
	o.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	for _, e := range effects {
		e.dispose()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (o *Owner) kids() []*Owner {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Owner(nil), o.children...)
}

func (o *Owner) addEffect(e *Effect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.disposed.Load() {
		o.effects = append(o.effects, e)
	}
}

func (o *Owner) queueEffect(e *Effect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.disposed.Load() {
		o.queued = append(o.queued, e)
	}
}

// runEffects runs the effects queued on this owner and then on its
// descendants, parents before children.
func (o *Owner) runEffects() {
	if o.disposed.Load() {
		return
	}
	o.mu.Lock()
	queued := o.queued
	o.queued = nil
	o.mu.Unlock()

	for _, e := range queued {
		if e.pending.Load() {
			e.run()
		}
	}
	for _, c := range o.kids() {
		c.runEffects()
	}
}

// hasQueuedEffects reports whether any effect in the subtree is waiting.
func (o *Owner) hasQueuedEffects() bool {
	if o.disposed.Load() {
		return false
	}
	o.mu.Lock()
	n := len(o.queued)
	o.mu.Unlock()
	if n > 0 {
		return true
	}
	for _, c := range o.kids() {
		if c.hasQueuedEffects() {
			return true
		}
	}
	return false
}

// StartRender rewinds the hook cursor before the component renders.
func (o *Owner) StartRender() {
	beginRender()
	o.hooks.pos = 0
	o.hooks.orderPos = 0
}

// EndRender closes the render started by StartRender.
func (o *Owner) EndRender() {
	endRender()
	o.hooks.recorded = true
}

// TrackHook records or, once the first render is over, checks the kind of
// the next hook call. It only does work in DebugMode.
func (o *Owner) TrackHook(ht HookType) {
	if !DebugMode {
		return
	}
	h := &o.hooks
	switch {
	case !h.recorded:
		h.order = append(h.order, ht)
	case h.orderPos >= len(h.order):
		panic(fmt.Sprintf("reactive: hook order changed: extra %s hook at index %d", ht, h.orderPos))
	case h.order[h.orderPos] != ht:
		panic(fmt.Sprintf("reactive: hook order changed at index %d: expected %s, got %s",
			h.orderPos, h.order[h.orderPos], ht))
	}
	h.orderPos++
}

// nextSlot advances the hook cursor and returns the slot index and its
// value, or nil when the slot is new.
func (o *Owner) nextSlot() (int, any) {
	i := o.hooks.pos
	o.hooks.pos++
	if i < len(o.hooks.slots) {
		return i, o.hooks.slots[i]
	}
	o.hooks.slots = append(o.hooks.slots, nil)
	return i, nil
}

// TrackHook records a hook call on the current owner. Outside a render it
// does nothing.
func TrackHook(ht HookType) {
	if owner := getCurrentOwner(); owner != nil {
		owner.TrackHook(ht)
	}
}

// UseSlot keeps a value of type S in the current hook slot. It returns the
// stored value and whether create was just called for it. Outside a render
// every call creates a fresh value.
//
//	state, first := reactive.UseSlot("Binding", func() *binding { return &binding{} })
func UseSlot[S any](kind string, create func() S) (S, bool) {
	owner := getCurrentOwner()
	if owner == nil {
		return create(), true
	}
	i, v := owner.nextSlot()
	if v != nil {
		s, ok := v.(S)
		if !ok {
			panic("reactive: hook slot type mismatch for " + kind)
		}
		return s, false
	}
	s := create()
	owner.hooks.slots[i] = s
	return s, true
}
