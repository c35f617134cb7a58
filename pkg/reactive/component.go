package reactive

import (
	"fmt"
	"sync/atomic"
)

// RenderFunc renders a component to its textual output.
type RenderFunc func() string

// Component is a mounted render function with its own Owner scope.
// Signals read while it renders subscribe it; a change marks it dirty and
// schedules its Root for another pass.
type Component struct {
	id     uint64
	owner  *Owner
	render RenderFunc
	root   *Root

	dirty  atomic.Bool
	output string
}

var _ Listener = (*Component)(nil)

func newComponent(parent *Owner, root *Root, render RenderFunc) *Component {
	return &Component{
		id:     nextID(),
		owner:  NewOwner(parent),
		render: render,
		root:   root,
	}
}

// ID implements Listener.
func (c *Component) ID() uint64 {
	return c.id
}

// Owner returns the component's owner scope.
func (c *Component) Owner() *Owner {
	return c.owner
}

// MarkDirty implements Listener.
func (c *Component) MarkDirty() {
	if c.owner.IsDisposed() {
		return
	}
	if c.dirty.CompareAndSwap(false, true) && c.root != nil {
		c.root.markDirty()
	}
}

// IsDirty reports whether the component needs re-rendering.
func (c *Component) IsDirty() bool {
	return c.dirty.Load()
}

// Output returns the result of the last render.
func (c *Component) Output() string {
	return c.output
}

// Render runs the render function inside the component's owner scope with
// the component as the tracking listener.
func (c *Component) Render() string {
	if c.render == nil {
		return ""
	}

	var out string
	WithOwner(c.owner, func() {
		c.owner.StartRender()
		defer c.owner.EndRender()

		WithListener(c, func() {
			out = c.render()
		})
	})

	c.dirty.Store(false)
	c.output = out
	return out
}

// Dispose disposes the component's owner and everything it holds.
func (c *Component) Dispose() {
	c.owner.Dispose()
	c.render = nil
}

// Mount renders render as a child component of the component currently
// rendering. The child keeps its identity (hooks, effects, context) across
// renders of the parent. It is a hook and must be called unconditionally.
func Mount(render RenderFunc) string {
	return When(true, render)
}

// When is Mount with a visibility switch: the child component is created on
// the first call and kept alive, but only rendered while show is true.
// Keeping the hook call unconditional preserves the parent's hook order.
func When(show bool, render RenderFunc) string {
	parent := getCurrentOwner()
	if parent == nil {
		if !show {
			return ""
		}
		return render()
	}
	parent.TrackHook(HookComponent)

	var root *Root
	if current, ok := getCurrentListener().(*Component); ok {
		root = current.root
	}

	c, _ := UseSlot("Component", func() *Component {
		return newComponent(parent, root, render)
	})
	c.render = render
	if !show {
		return ""
	}
	return c.Render()
}

// DefaultMaxPasses bounds the render/effect loop of a Root.
const DefaultMaxPasses = 100

// Root drives a component tree: it renders the top component, runs pending
// effects, and repeats until no component is dirty and no effect is pending.
type Root struct {
	owner     *Owner
	top       *Component
	dirty     atomic.Bool
	maxPasses int
}

// NewRoot creates a root for render. Nothing renders until Render is called,
// so collaborators can be provided on Owner() first.
func NewRoot(render RenderFunc) *Root {
	r := &Root{
		owner:     NewOwner(nil),
		maxPasses: DefaultMaxPasses,
	}
	r.top = newComponent(r.owner, r, render)
	return r
}

// Owner returns the root owner. Values set on it are visible to the whole
// tree.
func (r *Root) Owner() *Owner {
	return r.owner
}

// WithMaxPasses overrides the render/effect loop bound.
func (r *Root) WithMaxPasses(n int) *Root {
	if n > 0 {
		r.maxPasses = n
	}
	return r
}

func (r *Root) markDirty() {
	r.dirty.Store(true)
}

// Render performs the first render and settles the tree.
func (r *Root) Render() string {
	r.markDirty()
	return r.Flush()
}

// Flush re-renders the tree if anything is dirty and runs pending effects,
// repeating until the tree is stable. It panics if the tree keeps changing
// for more than the configured number of passes.
func (r *Root) Flush() string {
	for pass := 0; pass < r.maxPasses; pass++ {
		if r.owner.IsDisposed() {
			return ""
		}
		if r.dirty.Swap(false) {
			r.top.Render()
		}
		if r.owner.hasQueuedEffects() {
			r.owner.runEffects()
		}
		if !r.dirty.Load() && !r.owner.hasQueuedEffects() {
			return r.top.Output()
		}
	}
	panic(fmt.Sprintf("reactive: tree did not settle after %d passes", r.maxPasses))
}

// Output returns the last rendered output of the tree.
func (r *Root) Output() string {
	return r.top.Output()
}

// Dispose tears down the whole tree.
func (r *Root) Dispose() {
	r.owner.Dispose()
}

// Act runs fn (typically an event handler that writes signals) on the root's
// owner and then flushes. It mirrors how a session applies a client event.
func (r *Root) Act(fn func()) string {
	WithOwner(r.owner, func() {
		Batch(fn)
	})
	return r.Flush()
}
