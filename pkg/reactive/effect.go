package reactive

import (
	"reflect"
	"sync/atomic"
)

// Effect is a side effect that runs after the render pass in which it was
// scheduled. Effects created with UseEffect are scheduled on the first render
// and on every render whose dependency list differs from the previous one.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup
	deps    []any

	owner *Owner

	pending  atomic.Bool
	disposed atomic.Bool
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// schedule queues the effect on its owner once.
func (e *Effect) schedule() {
	if e.disposed.Load() {
		return
	}
	if e.pending.CompareAndSwap(false, true) && e.owner != nil {
		e.owner.queueEffect(e)
	}
}

// run executes the previous cleanup and then the effect body. Effects do not
// track the signals they read.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}
	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	Untracked(func() {
		WithOwner(e.owner, func() {
			e.cleanup = e.fn()
		})
	})
}

func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// UseEffect schedules fn to run after the current render when deps differ
// from the deps of the previous render. With no deps it runs once, after the
// first render. The most recent fn is always the one that runs.
//
//	reactive.UseEffect(func() reactive.Cleanup {
//	    unsubscribe := bus.Subscribe(topic)
//	    return unsubscribe
//	}, topic)
//
// Outside a render the effect runs immediately.
func UseEffect(fn func() Cleanup, deps ...any) {
	owner := getCurrentOwner()
	if owner == nil {
		if cleanup := fn(); cleanup != nil {
			cleanup()
		}
		return
	}
	owner.TrackHook(HookEffect)

	e, first := UseSlot("Effect", func() *Effect {
		e := &Effect{id: nextID(), owner: owner}
		owner.addEffect(e)
		return e
	})
	e.fn = fn

	if first || !depsEqual(e.deps, deps) {
		e.deps = append(e.deps[:0:0], deps...)
		e.schedule()
	}
}

// OnUnmount registers fn to run when the current component is disposed.
func OnUnmount(fn func()) {
	if owner := getCurrentOwner(); owner != nil {
		owner.OnCleanup(fn)
	}
}

func depsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameDep(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameDep compares comparable values with == (pointer identity for pointers)
// and everything else structurally. Functions never compare equal.
func sameDep(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() && !hasInterfaceField(ta) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// hasInterfaceField reports whether a comparable type may still panic on ==
// because it holds interface values with non-comparable dynamic types.
func hasInterfaceField(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return hasInterfaceField(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasInterfaceField(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
