package reactive

import (
	"reflect"
	"sync"
)

// Signal holds a value of type T. Reading it with Get while a component
// renders subscribes that component; writing a different value marks every
// subscriber dirty.
type Signal[T any] struct {
	id uint64

	mu    sync.RWMutex
	value T
	subs  map[uint64]Listener
	order []uint64

	equal func(a, b T) bool
}

// NewSignal creates a signal holding initial. Inside a render use UseSignal
// so the same signal comes back on the next render.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{id: nextID(), value: initial}
}

// UseSignal returns the current component's signal for this hook position.
// initial only matters on the first render.
func UseSignal[T any](initial T) *Signal[T] {
	TrackHook(HookSignal)
	s, _ := UseSlot("Signal", func() *Signal[T] { return NewSignal(initial) })
	return s
}

// ID returns the signal's identifier.
func (s *Signal[T]) ID() uint64 {
	return s.id
}

// Get returns the value and subscribes the current listener, if any.
func (s *Signal[T]) Get() T {
	l := getCurrentListener()

	s.mu.Lock()
	defer s.mu.Unlock()
	if l != nil {
		if _, ok := s.subs[l.ID()]; !ok {
			if s.subs == nil {
				s.subs = map[uint64]Listener{}
			}
			s.subs[l.ID()] = l
			s.order = append(s.order, l.ID())
		}
	}
	return s.value
}

// Peek returns the value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores value. Subscribers are notified only when it differs from the
// current value.
func (s *Signal[T]) Set(value T) {
	s.Update(func(T) T { return value })
}

// Update replaces the value with fn(current) under the signal's lock.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	if s.same(s.value, next) {
		s.mu.Unlock()
		return
	}
	s.value = next
	subs := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	notify(subs)
}

// WithEquals replaces the change test used by Set and Update.
func (s *Signal[T]) WithEquals(fn func(a, b T) bool) *Signal[T] {
	s.equal = fn
	return s
}

func (s *Signal[T]) same(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	if ta := reflect.TypeOf(a); ta != nil && ta.Comparable() && !hasInterfaceField(ta) {
		return any(a) == any(b)
	}
	return reflect.DeepEqual(a, b)
}
