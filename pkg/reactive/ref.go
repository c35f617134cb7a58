package reactive

// Ref is a mutable box that keeps its identity across renders. Writing to a
// Ref does not trigger a render.
type Ref[T any] struct {
	Current T
}

// UseRef returns the component's Ref for this hook position, initialized to
// initial on the first render.
func UseRef[T any](initial T) *Ref[T] {
	TrackHook(HookRef)
	r, _ := UseSlot("Ref", func() *Ref[T] { return &Ref[T]{Current: initial} })
	return r
}
