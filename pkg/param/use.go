package param

import (
	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

// inert is the binding handed out for names the registry does not hold.
type inert[T any] struct{}

func (inert[T]) Get() T {
	var zero T
	return zero
}

func (inert[T]) Set(T)            {}
func (inert[T]) Update(func(T) T) {}

type useState struct {
	reported string
}

// Use returns the binding registered under name in the nearest Provider.
//
// A name that is not registered, or is registered with another type, yields
// a zero-valued binding whose writes are ignored, and is reported to the
// diagnostic sink once per name. It is a hook and must be called
// unconditionally.
func Use[T any](name string) Binding[T] {
	reactive.TrackHook(reactive.HookParameter)

	st, _ := reactive.UseSlot("Parameter", func() *useState { return &useState{} })

	b, err := Get[T](Context.Use(), name)
	if err != nil {
		if st.reported != name {
			st.reported = name
			diag.Current().UnregisteredParameter(name)
		}
		return inert[T]{}
	}
	st.reported = ""
	return b
}
