package history

import "github.com/vango-dev/paramstate/pkg/reactive"

// locationState is the hook slot behind Use.
type locationState struct {
	h    History
	loc  *reactive.Signal[Location]
	stop func()
}

// Use returns h's current location and re-renders the calling component
// whenever it changes. A nil h yields the zero Location. It is a hook and
// must be called unconditionally.
func Use(h History) Location {
	reactive.TrackHook(reactive.HookLocation)

	state, first := reactive.UseSlot("Location", func() *locationState {
		return &locationState{loc: reactive.NewSignal(Location{})}
	})
	if first {
		if owner := reactive.CurrentOwner(); owner != nil {
			owner.OnCleanup(func() { state.detach() })
		}
	}

	if state.h != h {
		state.detach()
		state.h = h
		if h != nil {
			state.loc.Set(h.Location())
			state.stop = h.Listen(func(loc Location, _ Action) {
				state.loc.Set(loc)
			})
		} else {
			state.loc.Set(Location{})
		}
	}
	return state.loc.Get()
}

// UseLocation is Use with the History provided by Context.
func UseLocation() Location {
	return Use(Context.Use())
}

func (s *locationState) detach() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
