package param

import (
	"fmt"
	"reflect"

	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

// DefaultLoader is rendered while migrations run if Props.Loader is nil.
const DefaultLoader = "Migrating global state..."

// Phase is the state of a Provider.
type Phase uint8

const (
	// Migrating means migrations have not been applied yet. Children are not
	// rendered.
	Migrating Phase = iota

	// Ready means the registry is safe to read.
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "migrating"
}

// Props configures a Provider.
type Props struct {
	// Registry is shared with every descendant through Context.
	Registry *Registry

	// Migrations run once when the provider mounts, and again whenever
	// Trigger changes.
	Migrations []Migration

	// Trigger re-runs the migrations when it changes (by deep equality)
	// between renders.
	Trigger any

	// Loader renders in place of the children while migrating.
	Loader reactive.RenderFunc

	// Sink receives migration diagnostics. Defaults to diag.Current().
	Sink diag.Sink
}

type providerState struct {
	phase      *reactive.Signal[Phase]
	trigger    any
	generation int
	applied    bool
}

// Provider shares props.Registry with children and runs its migrations.
//
// With no migrations the provider is Ready on its first render. Otherwise it
// renders the loader, runs one migration pass after the render, and renders
// children once the pass is done. Children never observe pre-migration
// values. It is a hook and must be called unconditionally.
//
// Provider panics if a migration does not match the registry; that is a
// programming error like a misspelled slot name.
func Provider(props Props, children reactive.RenderFunc) string {
	reactive.TrackHook(reactive.HookProvider)
	return reactive.Mount(func() string {
		return renderProvider(props, children)
	})
}

func renderProvider(props Props, children reactive.RenderFunc) string {
	plan, err := props.Registry.Plan(props.Migrations...)
	if err != nil {
		panic(fmt.Sprintf("param: invalid migrations: %v", err))
	}
	sink := props.Sink
	if sink == nil {
		sink = diag.Current()
	}

	st, first := reactive.UseSlot("ParameterProvider", func() *providerState {
		initial := Migrating
		if plan.Len() == 0 {
			initial = Ready
		}
		return &providerState{
			phase:   reactive.NewSignal(initial),
			trigger: props.Trigger,
			applied: plan.Len() == 0,
		}
	})

	if !first && !reflect.DeepEqual(st.trigger, props.Trigger) {
		st.trigger = props.Trigger
		st.generation++
		st.applied = false
		if plan.Len() > 0 {
			st.phase.Set(Migrating)
		}
	}

	reactive.UseEffect(func() reactive.Cleanup {
		if !st.applied {
			Run(props.Registry, plan, sink)
			st.applied = true
		}
		st.phase.Set(Ready)
		return nil
	}, st.generation)

	Context.Provide(props.Registry)

	ready := st.phase.Get() == Ready
	loader := props.Loader
	if loader == nil {
		loader = func() string { return DefaultLoader }
	}
	return reactive.When(!ready, loader) + reactive.When(ready, children)
}
