// Package diag defines the diagnostic channel the bindings report to and
// its implementations: structured logging, Prometheus metrics and
// OpenTelemetry spans.
//
// Diagnostics never change binding behavior. They exist so an application
// can see unregistered parameter lookups, applied migrations, and storage or
// codec failures:
//
//	sink := diag.Multi(
//	    diag.NewLogger(logger),
//	    diag.NewMetrics(diag.WithNamespace("myapp")),
//	)
//	diag.Context.ProvideTo(root.Owner(), sink)
package diag

import (
	"log/slog"

	"github.com/vango-dev/paramstate/pkg/reactive"
)

// Sink receives diagnostics.
type Sink interface {
	// UnregisteredParameter reports a lookup of a name no registry provides.
	UnregisteredParameter(name string)
	// MigrationApplied reports that count migrations changed a parameter
	// from one value to another.
	MigrationApplied(name string, count int, from, to any)
	// BindingError reports a failed storage or codec operation. kind names
	// the binding ("localstate", "queryparam"), key is its storage or query
	// key.
	BindingError(kind, key string, err error)
}

// Context carries the Sink for a component tree.
var Context = reactive.CreateContext[Sink](nil)

// Current returns the Sink provided to the current component, or a Logger
// over slog.Default when none is provided. It is not a hook.
func Current() Sink {
	if s, ok := Context.Lookup(); ok && s != nil {
		return s
	}
	return NewLogger(slog.Default())
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) UnregisteredParameter(string)           {}
func (discard) MigrationApplied(string, int, any, any) {}
func (discard) BindingError(string, string, error)     {}

// Multi fans diagnostics out to every sink, in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) UnregisteredParameter(name string) {
	for _, s := range m {
		s.UnregisteredParameter(name)
	}
}

func (m multi) MigrationApplied(name string, count int, from, to any) {
	for _, s := range m {
		s.MigrationApplied(name, count, from, to)
	}
}

func (m multi) BindingError(kind, key string, err error) {
	for _, s := range m {
		s.BindingError(kind, key, err)
	}
}
