// Package paramset turns the parameters declared in paramstate.json into
// bindings and migrations.
//
// A Set is built once from configuration. Its Registry method is a hook: it
// creates one binding per declared parameter on the calling component, so
// every session gets its own values.
package paramset

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/pkg/encoder"
	"github.com/vango-dev/paramstate/pkg/localstate"
	"github.com/vango-dev/paramstate/pkg/param"
	"github.com/vango-dev/paramstate/pkg/param/exprmigrate"
	"github.com/vango-dev/paramstate/pkg/queryparam"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

// Set is a compiled list of parameter declarations.
type Set struct {
	defs       []config.ParamConfig
	binders    []func() param.Slot
	types      map[string]reflect.Type
	migrations []param.Migration
}

// New compiles defs and rules. Every rule must target a declared parameter.
func New(defs []config.ParamConfig, rules []exprmigrate.Rule, opts ...exprmigrate.Option) (*Set, error) {
	s := &Set{
		defs:  defs,
		types: make(map[string]reflect.Type, len(defs)),
	}
	for _, def := range defs {
		if _, dup := s.types[def.Name]; dup {
			return nil, fmt.Errorf("%w: %q", param.ErrDuplicateSlot, def.Name)
		}
		bind, typ, err := binderFor(def)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", def.Name, err)
		}
		s.binders = append(s.binders, bind)
		s.types[def.Name] = typ
	}

	for _, r := range rules {
		if _, ok := s.types[r.Param]; !ok {
			return nil, fmt.Errorf("%w: migration targets %q", param.ErrUnknownSlot, r.Param)
		}
	}
	migrations, err := exprmigrate.Compile(rules, opts...)
	if err != nil {
		return nil, err
	}
	s.migrations = migrations
	return s, nil
}

// FromConfig compiles the parameters and migrations of cfg.
func FromConfig(cfg *config.Config) (*Set, error) {
	return New(cfg.Params, cfg.Migrations)
}

// Registry creates the bindings and returns them as a registry. It is a
// hook and must be called unconditionally, during render.
func (s *Set) Registry() *param.Registry {
	slots := make([]param.Slot, len(s.binders))
	for i, bind := range s.binders {
		slots[i] = bind()
	}
	return param.MustRegistry(slots...)
}

// Migrations returns the compiled migrations in declaration order.
func (s *Set) Migrations() []param.Migration {
	return s.migrations
}

// Names returns the declared parameter names in order.
func (s *Set) Names() []string {
	names := make([]string, len(s.defs))
	for i, def := range s.defs {
		names[i] = def.Name
	}
	return names
}

// Def returns the declaration for name.
func (s *Set) Def(name string) (config.ParamConfig, bool) {
	for _, def := range s.defs {
		if def.Name == name {
			return def, true
		}
	}
	return config.ParamConfig{}, false
}

// Decode converts a JSON document into a value of the type name is bound
// with, ready for param.Slot.Set.
func (s *Set) Decode(name string, data []byte) (any, error) {
	typ, ok := s.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", param.ErrUnknownSlot, name)
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("param %q: %w", name, err)
	}
	return ptr.Elem().Interface(), nil
}

func binderFor(def config.ParamConfig) (func() param.Slot, reflect.Type, error) {
	switch def.Encoder {
	case config.EncoderString:
		return typedBinder(def, encoder.String())
	case config.EncoderNumber:
		return typedBinder(def, encoder.Number())
	case config.EncoderBool:
		return typedBinder(def, encoder.Bool())
	case config.EncoderSparse:
		return typedBinder(def, encoder.Sparse[map[string]any]())
	case config.EncoderJSON, "":
		return typedBinder(def, encoder.JSON[any]())
	default:
		return nil, nil, fmt.Errorf("unknown encoder %q", def.Encoder)
	}
}

func typedBinder[T any](def config.ParamConfig, enc encoder.Encoder[T]) (func() param.Slot, reflect.Type, error) {
	var value T
	if len(def.Default) > 0 {
		if err := json.Unmarshal(def.Default, &value); err != nil {
			return nil, nil, fmt.Errorf("default: %w", err)
		}
	}

	if def.Base64 {
		if def.Kind == config.KindQuery {
			enc = encoder.Base64URL(enc)
		} else {
			enc = encoder.Base64(enc)
		}
	}

	name := def.Name
	var bind func() param.Slot
	switch def.Kind {
	case config.KindLocal:
		bind = func() param.Slot {
			return param.Bind[T](name, localstate.Use(name, value, localstate.WithEncoder(enc)))
		}
	case config.KindQuery:
		mode := queryparam.Replace
		if def.Mode == "push" {
			mode = queryparam.Push
		}
		bind = func() param.Slot {
			return param.Bind[T](name, queryparam.Use(name, value, enc, mode))
		}
	case config.KindMemory:
		bind = func() param.Slot {
			return param.Bind[T](name, reactive.UseSignal(value))
		}
	default:
		return nil, nil, fmt.Errorf("unknown kind %q", def.Kind)
	}
	return bind, reflect.TypeFor[T](), nil
}
