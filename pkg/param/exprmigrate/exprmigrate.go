// Package exprmigrate builds parameter migrations from expr-lang expressions,
// so migrations can live in configuration instead of code.
//
// Expressions see two variables: value, the slot's value so far, and params,
// the snapshot of every slot taken before the pass. Structured values are
// presented in their JSON form, so fields are addressed by JSON key.
//
//	{"param": "theme", "when": "value == 'blue'", "update": "'ocean'"}
//	{"param": "page",  "update": "value + 1"}
//	{"param": "prefs", "when": "params.version < 2", "update": "{theme: value.color, size: 12}"}
package exprmigrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/vango-dev/paramstate/pkg/param"
)

// ErrEmptyUpdate is returned for a rule without an update expression.
var ErrEmptyUpdate = errors.New("exprmigrate: update expression must not be empty")

// Rule is the declarative form of a migration.
type Rule struct {
	Param  string `json:"param"`
	When   string `json:"when,omitempty"`
	Update string `json:"update"`
}

// Option configures compilation.
type Option func(*compiler)

// WithFunction makes fn callable from expressions as name.
func WithFunction(name string, fn func(args ...any) (any, error)) Option {
	return func(c *compiler) {
		c.functions = append(c.functions, exprlang.Function(name, fn))
	}
}

type compiler struct {
	functions []exprlang.Option
}

func (c *compiler) compile(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	options = append(options, c.functions...)
	return exprlang.Compile(expression, options...)
}

// migration implements param.Migration for a compiled Rule.
type migration struct {
	rule   Rule
	when   *exprvm.Program
	update *exprvm.Program
}

// New compiles r. Syntax errors are reported here, not during the pass.
func New(r Rule, opts ...Option) (param.Migration, error) {
	c := &compiler{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if r.Update == "" {
		return nil, fmt.Errorf("%w (param %q)", ErrEmptyUpdate, r.Param)
	}
	m := &migration{rule: r}

	var err error
	if m.update, err = c.compile(r.Update); err != nil {
		return nil, fmt.Errorf("exprmigrate: param %q update %q: %w", r.Param, r.Update, err)
	}
	if r.When != "" {
		if m.when, err = c.compile(r.When); err != nil {
			return nil, fmt.Errorf("exprmigrate: param %q when %q: %w", r.Param, r.When, err)
		}
	}
	return m, nil
}

// Compile compiles every rule, returning all errors joined.
func Compile(rules []Rule, opts ...Option) ([]param.Migration, error) {
	migrations := make([]param.Migration, 0, len(rules))
	var errs []error
	for _, r := range rules {
		m, err := New(r, opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		migrations = append(migrations, m)
	}
	return migrations, errors.Join(errs...)
}

func (m *migration) Param() string {
	return m.rule.Param
}

func (m *migration) Compile(slot param.Slot) (param.Rule, error) {
	typ := slot.Type()
	switch typ.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return param.Rule{}, fmt.Errorf("%w: %q holds %s, which expressions cannot produce",
			param.ErrTypeMismatch, slot.Name(), typ)
	}

	rule := param.Rule{
		Param: slot.Name(),
		Update: func(value any, snap param.Snapshot) (any, error) {
			out, err := m.run(m.update, value, snap)
			if err != nil {
				return nil, fmt.Errorf("exprmigrate: update %q: %w", m.rule.Update, err)
			}
			converted, err := convert(out, typ)
			if err != nil {
				return nil, fmt.Errorf("exprmigrate: update %q: %w", m.rule.Update, err)
			}
			return converted, nil
		},
	}
	if m.when != nil {
		rule.When = func(value any, snap param.Snapshot) (bool, error) {
			out, err := m.run(m.when, value, snap)
			if err != nil {
				return false, fmt.Errorf("exprmigrate: when %q: %w", m.rule.When, err)
			}
			ok, isBool := out.(bool)
			if !isBool {
				return false, fmt.Errorf("exprmigrate: when %q returned %T, want bool", m.rule.When, out)
			}
			return ok, nil
		}
	}
	return rule, nil
}

func (m *migration) run(program *exprvm.Program, value any, snap param.Snapshot) (any, error) {
	params := make(map[string]any, snap.Len())
	for name, v := range snap.Map() {
		params[name] = normalize(v)
	}
	env := map[string]any{
		"value":  normalize(value),
		"params": params,
	}
	return exprlang.Run(program, env)
}

// normalize presents structs, maps and slices in their JSON form so
// expressions address fields by JSON key. Scalars pass through.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
		data, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return v
		}
		return out
	default:
		return v
	}
}

// convert turns an expression result into a value of typ: directly when
// assignable, by numeric conversion between number kinds, and through JSON
// otherwise.
func convert(out any, typ reflect.Type) (any, error) {
	if out == nil {
		return reflect.Zero(typ).Interface(), nil
	}
	v := reflect.ValueOf(out)
	if v.Type().AssignableTo(typ) {
		nv := reflect.New(typ).Elem()
		nv.Set(v)
		return nv.Interface(), nil
	}
	if isNumber(v.Kind()) && isNumber(typ.Kind()) {
		return v.Convert(typ).Interface(), nil
	}
	if v.Kind() == reflect.String && typ.Kind() == reflect.String {
		return v.Convert(typ).Interface(), nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("result %T: %w", out, err)
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("result %T does not fit %s: %w", out, typ, err)
	}
	return ptr.Elem().Interface(), nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
