package param

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vango-dev/paramstate/pkg/group"
)

// Migration updates one slot when a registry is first provided. Migrations
// are compiled against the registry with Registry.Plan, which resolves the
// target slot and checks its type.
type Migration interface {
	// Param returns the name of the target slot.
	Param() string

	// Compile returns the type-erased rule for slot.
	Compile(slot Slot) (Rule, error)
}

// Rule is a compiled migration. When may be nil, in which case the rule
// always applies.
type Rule struct {
	Param  string
	When   func(value any, snap Snapshot) (bool, error)
	Update func(value any, snap Snapshot) (any, error)
}

type typedMigration[T any] struct {
	name   string
	when   func(T, Snapshot) bool
	update func(T, Snapshot) T
}

// Migrate returns a migration that always applies update to the slot name.
func Migrate[T any](name string, update func(value T, snap Snapshot) T) Migration {
	return typedMigration[T]{name: name, update: update}
}

// MigrateWhen returns a migration that applies update to the slot name when
// when reports true for the value so far.
func MigrateWhen[T any](name string, when func(value T, snap Snapshot) bool, update func(value T, snap Snapshot) T) Migration {
	return typedMigration[T]{name: name, when: when, update: update}
}

func (m typedMigration[T]) Param() string {
	return m.name
}

func (m typedMigration[T]) Compile(slot Slot) (Rule, error) {
	if want := reflect.TypeFor[T](); slot.Type() != want {
		return Rule{}, fmt.Errorf("%w: migration for %q works on %s, slot holds %s",
			ErrTypeMismatch, m.name, want, slot.Type())
	}
	rule := Rule{
		Param: m.name,
		Update: func(value any, snap Snapshot) (any, error) {
			v, _ := valueAs[T](value)
			return m.update(v, snap), nil
		},
	}
	if m.when != nil {
		rule.When = func(value any, snap Snapshot) (bool, error) {
			v, _ := valueAs[T](value)
			return m.when(v, snap), nil
		}
	}
	return rule, nil
}

// Factory builds migrations for slots holding T, so a set of migrations
// for one type reads without repeating the type parameter.
//
//	var text param.Factory[string]
//	migrations := []param.Migration{
//	    text.When("name", isLegacy, upgrade),
//	    text.Always("title", strings.TrimSpace),
//	}
type Factory[T any] struct{}

// When is MigrateWhen for T.
func (Factory[T]) When(name string, when func(T, Snapshot) bool, update func(T, Snapshot) T) Migration {
	return MigrateWhen(name, when, update)
}

// Always is Migrate for T with an update that ignores the snapshot.
func (Factory[T]) Always(name string, update func(T) T) Migration {
	return Migrate(name, func(v T, _ Snapshot) T { return update(v) })
}

// Plan is a compiled set of migrations grouped by target slot. Slots are
// visited in the order their first migration was declared; rules for one
// slot keep declaration order.
type Plan struct {
	groups *group.Groups[string, Rule]
}

// Plan compiles migrations against the registry. Every target must be a
// registered slot of the migration's type.
func (r *Registry) Plan(migrations ...Migration) (Plan, error) {
	rules := make([]Rule, 0, len(migrations))
	var errs []error
	for _, m := range migrations {
		slot, ok := r.Slot(m.Param())
		if !ok {
			errs = append(errs, fmt.Errorf("%w: migration targets %q", ErrUnknownSlot, m.Param()))
			continue
		}
		rule, err := m.Compile(slot)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rule.Param = slot.Name()
		rules = append(rules, rule)
	}
	if len(errs) > 0 {
		return Plan{}, errors.Join(errs...)
	}
	return Plan{groups: group.By(rules, func(r Rule) string { return r.Param })}, nil
}

// Len returns the number of rules in the plan.
func (p Plan) Len() int {
	if p.groups == nil {
		return 0
	}
	return p.groups.Count()
}

// Params returns the slots the plan migrates.
func (p Plan) Params() []string {
	if p.groups == nil {
		return nil
	}
	return p.groups.Keys()
}
