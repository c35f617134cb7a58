package param

import (
	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

// Applied records the migrations that fired for one slot.
type Applied struct {
	Param string
	Count int
	From  any
	To    any
}

// Report is the outcome of one migration pass.
type Report struct {
	Applied []Applied
	Errors  int
}

// Count returns the total number of rules that fired.
func (r Report) Count() int {
	n := 0
	for _, a := range r.Applied {
		n += a.Count
	}
	return n
}

// Run performs one migration pass over reg.
//
// Every slot is read into a snapshot before any slot is written, so rules
// only ever see pre-migration values of other slots. For each migrated slot
// the matching rules are folded over its value in declaration order and the
// result is written through the slot once. A rule that fails is skipped and
// reported to sink as a binding error.
func Run(reg *Registry, plan Plan, sink diag.Sink) Report {
	var report Report
	if plan.Len() == 0 {
		return report
	}
	if sink == nil {
		sink = diag.Discard
	}

	snap := reg.Snapshot()

	reactive.Batch(func() {
		for name, rules := range plan.groups.All() {
			slot, ok := reg.Slot(name)
			if !ok {
				continue
			}
			from := snap.values[name]
			value, count := from, 0

			for _, rule := range rules {
				if rule.When != nil {
					ok, err := rule.When(value, snap)
					if err != nil {
						sink.BindingError("migration", name, err)
						report.Errors++
						continue
					}
					if !ok {
						continue
					}
				}
				next, err := rule.Update(value, snap)
				if err != nil {
					sink.BindingError("migration", name, err)
					report.Errors++
					continue
				}
				value = next
				count++
			}

			if count == 0 {
				continue
			}
			if err := slot.Set(value); err != nil {
				sink.BindingError("migration", name, err)
				report.Errors++
				continue
			}
			sink.MigrationApplied(name, count, from, value)
			report.Applied = append(report.Applied, Applied{Param: name, Count: count, From: from, To: value})
		}
	})

	return report
}
