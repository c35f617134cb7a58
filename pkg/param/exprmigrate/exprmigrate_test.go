package exprmigrate

import (
	"errors"
	"strings"
	"testing"

	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/param"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

type prefs struct {
	Theme string `json:"theme"`
	Size  int    `json:"size"`
}

func run(t *testing.T, reg *param.Registry, rules ...Rule) param.Report {
	t.Helper()
	migrations, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	plan, err := reg.Plan(migrations...)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	return param.Run(reg, plan, diag.Discard)
}

func TestStringMigration(t *testing.T) {
	name := reactive.NewSignal("abc")
	reg := param.MustRegistry(param.Bind[string]("storeLocal", name))

	report := run(t, reg, Rule{Param: "storeLocal", When: "true", Update: "value + 'def'"})

	if name.Peek() != "abcdef" {
		t.Errorf("value = %q, want abcdef", name.Peek())
	}
	if report.Count() != 1 {
		t.Errorf("count = %d", report.Count())
	}
}

func TestConditionSeesValueSoFar(t *testing.T) {
	page := reactive.NewSignal(1)
	reg := param.MustRegistry(param.Bind[int]("page", page))

	run(t, reg,
		Rule{Param: "page", Update: "value + 1"},
		Rule{Param: "page", When: "value == 2", Update: "value * 10"},
		Rule{Param: "page", When: "value == 1", Update: "0"},
	)

	if page.Peek() != 20 {
		t.Errorf("page = %d, want 20", page.Peek())
	}
}

func TestNumberConversion(t *testing.T) {
	zoom := reactive.NewSignal(1.5)
	reg := param.MustRegistry(param.Bind[float64]("zoom", zoom))

	run(t, reg, Rule{Param: "zoom", Update: "2"})

	if zoom.Peek() != 2 {
		t.Errorf("zoom = %v, want 2", zoom.Peek())
	}
}

func TestStructuredValues(t *testing.T) {
	p := reactive.NewSignal(prefs{Theme: "blue", Size: 10})
	version := reactive.NewSignal(1)
	reg := param.MustRegistry(
		param.Bind[prefs]("prefs", p),
		param.Bind[int]("version", version),
	)

	run(t, reg, Rule{
		Param:  "prefs",
		When:   "params.version < 2 && value.theme == 'blue'",
		Update: "{theme: 'ocean', size: value.size + 2}",
	})

	if got := p.Peek(); got != (prefs{Theme: "ocean", Size: 12}) {
		t.Errorf("prefs = %+v", got)
	}
}

func TestNonBoolConditionIsAnError(t *testing.T) {
	v := reactive.NewSignal("x")
	reg := param.MustRegistry(param.Bind[string]("v", v))
	migrations, _ := Compile([]Rule{{Param: "v", When: "'yes'", Update: "'y'"}})
	plan, _ := reg.Plan(migrations...)

	report := param.Run(reg, plan, diag.Discard)

	if report.Errors != 1 || v.Peek() != "x" {
		t.Errorf("errors = %d, value = %q", report.Errors, v.Peek())
	}
}

func TestIncompatibleResultIsAnError(t *testing.T) {
	n := reactive.NewSignal(3)
	reg := param.MustRegistry(param.Bind[int]("n", n))
	migrations, _ := Compile([]Rule{{Param: "n", Update: "'three'"}})
	plan, _ := reg.Plan(migrations...)

	report := param.Run(reg, plan, diag.Discard)

	if report.Errors != 1 || n.Peek() != 3 {
		t.Errorf("errors = %d, value = %d", report.Errors, n.Peek())
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile([]Rule{
		{Param: "a"},
		{Param: "b", Update: "value +"},
		{Param: "c", When: "((", Update: "1"},
	})
	if !errors.Is(err, ErrEmptyUpdate) {
		t.Errorf("missing update not reported: %v", err)
	}
	for _, want := range []string{`param "b" update`, `param "c" when`} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("error %v does not mention %s", err, want)
		}
	}
}

func TestWithFunction(t *testing.T) {
	name := reactive.NewSignal("  padded ")
	reg := param.MustRegistry(param.Bind[string]("name", name))
	m, err := New(Rule{Param: "name", Update: "clean(value)"}, WithFunction("clean", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.TrimSpace(s), nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	plan, err := reg.Plan(m)
	if err != nil {
		t.Fatal(err)
	}

	param.Run(reg, plan, diag.Discard)

	if name.Peek() != "padded" {
		t.Errorf("name = %q", name.Peek())
	}
}

func TestUnknownParam(t *testing.T) {
	reg := param.MustRegistry()
	migrations, _ := Compile([]Rule{{Param: "ghost", Update: "1"}})
	if _, err := reg.Plan(migrations...); !errors.Is(err, param.ErrUnknownSlot) {
		t.Errorf("err = %v", err)
	}
}
