package param

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/encoder"
	"github.com/vango-dev/paramstate/pkg/history"
	"github.com/vango-dev/paramstate/pkg/localstate"
	"github.com/vango-dev/paramstate/pkg/queryparam"
	"github.com/vango-dev/paramstate/pkg/reactive"
	"github.com/vango-dev/paramstate/pkg/storage"
)

// testPage mounts a provider over four kinds of bindings and one component
// per binding that renders it as JSON.
type testPage struct {
	store   *storage.Memory
	history *history.Memory
	sink    *recorder
	root    *reactive.Root

	migrations []Migration
	trigger    *reactive.Signal[int]
	loaderRuns int

	// setters captured from the last render of each consumer
	setNone    func(string)
	setQPush   func(float64)
	setQRepl   func(map[string]int)
	setLocal   func(string)
	localSeen  []string
	renderTick *reactive.Signal[int]
}

func newTestPage(url string, migrations ...Migration) *testPage {
	p := &testPage{
		store:      storage.NewMemory(),
		history:    history.NewMemory(url),
		sink:       &recorder{},
		migrations: migrations,
		trigger:    reactive.NewSignal(0),
		renderTick: reactive.NewSignal(0),
	}
	p.root = reactive.NewRoot(p.render)
	storage.Context.ProvideTo(p.root.Owner(), p.store)
	history.Context.ProvideTo(p.root.Owner(), p.history)
	diag.Context.ProvideTo(p.root.Owner(), p.sink)
	return p
}

func (p *testPage) render() string {
	_ = p.renderTick.Get()

	reg := MustRegistry(
		Bind[string]("storeNone", reactive.UseSignal("")),
		Bind[float64]("storeQPush", queryparam.Use("storeQPush", 4.0, encoder.Number(), queryparam.Push)),
		Bind[map[string]int]("storeQReplace", queryparam.Use("storeQReplace", map[string]int{"abc": 123}, encoder.JSON[map[string]int]())),
		Bind[string]("storeLocal", localstate.Use("storeLocal", "abc")),
	)

	return Provider(Props{
		Registry:   reg,
		Migrations: p.migrations,
		Trigger:    p.trigger.Get(),
		Loader: func() string {
			p.loaderRuns++
			return "Loading parameter state..."
		},
	}, p.children)
}

func (p *testPage) children() string {
	return strings.Join([]string{
		reactive.Mount(func() string { return show(p, "storeNone", &p.setNone) }),
		reactive.Mount(func() string { return show(p, "storeQPush", &p.setQPush) }),
		reactive.Mount(func() string { return show(p, "storeQReplace", &p.setQRepl) }),
		reactive.Mount(func() string {
			out := show(p, "storeLocal", &p.setLocal)
			p.localSeen = append(p.localSeen, out)
			return out
		}),
	}, " ")
}

func show[T any](p *testPage, name string, set *func(T)) string {
	b := Use[T](name)
	*set = b.Set
	out, _ := json.Marshal(b.Get())
	return name + "=" + string(out)
}

func (p *testPage) label(name string) string {
	for _, field := range strings.Fields(p.root.Output()) {
		if v, ok := strings.CutPrefix(field, name+"="); ok {
			return v
		}
	}
	return ""
}

func TestProviderSetAndGetAllKinds(t *testing.T) {
	p := newTestPage("/")
	p.root.Render()

	if p.loaderRuns != 0 {
		t.Error("loader rendered although there are no migrations")
	}

	tests := []struct {
		name    string
		initial string
		set     func()
		want    string
	}{
		{"storeNone", `""`, func() { p.setNone("something") }, `"something"`},
		{"storeQPush", `4`, func() { p.setQPush(7) }, `7`},
		{"storeQReplace", `{"abc":123}`, func() { p.setQRepl(map[string]int{"def": 234}) }, `{"def":234}`},
		{"storeLocal", `"abc"`, func() { p.setLocal("def") }, `"def"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.label(tt.name); got != tt.initial {
				t.Errorf("initial = %s, want %s", got, tt.initial)
			}
			p.root.Act(tt.set)
			if got := p.label(tt.name); got != tt.want {
				t.Errorf("after set = %s, want %s", got, tt.want)
			}
		})
	}

	if got := p.history.Location().String(); got != "/?storeQPush=7&storeQReplace=%7B%22def%22%3A234%7D" {
		t.Errorf("location = %s", got)
	}
	if v, _, _ := p.store.GetItem("storeLocal"); v != `"def"` {
		t.Errorf("stored = %s", v)
	}
}

func TestProviderReadsQueryParam(t *testing.T) {
	p := newTestPage("/home?storeQPush=9")
	p.root.Render()

	if got := p.label("storeQPush"); got != "9" {
		t.Errorf("storeQPush = %s, want 9", got)
	}

	p.root.Act(func() { p.setQPush(4) })
	if got := p.history.Location().String(); got != "/home" {
		t.Errorf("location = %s, want /home", got)
	}
}

func TestProviderReadsStoredValue(t *testing.T) {
	p := newTestPage("/")
	_ = p.store.SetItem("storeLocal", `"efg"`)
	p.root.Render()

	if got := p.label("storeLocal"); got != `"efg"` {
		t.Errorf("storeLocal = %s", got)
	}
}

func TestProviderRunsMigrations(t *testing.T) {
	var text Factory[string]
	p := newTestPage("/", text.When("storeLocal",
		func(string, Snapshot) bool { return true },
		func(v string, _ Snapshot) string { return v + "def" }))

	p.root.Render()

	if got := p.label("storeLocal"); got != `"abcdef"` {
		t.Errorf("storeLocal = %s, want \"abcdef\"", got)
	}
	if v, _, _ := p.store.GetItem("storeLocal"); v != `"abcdef"` {
		t.Errorf("stored = %s", v)
	}
	if p.loaderRuns != 1 {
		t.Errorf("loader rendered %d times, want 1", p.loaderRuns)
	}
	for _, seen := range p.localSeen {
		if seen == `storeLocal="abc"` {
			t.Error("children observed the pre-migration value")
		}
	}
	if len(p.sink.migrations) != 1 || p.sink.migrations[0].count != 1 {
		t.Errorf("diagnostics = %v", p.sink.migrations)
	}
}

func TestProviderMigratesOncePerTrigger(t *testing.T) {
	p := newTestPage("/", Migrate("storeLocal", func(v string, _ Snapshot) string { return v + "!" }))
	p.root.Render()

	p.renderTick.Set(1)
	p.root.Flush()
	p.renderTick.Set(2)
	p.root.Flush()

	if got := p.label("storeLocal"); got != `"abc!"` {
		t.Errorf("after re-renders = %s, want \"abc!\"", got)
	}
	if len(p.sink.migrations) != 1 {
		t.Errorf("migrations ran %d times without a trigger change", len(p.sink.migrations))
	}

	p.trigger.Set(1)
	p.root.Flush()

	if got := p.label("storeLocal"); got != `"abc!!"` {
		t.Errorf("after trigger = %s, want \"abc!!\"", got)
	}
	if len(p.sink.migrations) != 2 {
		t.Errorf("migrations ran %d times, want 2", len(p.sink.migrations))
	}
}

func TestProviderSharesRegistry(t *testing.T) {
	var seen *Registry
	count := reactive.NewSignal(0)
	reg := MustRegistry(Bind[int]("count", count))

	root := reactive.NewRoot(func() string {
		return Provider(Props{Registry: reg}, func() string {
			seen = Context.Use()
			return ""
		})
	})
	diag.Context.ProvideTo(root.Owner(), diag.Discard)
	root.Render()

	if seen != reg {
		t.Error("children did not receive the registry")
	}
}

func TestProviderCountEndToEnd(t *testing.T) {
	count := reactive.NewSignal(0)
	var b Binding[int]
	root := reactive.NewRoot(func() string {
		return Provider(Props{Registry: MustRegistry(Bind[int]("count", count))}, func() string {
			b = Use[int]("count")
			return "count=" + strconv.Itoa(b.Get())
		})
	})
	diag.Context.ProvideTo(root.Owner(), diag.Discard)

	if out := root.Render(); out != "count=0" {
		t.Fatalf("render = %q", out)
	}
	if out := root.Act(func() { b.Set(5) }); out != "count=5" {
		t.Errorf("after set = %q", out)
	}
}

func TestProviderPanicsOnInvalidMigrations(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	root := reactive.NewRoot(func() string {
		return Provider(Props{
			Registry:   MustRegistry(),
			Migrations: []Migration{Migrate("ghost", func(v int, _ Snapshot) int { return v })},
		}, func() string { return "" })
	})
	root.Render()
}
