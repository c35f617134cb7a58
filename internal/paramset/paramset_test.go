package paramset

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/history"
	"github.com/vango-dev/paramstate/pkg/param"
	"github.com/vango-dev/paramstate/pkg/param/exprmigrate"
	"github.com/vango-dev/paramstate/pkg/storage"
)

var testDefs = []config.ParamConfig{
	{Name: "name", Kind: config.KindLocal, Encoder: config.EncoderString, Default: json.RawMessage(`"abc"`)},
	{Name: "page", Kind: config.KindQuery, Encoder: config.EncoderNumber, Mode: "push", Default: json.RawMessage(`1`)},
	{Name: "filters", Kind: config.KindQuery, Encoder: config.EncoderSparse, Base64: true, Default: json.RawMessage(`{"open":true,"owner":""}`)},
	{Name: "draft", Kind: config.KindMemory, Encoder: config.EncoderJSON},
}

type harness struct {
	page  *Page
	store *storage.Memory
	hist  *history.Memory
}

func mount(t *testing.T, set *Set, url string) *harness {
	t.Helper()
	h := &harness{store: storage.NewMemory(), hist: history.NewMemory(url)}
	h.page = set.Mount(h.store, h.hist, diag.Discard)
	t.Cleanup(h.page.Close)
	return h
}

func TestRegistryTypesAndDefaults(t *testing.T) {
	set, err := New(testDefs, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h := mount(t, set, "/")
	h.page.Render()

	values := h.page.Values()
	if values["name"] != "abc" || values["page"] != float64(1) || values["draft"] != nil {
		t.Errorf("values = %v", values)
	}

	wantTypes := map[string]reflect.Type{
		"name":    reflect.TypeFor[string](),
		"page":    reflect.TypeFor[float64](),
		"filters": reflect.TypeFor[map[string]any](),
		"draft":   reflect.TypeFor[any](),
	}
	for name, want := range wantTypes {
		slot, ok := h.page.Registry().Slot(name)
		if !ok {
			t.Fatalf("slot %q missing", name)
		}
		if slot.Type() != want {
			t.Errorf("%s type = %s, want %s", name, slot.Type(), want)
		}
	}
	if got := set.Names(); !reflect.DeepEqual(got, []string{"name", "page", "filters", "draft"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestWritesGoToTheDeclaredCollaborator(t *testing.T) {
	set, err := New(testDefs, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := mount(t, set, "/app")
	h.page.Render()

	for _, w := range []struct{ name, raw string }{
		{"name", `"xyz"`},
		{"page", `3`},
		{"filters", `{"open":false,"owner":""}`},
	} {
		v, err := set.Decode(w.name, []byte(w.raw))
		if err != nil {
			t.Fatalf("Decode(%s) error: %v", w.name, err)
		}
		if err := h.page.Set(w.name, v); err != nil {
			t.Fatalf("Set(%s) error: %v", w.name, err)
		}
	}
	if err := h.page.Set("ghost", 1); !errors.Is(err, param.ErrUnknownSlot) {
		t.Errorf("Set(ghost) = %v", err)
	}
	if got := h.page.Values()["name"]; got != "xyz" {
		t.Errorf("values[name] = %v", got)
	}

	if v, _, _ := h.store.GetItem("name"); v != "xyz" {
		t.Errorf("stored name = %q", v)
	}
	q := h.hist.Location().Query()
	if q.Get("page") != "3" {
		t.Errorf("page = %q", q.Get("page"))
	}
	if q.Get("filters") != "eyJvcGVuIjpmYWxzZX0" {
		t.Errorf("filters = %q, want base64url of {\"open\":false}", q.Get("filters"))
	}
	if h.hist.Location().Path != "/app" {
		t.Errorf("path = %s", h.hist.Location().Path)
	}
}

func TestMigrationsRunOnMount(t *testing.T) {
	set, err := New(testDefs, []exprmigrate.Rule{
		{Param: "name", When: "value == 'abc'", Update: "value + 'def'"},
	})
	if err != nil {
		t.Fatal(err)
	}
	h := mount(t, set, "/")
	h.page.Render()

	if v, _, _ := h.store.GetItem("name"); v != "abcdef" {
		t.Errorf("stored name = %q", v)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(testDefs, []exprmigrate.Rule{{Param: "ghost", Update: "1"}}); !errors.Is(err, param.ErrUnknownSlot) {
		t.Errorf("unknown migration target: %v", err)
	}
	dup := append([]config.ParamConfig{}, testDefs[0], testDefs[0])
	if _, err := New(dup, nil); !errors.Is(err, param.ErrDuplicateSlot) {
		t.Errorf("duplicate: %v", err)
	}
	bad := []config.ParamConfig{{Name: "n", Kind: config.KindLocal, Encoder: config.EncoderNumber, Default: json.RawMessage(`"x"`)}}
	if _, err := New(bad, nil); err == nil {
		t.Error("mismatched default accepted")
	}
	if _, err := New(testDefs, []exprmigrate.Rule{{Param: "name", Update: "value +"}}); err == nil {
		t.Error("invalid expression accepted")
	}
}

func TestDecode(t *testing.T) {
	set, err := New(testDefs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := set.Decode("page", []byte(`"three"`)); err == nil {
		t.Error("string accepted for number")
	}
	if _, err := set.Decode("ghost", []byte(`1`)); !errors.Is(err, param.ErrUnknownSlot) {
		t.Errorf("unknown: %v", err)
	}
	if def, ok := set.Def("page"); !ok || def.Mode != "push" {
		t.Errorf("Def(page) = %+v", def)
	}
}
