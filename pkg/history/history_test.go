package history

import (
	"fmt"
	"testing"

	"github.com/vango-dev/paramstate/pkg/reactive"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want Location
	}{
		{"/home?q=9", Location{Path: "/home", Search: "q=9"}},
		{"/home", Location{Path: "/home"}},
		{"?a=1", Location{Path: "/", Search: "a=1"}},
		{"", Location{Path: "/"}},
	}
	for _, tt := range tests {
		if got := ParseLocation(tt.raw); got != tt.want {
			t.Errorf("ParseLocation(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}

	if s := (Location{Path: "/p", Search: "a=1"}).String(); s != "/p?a=1" {
		t.Errorf("String() = %q", s)
	}
	if q := ParseLocation("/p?a=1&a=2&b=x").Query(); q.Get("a") != "1" || q.Get("b") != "x" {
		t.Errorf("Query() = %v", q)
	}
}

func TestMemoryPushReplace(t *testing.T) {
	h := NewMemory("/home?a=1")

	var events []string
	stop := h.Listen(func(loc Location, action Action) {
		events = append(events, fmt.Sprintf("%s %s", action, loc))
	})

	h.Push("a=2")
	h.Replace("a=3")

	if got := h.Location(); got.String() != "/home?a=3" {
		t.Errorf("Location() = %s", got)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}

	want := []string{"push /home?a=2", "replace /home?a=3"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}

	stop()
	stop()
	h.Push("a=4")
	if len(events) != 2 {
		t.Errorf("listener called after stop")
	}
}

func TestMemoryBackForward(t *testing.T) {
	h := NewMemory("/p")
	h.Push("a=1")
	h.Push("a=2")

	var pops []string
	h.Listen(func(loc Location, action Action) {
		if action == ActionPop {
			pops = append(pops, loc.Search)
		}
	})

	if !h.Back() || h.Location().Search != "a=1" {
		t.Fatalf("Back() -> %s", h.Location())
	}
	if !h.Back() || h.Location().Search != "" {
		t.Fatalf("Back() -> %s", h.Location())
	}
	if h.Back() {
		t.Error("Back() past the first entry should fail")
	}
	if !h.Forward() || h.Location().Search != "a=1" {
		t.Fatalf("Forward() -> %s", h.Location())
	}

	// Pushing from the middle drops the forward entries.
	h.Push("b=1")
	if h.Forward() {
		t.Error("forward entries should be discarded by Push")
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}

	if fmt.Sprint(pops) != fmt.Sprint([]string{"a=1", "", "a=1"}) {
		t.Errorf("pops = %q", pops)
	}
}

func TestMemoryNavigate(t *testing.T) {
	h := NewMemory("/")
	h.Navigate("/home?storeQPush=9")
	if got := h.Location(); got.Path != "/home" || got.Search != "storeQPush=9" {
		t.Errorf("Location() = %+v", got)
	}
}

func TestUseLocationRerendersOnChange(t *testing.T) {
	h := NewMemory("/home?q=1")
	renders := 0

	root := reactive.NewRoot(func() string {
		renders++
		return UseLocation().Search
	})
	Context.ProvideTo(root.Owner(), h)

	if out := root.Render(); out != "q=1" {
		t.Fatalf("render = %q", out)
	}

	h.Replace("q=2")
	if out := root.Flush(); out != "q=2" {
		t.Errorf("after replace = %q", out)
	}

	h.Push("q=3")
	h.Back()
	if out := root.Flush(); out != "q=2" {
		t.Errorf("after back = %q", out)
	}

	before := renders
	root.Flush()
	if renders != before {
		t.Error("flush without changes re-rendered")
	}

	root.Dispose()
	h.Replace("q=9")
	if root.Output() != "q=2" {
		t.Error("disposed root should not re-render")
	}
}

func TestUseWithoutHistory(t *testing.T) {
	root := reactive.NewRoot(func() string {
		loc := UseLocation()
		return loc.Path + "|" + loc.Search
	})
	if out := root.Render(); out != "|" {
		t.Errorf("render = %q", out)
	}
}
