package group

import (
	"reflect"
	"strings"
	"testing"
)

type row struct {
	kind  string
	value int
}

func TestByKeepsFirstSeenOrder(t *testing.T) {
	rows := []row{
		{"b", 1}, {"a", 2}, {"b", 3}, {"c", 4}, {"a", 5},
	}

	g := By(rows, func(r row) string { return r.kind })

	if got, want := g.Keys(), []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	b, ok := g.Get("b")
	if !ok {
		t.Fatal("expected group b")
	}
	if !reflect.DeepEqual(b, []row{{"b", 1}, {"b", 3}}) {
		t.Errorf("Get(b) = %v", b)
	}
	if g.Len() != 3 {
		t.Errorf("Len() = %d, want 3", g.Len())
	}
}

func TestByMapped(t *testing.T) {
	rows := []row{{"x", 1}, {"y", 2}, {"x", 3}}

	g := ByMapped(rows,
		func(r row) string { return strings.ToUpper(r.kind) },
		func(r row) int { return r.value * 10 },
	)

	x, _ := g.Get("X")
	if !reflect.DeepEqual(x, []int{10, 30}) {
		t.Errorf("Get(X) = %v, want [10 30]", x)
	}
	if _, ok := g.Get("x"); ok {
		t.Error("keys are the derived values, not the raw ones")
	}
}

func TestEmptyInput(t *testing.T) {
	g := By([]row(nil), func(r row) string { return r.kind })
	if g.Len() != 0 || g.Count() != 0 || len(g.Keys()) != 0 {
		t.Errorf("expected empty groups, got %d keys", g.Len())
	}
	for range g.All() {
		t.Error("All() yielded on empty groups")
	}
}

func TestCountMatchesInputAndOrder(t *testing.T) {
	inputs := [][]int{
		{},
		{1},
		{5, 3, 5, 1, 3, 5},
		{2, 4, 6, 8, 1, 3, 5, 7, 9, 0},
	}

	for _, in := range inputs {
		g := By(in, func(n int) bool { return n%2 == 0 })
		if g.Count() != len(in) {
			t.Errorf("Count() = %d, want %d", g.Count(), len(in))
		}

		// Each group must be a subsequence of the input.
		for _, values := range g.All() {
			pos := 0
			for _, v := range values {
				for pos < len(in) && in[pos] != v {
					pos++
				}
				if pos == len(in) {
					t.Errorf("group %v is not in input order for %v", values, in)
					break
				}
				pos++
			}
		}
	}
}

func TestAllStopsEarly(t *testing.T) {
	g := By([]string{"a", "b", "c"}, func(s string) string { return s })
	n := 0
	for range g.All() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d groups, want 2", n)
	}
}
