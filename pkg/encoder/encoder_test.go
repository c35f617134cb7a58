package encoder

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

type filters struct {
	Category string   `json:"cat"`
	Sort     string   `json:"sort"`
	Page     int      `json:"page"`
	Tags     []string `json:"tags"`
}

var defaultFilters = filters{Category: "all", Sort: "asc", Page: 1}

func TestJSONRoundTrip(t *testing.T) {
	enc := JSON[filters]()
	values := []filters{
		defaultFilters,
		{Category: "tech", Sort: "desc", Page: 3, Tags: []string{"go", "web"}},
		{},
	}
	for _, v := range values {
		text, err := enc.Encode(v, defaultFilters)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", v, err)
		}
		got, err := enc.Decode(text, defaultFilters)
		if err != nil {
			t.Fatalf("Decode(%q): %v", text, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("round trip = %+v, want %+v", got, v)
		}
	}
}

func TestJSONEmptyDecodesToZero(t *testing.T) {
	got, err := JSON[map[string]int]().Decode("", map[string]int{"abc": 123})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Decode(\"\") = %v, want nil map", got)
	}
}

func TestJSONMalformedIsError(t *testing.T) {
	_, err := JSON[filters]().Decode("{not json", defaultFilters)
	if err == nil {
		t.Error("expected error for malformed text")
	}
}

func TestSparseEncodesOnlyChangedFields(t *testing.T) {
	enc := Sparse[filters]()

	text, err := enc.Encode(filters{Category: "tech", Sort: "asc", Page: 1}, defaultFilters)
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"cat":"tech"}` {
		t.Errorf("Encode = %s, want {\"cat\":\"tech\"}", text)
	}

	text, _ = enc.Encode(defaultFilters, defaultFilters)
	if text != "{}" {
		t.Errorf("Encode(default) = %s, want {}", text)
	}
}

func TestSparseRoundTrip(t *testing.T) {
	enc := Sparse[filters]()
	values := []filters{
		defaultFilters,
		{Category: "tech", Sort: "asc", Page: 1},
		{Category: "all", Sort: "desc", Page: 9, Tags: []string{"x"}},
	}
	for _, v := range values {
		text, err := enc.Encode(v, defaultFilters)
		if err != nil {
			t.Fatal(err)
		}
		got, err := enc.Decode(text, defaultFilters)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("round trip of %+v via %s = %+v", v, text, got)
		}
	}
}

func TestSparseDecodeEdgeCases(t *testing.T) {
	enc := Sparse[filters]()

	tests := []struct {
		name string
		text string
		want filters
	}{
		{"empty", "", defaultFilters},
		{"empty object", "{}", defaultFilters},
		{"malformed", "{oops", defaultFilters},
		{"not an object", "[1,2]", defaultFilters},
		{"overlay", `{"page":4}`, filters{Category: "all", Sort: "asc", Page: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Decode(tt.text, defaultFilters)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

type cursorFilters struct {
	Page   int    `json:"page"`
	Sort   string `json:"sort"`
	Cursor string `json:"-"`
	secret int
}

func TestSparseKeepsFieldsJSONCannotSee(t *testing.T) {
	enc := Sparse[cursorFilters]()
	def := cursorFilters{Page: 1, Sort: "asc", Cursor: "c0", secret: 7}
	value := def
	value.Page = 3

	text, err := enc.Encode(value, def)
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"page":3}` {
		t.Errorf("Encode = %s", text)
	}
	got, err := enc.Decode(text, def)
	if err != nil {
		t.Fatal(err)
	}
	if got != value {
		t.Errorf("round trip = %+v, want %+v", got, value)
	}
}

func TestSparseDropsMembersThatDoNotFit(t *testing.T) {
	got, err := Sparse[filters]().Decode(`{"page":"x","sort":"desc","unknown":1}`, defaultFilters)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := filters{Category: "all", Sort: "desc", Page: 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode = %+v, want %+v", got, want)
	}
}

func TestSparseDecodeDoesNotMutateDefault(t *testing.T) {
	def := map[string]any{"open": true}
	got, err := Sparse[map[string]any]().Decode(`{"open":false,"owner":"me"}`, def)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(def, map[string]any{"open": true}) {
		t.Errorf("default mutated: %v", def)
	}
	if !reflect.DeepEqual(got, map[string]any{"open": false, "owner": "me"}) {
		t.Errorf("Decode = %v", got)
	}

	ptrDef := &filters{Category: "all", Page: 1}
	ptr, _ := Sparse[*filters]().Decode(`{"page":2}`, ptrDef)
	if ptrDef.Page != 1 || ptr.Page != 2 || ptr.Category != "all" {
		t.Errorf("pointer overlay: def=%+v got=%+v", ptrDef, ptr)
	}
}

func TestSparseKeysMissingFromDefaultAreKept(t *testing.T) {
	enc := Sparse[map[string]any]()
	def := map[string]any{"abc": float64(123)}
	value := map[string]any{"abc": float64(123), "def": float64(234)}

	text, err := enc.Encode(value, def)
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"def":234}` {
		t.Errorf("Encode = %s", text)
	}

	got, _ := enc.Decode(text, def)
	if !reflect.DeepEqual(got, value) {
		t.Errorf("Decode = %v, want %v", got, value)
	}
}

func TestSparseRejectsNonObjects(t *testing.T) {
	_, err := Sparse[int]().Encode(3, 0)
	if !errors.Is(err, ErrNotObject) {
		t.Errorf("err = %v, want ErrNotObject", err)
	}
}

func TestNumber(t *testing.T) {
	enc := Number()
	for _, v := range []float64{0, 4, -7, 3.25, 1e21, math.Inf(1), math.Inf(-1)} {
		text, _ := enc.Encode(v, 0)
		got, _ := enc.Decode(text, 0)
		if got != v {
			t.Errorf("round trip %v via %q = %v", v, text, got)
		}
	}

	tests := []struct {
		text string
		want float64
	}{
		{"9", 9},
		{"  12.5", 12.5},
		{"12abc", 12},
		{"1e3x", 1000},
		{"1e", 1},
		{".5", 0.5},
		{"-0.25", -0.25},
	}
	for _, tt := range tests {
		got, err := enc.Decode(tt.text, 4)
		if err != nil || got != tt.want {
			t.Errorf("Decode(%q) = %v, %v; want %v", tt.text, got, err, tt.want)
		}
	}

	for _, text := range []string{"", "abc", "-", ".", "e5"} {
		got, err := enc.Decode(text, 4)
		if err != nil {
			t.Errorf("Decode(%q) returned error %v", text, err)
		}
		if !math.IsNaN(got) {
			t.Errorf("Decode(%q) = %v, want NaN", text, got)
		}
	}
}

func TestBool(t *testing.T) {
	enc := Bool()
	for _, v := range []bool{true, false} {
		text, _ := enc.Encode(v, false)
		if got, _ := enc.Decode(text, false); got != v {
			t.Errorf("round trip %v = %v", v, got)
		}
	}
	for _, text := range []string{"", "TRUE", "1", "yes"} {
		if got, _ := enc.Decode(text, true); got {
			t.Errorf("Decode(%q) = true, want false", text)
		}
	}
}

func TestString(t *testing.T) {
	enc := String()
	text, _ := enc.Encode("a b&c", "")
	got, _ := enc.Decode(text, "")
	if got != "a b&c" {
		t.Errorf("round trip = %q", got)
	}
}

func TestBase64Wrap(t *testing.T) {
	enc := Base64(JSON[filters]())
	v := filters{Category: "tech", Page: 2}

	text, err := enc.Encode(v, defaultFilters)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "{") {
		t.Errorf("wrapped text not transformed: %s", text)
	}
	got, err := enc.Decode(text, defaultFilters)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %+v", got)
	}

	if _, err := enc.Decode("!!!", defaultFilters); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestWrapLeavesEmptyTextAlone(t *testing.T) {
	calls := 0
	upper := Transform{
		Name:    "upper",
		Forward: func(s string) string { calls++; return strings.ToUpper(s) },
		Reverse: func(s string) (string, error) { calls++; return strings.ToLower(s), nil },
	}
	enc := Wrap(String(), upper)

	if text, _ := enc.Encode("", "x"); text != "" {
		t.Errorf("Encode(\"\") = %q", text)
	}
	if got, _ := enc.Decode("", "x"); got != "" {
		t.Errorf("Decode(\"\") = %q", got)
	}
	if calls != 0 {
		t.Errorf("transform called %d times for empty text", calls)
	}
}

func TestBase64URLSparse(t *testing.T) {
	enc := Base64URL(Sparse[filters]())
	v := filters{Category: "a/b+c?", Sort: "asc", Page: 1}

	text, _ := enc.Encode(v, defaultFilters)
	if strings.ContainsAny(text, "+/=") {
		t.Errorf("URL-safe text contains reserved characters: %s", text)
	}
	got, _ := enc.Decode(text, defaultFilters)
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip = %+v", got)
	}

	if got, _ := enc.Decode("", defaultFilters); !reflect.DeepEqual(got, defaultFilters) {
		t.Errorf("Decode(\"\") = %+v, want default", got)
	}
}

func TestFunc(t *testing.T) {
	enc := Func(
		func(v, _ int) (string, error) { return strconv.Itoa(v), nil },
		func(s string, def int) (int, error) {
			if s == "" {
				return def, nil
			}
			return strconv.Atoi(s)
		},
	)
	text, _ := enc.Encode(42, 0)
	if got, _ := enc.Decode(text, 0); got != 42 {
		t.Errorf("round trip = %d", got)
	}
	if got, _ := enc.Decode("", 7); got != 7 {
		t.Errorf("Decode(\"\") = %d, want 7", got)
	}
}
