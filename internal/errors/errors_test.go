package errors

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E201",
			wantMsg: "Invalid paramstate.json",
			wantCat: CategoryConfig,
		},
		{
			name:    "storage error",
			code:    "E300",
			wantMsg: "Storage backend unavailable",
			wantCat: CategoryStorage,
		},
		{
			name:    "migration error",
			code:    "E401",
			wantMsg: "Migration targets unknown parameter",
			wantCat: CategoryMigration,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "key %q not found", "name")
	if err.Message != `key "name" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != `key "name" not found` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestError_Error(t *testing.T) {
	err := New("E302")
	if got, want := err.Error(), "E302: Storage write failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.Wrap(stderrors.New("disk full"))
	if got, want := err.Error(), "E302: Storage write failed: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_WithLocation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "paramstate.json")
	content := "{\n  \"storage\": {\n    \"backend\": \"sqlite\",\n    path: \"state.db\"\n  }\n}\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E201").WithLocation(file, 4, 5)

	if err.Location.String() != file+":4:5" {
		t.Errorf("Location = %s", err.Location)
	}
	if len(err.Context) == 0 {
		t.Fatal("Context should not be empty")
	}
	if !strings.Contains(strings.Join(err.Context, "\n"), "path:") {
		t.Errorf("Context = %q", err.Context)
	}
}

func TestError_WithOffset(t *testing.T) {
	data := []byte("{\n  \"a\": 1,\n  oops\n}")
	offset := int64(bytes.Index(data, []byte("oops")))

	err := New("E201").WithOffset("cfg.json", data, offset)

	if err.Location == nil || err.Location.Line != 3 || err.Location.Column != 3 {
		t.Errorf("Location = %+v, want line 3 column 3", err.Location)
	}

	untouched := New("E201").WithOffset("cfg.json", data, 1000)
	if untouched.Location != nil {
		t.Error("out of range offset should not set a location")
	}
}

func TestError_Builders(t *testing.T) {
	inner := stderrors.New("boom")
	err := New("E402").
		WithDetail("custom detail").
		WithSuggestion("check the rule").
		WithExample(`{"param": "page", "update": "value + 1"}`).
		Wrap(inner)

	if err.Detail != "custom detail" || err.Suggestion != "check the rule" || err.Example == "" {
		t.Errorf("builders not applied: %+v", err)
	}
	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E300") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	coded := New("E301")
	if FromError(coded, "E300") != coded {
		t.Error("FromError should return an Error as-is")
	}

	plain := stderrors.New("connection refused")
	result := FromError(plain, "E300")
	if result.Code != "E300" || result.Wrapped != plain {
		t.Errorf("result = %+v", result)
	}
}

func TestHasCode(t *testing.T) {
	err := New("E400").Wrap(New("E201"))
	if !HasCode(err, "E400") || !HasCode(err, "E201") {
		t.Error("HasCode should find both codes")
	}
	if HasCode(err, "E300") || HasCode(stderrors.New("x"), "E400") {
		t.Error("HasCode matched an absent code")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E202").
		WithSuggestion("Use sqlite for a file-backed store").
		Wrap(stderrors.New(`backend "redis"`))
	out := err.Format()

	for _, want := range []string{
		"ERROR E202: Unknown storage backend",
		"storage.backend must be one of",
		`Cause: backend "redis"`,
		"Hint: Use sqlite for a file-backed store",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := &Error{Code: "E201", Message: "Invalid paramstate.json", Location: &Location{File: "p.json", Line: 2}}
	if got := err.FormatCompact(); got != "p.json:2: E201: Invalid paramstate.json" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	out := New("E501").WithSuggestion("register it").FormatJSON()
	for _, want := range []string{`"code":"E501"`, `"category":"server"`, `"suggestion":"register it"`} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatJSON() = %s, missing %s", out, want)
		}
	}
}

func TestFprintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	FprintError(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("plain = %q", buf.String())
	}

	buf.Reset()
	FprintError(&buf, New("E600"))
	if !strings.Contains(buf.String(), "ERROR E600: Invalid arguments") {
		t.Errorf("coded = %q", buf.String())
	}
}

func TestRegistryConsistency(t *testing.T) {
	for _, code := range Codes() {
		tmpl, _ := Lookup(code)
		if tmpl.Message == "" || tmpl.Detail == "" {
			t.Errorf("%s: empty message or detail", code)
		}
		if got := CategoryOf(code); got != tmpl.Category {
			t.Errorf("%s: registered as %s but its range is %s", code, tmpl.Category, got)
		}
	}
	if len(CodesIn(CategoryStorage)) != 4 {
		t.Errorf("storage codes = %v", CodesIn(CategoryStorage))
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
