package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type style string

const (
	styleReset style = "\033[0m"
	styleBold  style = "\033[1m"
	styleRed   style = "\033[31m"
	styleAmber style = "\033[33m"
	styleCyan  style = "\033[36m"
	styleDim   style = "\033[90m"
)

var colorEnabled = true

// DisableColors turns off ANSI styling, e.g. when stderr is not a terminal.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI styling back on.
func EnableColors() { colorEnabled = true }

func paint(text string, styles ...style) string {
	if !colorEnabled || len(styles) == 0 {
		return text
	}
	var b strings.Builder
	for _, s := range styles {
		b.WriteString(string(s))
	}
	b.WriteString(text)
	b.WriteString(string(styleReset))
	return b.String()
}

// report accumulates the indented sections of a formatted error.
type report struct {
	strings.Builder
}

func (r *report) section(label string, lines ...string) {
	if len(lines) == 0 {
		return
	}
	if label != "" {
		r.WriteString("  " + label)
		if len(lines) == 1 {
			r.WriteString(lines[0] + "\n\n")
			return
		}
		r.WriteString("\n")
		for _, l := range lines {
			r.WriteString("    " + l + "\n")
		}
		r.WriteString("\n")
		return
	}
	for _, l := range lines {
		r.WriteString("  " + l + "\n")
	}
	r.WriteString("\n")
}

// Format renders the error for a terminal: headline, file excerpt, detail,
// cause, hint and example, each present only when set.
func (e *Error) Format() string {
	var r report

	head := "ERROR: "
	if e.Code != "" {
		head = "ERROR " + e.Code + ": "
	}
	r.WriteString("\n" + paint(head, styleBold, styleRed) + paint(e.Message, styleBold) + "\n\n")

	if e.Location != nil {
		r.section("", paint(e.Location.String(), styleCyan))
		e.excerpt(&r)
	}
	r.section("", wrapText(e.Detail, 70)...)
	if e.Wrapped != nil {
		r.section(paint("Cause: ", styleDim), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		r.section(paint("Hint: ", styleAmber), e.Suggestion)
	}
	if e.Example != "" {
		r.section(paint("Example:", styleCyan), strings.Split(e.Example, "\n")...)
	}
	return r.String()
}

// excerpt prints the context lines with the failing line marked and a caret
// under the column.
func (e *Error) excerpt(r *report) {
	if len(e.Context) == 0 {
		return
	}
	first := max(e.Location.Line-contextRadius, 1)
	gutter := paint(" | ", styleDim)
	for i, text := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(r, "    %4d%s%s\n", n, gutter, text)
			continue
		}
		fmt.Fprintf(r, "  %s%4d%s%s\n", paint("> ", styleRed), n, gutter, text)
		if e.Location.Column > 0 {
			fmt.Fprintf(r, "        %s%s%s\n", paint("| ", styleDim), strings.Repeat(" ", e.Location.Column-1), paint("^", styleRed))
		}
	}
	r.WriteString("\n")
}

// FormatCompact renders the error on a single line, prefixed by its
// location when known.
func (e *Error) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

// FormatJSON renders the error as the JSON object the server responds with.
func (e *Error) FormatJSON() string {
	body := struct {
		Code       string    `json:"code,omitempty"`
		Category   Category  `json:"category"`
		Message    string    `json:"message"`
		Detail     string    `json:"detail,omitempty"`
		Location   *Location `json:"location,omitempty"`
		Suggestion string    `json:"suggestion,omitempty"`
		Cause      string    `json:"cause,omitempty"`
	}{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		body.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking between
// words. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	lines := []string{words[0]}
	for _, w := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(w) > width {
			lines = append(lines, w)
			continue
		}
		*last += " " + w
	}
	return lines
}

// FprintError writes err to w, using Format when err is an *Error.
func FprintError(w io.Writer, err error) {
	var e *Error
	if stderrors.As(err, &e) {
		io.WriteString(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s%s\n\n", paint("ERROR: ", styleBold, styleRed), err.Error())
}

// PrintError writes err to stderr.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}
