package encoder

import (
	"math"
	"strconv"
	"strings"
)

// String returns the identity encoder.
func String() Encoder[string] {
	return stringEncoder{}
}

type stringEncoder struct{}

func (stringEncoder) Encode(value, _ string) (string, error) { return value, nil }
func (stringEncoder) Decode(text, _ string) (string, error)  { return text, nil }

// Number returns the floating-point encoder. Decoding reads the longest
// numeric prefix of the text, as browsers' parseFloat does; text without one
// decodes to NaN, not an error. Callers must guard against NaN.
func Number() Encoder[float64] {
	return numberEncoder{}
}

type numberEncoder struct{}

func (numberEncoder) Encode(value, _ float64) (string, error) {
	switch {
	case math.IsInf(value, 1):
		return "Infinity", nil
	case math.IsInf(value, -1):
		return "-Infinity", nil
	}
	return strconv.FormatFloat(value, 'f', -1, 64), nil
}

func (numberEncoder) Decode(text string, _ float64) (float64, error) {
	return parseFloatPrefix(text), nil
}

// parseFloatPrefix parses the longest prefix of s that forms a decimal
// number, after leading whitespace.
func parseFloatPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\f\v")

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			end = j
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !isRangeError(err) {
		return math.NaN()
	}
	return f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isRangeError(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// Bool returns the boolean encoder: "true" decodes to true, anything else to
// false.
func Bool() Encoder[bool] {
	return boolEncoder{}
}

type boolEncoder struct{}

func (boolEncoder) Encode(value, _ bool) (string, error) {
	if value {
		return "true", nil
	}
	return "false", nil
}

func (boolEncoder) Decode(text string, _ bool) (bool, error) {
	return text == "true", nil
}
