package encoder

import (
	"encoding/base64"
	"fmt"
)

// Transform is a reversible text-to-text mapping layered around an encoder.
type Transform struct {
	Name    string
	Forward func(string) string
	Reverse func(string) (string, error)
}

// Wrap layers t around enc. The transform applies only to non-empty text, so
// the empty string keeps meaning "absent" for the wrapped encoder.
func Wrap[T any](enc Encoder[T], t Transform) Encoder[T] {
	return wrapEncoder[T]{inner: enc, t: t}
}

type wrapEncoder[T any] struct {
	inner Encoder[T]
	t     Transform
}

func (w wrapEncoder[T]) Encode(value, def T) (string, error) {
	text, err := w.inner.Encode(value, def)
	if err != nil || text == "" {
		return text, err
	}
	return w.t.Forward(text), nil
}

func (w wrapEncoder[T]) Decode(text string, def T) (T, error) {
	if text == "" {
		return w.inner.Decode(text, def)
	}
	raw, err := w.t.Reverse(text)
	if err != nil {
		return def, fmt.Errorf("encoder: %s decode: %w", w.t.Name, err)
	}
	return w.inner.Decode(raw, def)
}

// StdBase64 is standard padded base64, the alphabet of browsers' btoa.
var StdBase64 = base64Transform("base64", base64.StdEncoding)

// URLBase64 is unpadded base64 with the URL-safe alphabet.
var URLBase64 = base64Transform("base64url", base64.RawURLEncoding)

func base64Transform(name string, enc *base64.Encoding) Transform {
	return Transform{
		Name:    name,
		Forward: func(s string) string { return enc.EncodeToString([]byte(s)) },
		Reverse: func(s string) (string, error) {
			b, err := enc.DecodeString(s)
			return string(b), err
		},
	}
}

// Base64 wraps enc with standard base64.
func Base64[T any](enc Encoder[T]) Encoder[T] {
	return Wrap(enc, StdBase64)
}

// Base64URL wraps enc with unpadded URL-safe base64, which needs no
// percent-escaping inside a query string.
func Base64URL[T any](enc Encoder[T]) Encoder[T] {
	return Wrap(enc, URLBase64)
}
