// Package encoder converts typed values to and from the text stored in query
// strings and key/value stores.
//
// Every encoder receives the binding's default value on both sides so that
// sparse encodings can omit whatever already matches it:
//
//	enc := encoder.Base64(encoder.Sparse[Filters]())
//	text, _ := enc.Encode(current, defaults)  // only the changed fields
//	value, _ := enc.Decode(text, defaults)    // defaults overlaid with them
//
// Decoding the empty string yields the default value, except for JSON which
// yields the zero value of T.
package encoder

// Encoder converts values of type T to text and back.
type Encoder[T any] interface {
	Encode(value, def T) (string, error)
	Decode(text string, def T) (T, error)
}

// Func adapts a pair of functions to an Encoder.
func Func[T any](encode func(value, def T) (string, error), decode func(text string, def T) (T, error)) Encoder[T] {
	return funcEncoder[T]{encode: encode, decode: decode}
}

type funcEncoder[T any] struct {
	encode func(T, T) (string, error)
	decode func(string, T) (T, error)
}

func (e funcEncoder[T]) Encode(value, def T) (string, error) {
	return e.encode(value, def)
}

func (e funcEncoder[T]) Decode(text string, def T) (T, error) {
	return e.decode(text, def)
}
