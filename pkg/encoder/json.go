package encoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotObject is returned by Sparse when a value does not serialize to a
// JSON object.
var ErrNotObject = errors.New("encoder: value is not a JSON object")

// JSON returns the full-value encoder: the whole value is serialized, and
// empty text decodes to the zero value of T. Malformed text is an error.
func JSON[T any]() Encoder[T] {
	return jsonEncoder[T]{}
}

type jsonEncoder[T any] struct{}

func (jsonEncoder[T]) Encode(value, _ T) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoder: json encode: %w", err)
	}
	return string(data), nil
}

func (jsonEncoder[T]) Decode(text string, _ T) (T, error) {
	var out T
	if text == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, fmt.Errorf("encoder: json decode: %w", err)
	}
	return out, nil
}

// Sparse returns the sparse-diff encoder for values that serialize to JSON
// objects (structs and string-keyed maps). Encode emits only the top-level
// keys whose values differ from the default's; keys the default does not
// have are always emitted. Decode overlays the emitted keys onto a shallow
// copy of the default. Malformed text decodes as an empty overlay, and a
// member that does not fit its field is dropped from the overlay.
func Sparse[T any]() Encoder[T] {
	return sparseEncoder[T]{}
}

type sparseEncoder[T any] struct{}

func (sparseEncoder[T]) Encode(value, def T) (string, error) {
	fields, err := objectFields(value)
	if err != nil {
		return "", err
	}
	defFields, err := objectFields(def)
	if err != nil {
		return "", err
	}

	diff := make(map[string]json.RawMessage, len(fields))
	for k, raw := range fields {
		if defRaw, ok := defFields[k]; ok && sameJSON(raw, defRaw) {
			continue
		}
		diff[k] = raw
	}

	data, err := json.Marshal(diff)
	if err != nil {
		return "", fmt.Errorf("encoder: sparse encode: %w", err)
	}
	return string(data), nil
}

func (sparseEncoder[T]) Decode(text string, def T) (T, error) {
	if text == "" {
		return def, nil
	}

	var overlay map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &overlay); err != nil || len(overlay) == 0 {
		return def, nil
	}

	out := def
	target := reflect.ValueOf(&out).Elem()
	if target.Kind() == reflect.Interface {
		return def, nil
	}
	overlayOnto(target, overlay)
	return out, nil
}

// overlayOnto replaces the top-level members of v named in overlay. v is a
// shallow copy of the default: maps are cloned and pointed-to structs copied
// before they are written. Members that do not decode into their field or
// element type are skipped.
func overlayOnto(v reflect.Value, overlay map[string]json.RawMessage) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.Type().Elem().Kind() != reflect.Struct {
			return
		}
		cp := reflect.New(v.Type().Elem())
		if !v.IsNil() {
			cp.Elem().Set(v.Elem())
		}
		overlayOnto(cp.Elem(), overlay)
		v.Set(cp)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len()+len(overlay))
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), iter.Value())
		}
		for k, raw := range overlay {
			elem := reflect.New(v.Type().Elem())
			if json.Unmarshal(raw, elem.Interface()) != nil {
				continue
			}
			clone.SetMapIndex(reflect.ValueOf(k).Convert(v.Type().Key()), elem.Elem())
		}
		v.Set(clone)

	case reflect.Struct:
		fields := jsonFields(v.Type())
		for k, raw := range overlay {
			index, ok := fields[k]
			if !ok {
				index, ok = foldField(fields, k)
			}
			if !ok {
				continue
			}
			f := v.FieldByIndex(index)
			elem := reflect.New(f.Type())
			if json.Unmarshal(raw, elem.Interface()) != nil {
				continue
			}
			f.Set(elem.Elem())
		}
	}
}

// jsonFields maps the JSON member names of t's exported fields to their
// indexes, following encoding/json naming: tag names win, "-" hides a field,
// and untagged embedded structs contribute their own fields.
func jsonFields(t reflect.Type) map[string][]int {
	fields := make(map[string][]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			for n, sub := range jsonFields(f.Type) {
				if _, taken := fields[n]; !taken {
					fields[n] = append([]int{i}, sub...)
				}
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = []int{i}
	}
	return fields
}

// foldField matches name case-insensitively, as encoding/json does.
func foldField(fields map[string][]int, name string) ([]int, bool) {
	for n, index := range fields {
		if strings.EqualFold(n, name) {
			return index, true
		}
	}
	return nil, false
}

// objectFields serializes v and splits the resulting JSON object into its
// top-level members.
func objectFields(v any) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoder: sparse encode: %w", err)
	}
	if string(data) == "null" {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, ErrNotObject
	}
	return fields, nil
}

// sameJSON compares two JSON documents structurally.
func sameJSON(a, b json.RawMessage) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
