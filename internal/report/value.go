// internal/report/value.go
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the shape of a decoded JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindList
)

// Value is a small tagged union over decoded JSON so the flattening
// algorithm is total: every accessor is defined for every shape.
// Object key order is preserved from the source document, which is what
// keeps trailing column order stable across renders.
type Value struct {
	kind   Kind
	scalar interface{} // string, json.Number or bool
	keys   []string
	fields map[string]Value
	items  []Value
}

// DecodeValue parses raw JSON into a Value tree.
func DecodeValue(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeList(dec)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Value{kind: KindNull}, nil
	default:
		return Value{kind: KindScalar, scalar: tok}, nil
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindObject, fields: map[string]Value{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("non-string object key %v", keyTok)
		}
		field, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		if _, dup := v.fields[key]; !dup {
			v.keys = append(v.keys, key)
		}
		v.fields[key] = field
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeList(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindList}
	for dec.More() {
		item, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.items = append(v.items, item)
	}
	// consume closing ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (v Value) Kind() Kind { return v.kind }

// Field returns the named field of an object value. Defined (and false)
// for every other kind.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{kind: KindNull}, false
	}
	f, ok := v.fields[name]
	if !ok {
		return Value{kind: KindNull}, false
	}
	return f, true
}

// Keys returns object keys in source order, nil for other kinds.
func (v Value) Keys() []string { return v.keys }

// Items returns list elements in source order, nil for other kinds.
func (v Value) Items() []Value { return v.items }

// Scalar returns the underlying scalar, nil for other kinds.
func (v Value) Scalar() interface{} {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Interface converts the tree back into plain Go values.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindScalar:
		return v.scalar
	case KindList:
		out := make([]interface{}, 0, len(v.items))
		for _, it := range v.items {
			out = append(out, it.Interface())
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// JSONString renders the value as compact JSON, used for cells whose
// nested detail is carried along unexpanded.
func (v Value) JSONString() string {
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return ""
	}
	return string(data)
}
