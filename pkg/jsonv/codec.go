package jsonv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// ErrSyntax is returned by Parse for input that is not a single JSON value.
var ErrSyntax = errors.New("jsonv: malformed JSON")

// Parse decodes a single JSON document into a Value.
func Parse(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, ErrSyntax
	}
	raw, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return fromRaw(raw, typ)
}

// MustParse is like Parse but panics on error. Intended for literals in tests.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func fromRaw(raw []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.Null:
		return Value{}, nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return BoolValue(b), nil
	case jsonparser.Number:
		return NumberValue(string(raw)), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return StringValue(s), nil
	case jsonparser.Array:
		arr := make([]Value, 0)
		var elemErr error
		_, err := jsonparser.ArrayEach(raw, func(elem []byte, dt jsonparser.ValueType, _ int, err error) {
			if elemErr != nil {
				return
			}
			if err != nil {
				elemErr = err
				return
			}
			e, err := fromRaw(elem, dt)
			if err != nil {
				elemErr = err
				return
			}
			arr = append(arr, e)
		})
		if err == nil {
			err = elemErr
		}
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return Value{kind: Array, arr: arr}, nil
	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(raw, func(key, member []byte, dt jsonparser.ValueType, _ int) error {
			m, err := fromRaw(member, dt)
			if err != nil {
				return err
			}
			obj.obj[string(key)] = m
			return nil
		})
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return obj, nil
	}
	return Value{}, fmt.Errorf("%w: unexpected token type %s", ErrSyntax, typ)
}

// Bytes encodes v as compact JSON. Object members are written in key order.
func (v Value) Bytes() []byte {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.Bytes()
}

func (v Value) String() string { return string(v.Bytes()) }

func (v Value) encode(buf *bytes.Buffer) {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(v.s)
	case String:
		writeString(buf, v.s)
	case Array:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.encode(buf)
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			v.obj[k].encode(buf)
		}
		buf.WriteByte('}')
	}
}

func writeString(buf *bytes.Buffer, s string) {
	// json.Marshal never fails for a string.
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) { return v.Bytes(), nil }

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromInterface converts a Go value into a Value by round-tripping it
// through encoding/json.
func FromInterface(x any) (Value, error) {
	if v, ok := x.(Value); ok {
		return v, nil
	}
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, err
	}
	return Parse(data)
}

// Interface converts v into the plain Go representation produced by
// encoding/json: nil, bool, json.Number, string, []any, map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return json.Number(v.s)
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, m := range v.obj {
			out[k] = m.Interface()
		}
		return out
	}
	return nil
}

// Strings returns the string elements of an array value in order; other
// element kinds are skipped.
func (v Value) Strings() []string {
	var out []string
	for _, e := range v.Elems() {
		if s, ok := e.Str(); ok {
			out = append(out, s)
		}
	}
	return out
}
