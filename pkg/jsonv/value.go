// Package jsonv implements a tagged JSON value tree used for document bodies.
//
// A Value is one of Null, Bool, Number, String, Array or Object. Numbers keep
// their literal text so that values round-trip without precision loss.
package jsonv

import (
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON value. The zero Value is Null.
//
// Arrays and objects share their backing storage between copies of a Value;
// use Clone before mutating a value that is also held elsewhere.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or number literal
	arr  []Value
	obj  map[string]Value
}

// NullValue returns the JSON null.
func NullValue() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// IntValue wraps an integer as a Number.
func IntValue(n int64) Value { return Value{kind: Number, s: strconv.FormatInt(n, 10)} }

// FloatValue wraps a float as a Number.
func FloatValue(f float64) Value {
	return Value{kind: Number, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// NumberValue wraps a JSON number literal. The literal is not validated.
func NumberValue(lit string) Value { return Value{kind: Number, s: lit} }

// ArrayValue builds an array from the given elements.
func ArrayValue(elems ...Value) Value {
	arr := make([]Value, len(elems))
	copy(arr, elems)
	return Value{kind: Array, arr: arr}
}

// NewObject returns an empty object.
func NewObject() Value { return Value{kind: Object, obj: make(map[string]Value)} }

// ObjectValue builds an object from the given members.
func ObjectValue(members map[string]Value) Value {
	obj := make(map[string]Value, len(members))
	for k, v := range members {
		obj[k] = v
	}
	return Value{kind: Object, obj: obj}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == Null }
func (v Value) IsObject() bool { return v.kind == Object }

// Bool returns the boolean held by v and whether v is a Bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

// Str returns the string held by v and whether v is a String.
func (v Value) Str() (string, bool) { return v.s, v.kind == String }

// Literal returns the number literal held by v and whether v is a Number.
func (v Value) Literal() (string, bool) { return v.s, v.kind == Number }

// Float returns the numeric value of v.
func (v Value) Float() (float64, error) {
	if v.kind != Number {
		return 0, &KindError{Want: Number, Got: v.kind}
	}
	return strconv.ParseFloat(v.s, 64)
}

// Int returns the integer value of v.
func (v Value) Int() (int64, error) {
	if v.kind != Number {
		return 0, &KindError{Want: Number, Got: v.kind}
	}
	return strconv.ParseInt(v.s, 10, 64)
}

// Elems returns the elements of an array, or nil for any other kind.
func (v Value) Elems() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

// Len returns the number of elements or members. Scalars have length 0.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	}
	return 0
}

// Get returns the member stored under key. It reports false when v is not an
// object or has no such member.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Has reports whether v is an object holding key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Set stores a member on an object. It panics if v is not an object.
func (v *Value) Set(key string, m Value) {
	if v.kind != Object {
		panic("jsonv: Set on " + v.kind.String())
	}
	if v.obj == nil {
		v.obj = make(map[string]Value)
	}
	v.obj[key] = m
}

// Remove deletes a member from an object and reports whether it was present.
func (v *Value) Remove(key string) bool {
	if v.kind != Object {
		return false
	}
	if _, ok := v.obj[key]; !ok {
		return false
	}
	delete(v.obj, key)
	return true
}

// Merge copies every member of src into v, replacing existing keys. Nested
// objects are replaced, not merged. v must be an object.
func (v *Value) Merge(src Value) {
	for k, m := range src.obj {
		v.Set(k, m)
	}
}

// Keys returns the member names of an object in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		return Value{kind: Array, arr: arr}
	case Object:
		obj := make(map[string]Value, len(v.obj))
		for k, m := range v.obj {
			obj[k] = m.Clone()
		}
		return Value{kind: Object, obj: obj}
	}
	return v
}

// Equal reports whether v and o are structurally identical. Numbers compare
// by numeric value when both parse as floats, otherwise by literal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Number:
		if v.s == o.s {
			return true
		}
		a, errA := strconv.ParseFloat(v.s, 64)
		b, errB := strconv.ParseFloat(o.s, 64)
		return errA == nil && errB == nil && a == b
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, m := range v.obj {
			om, ok := o.obj[k]
			if !ok || !m.Equal(om) {
				return false
			}
		}
		return true
	}
	return false
}

// KindError is returned when a Value does not hold the expected kind.
type KindError struct {
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return "jsonv: expected " + e.Want.String() + ", got " + e.Got.String()
}
