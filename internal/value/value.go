// Package value implements the cross-runtime tagged-union Value (§3): the
// only shape permitted to cross the boundary between the embedded script
// runtime and the HTTP/gRPC clients.
package value

import "fmt"

// Kind discriminates the tagged union held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindU64
	KindF64
	KindString
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union:
// Null | Bool | I64 | U64 | F64 | String | Bytes | List<Value> | Map.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	f     float64
	s     string
	bytes []byte
	list  []Value
	m     *Map
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// I64 wraps a signed 64-bit integer.
func I64(i int64) Value { return Value{kind: KindI64, i: i} }

// U64 wraps an unsigned 64-bit integer.
func U64(u uint64) Value { return Value{kind: KindU64, u: u} }

// F64 wraps a double-precision float.
func F64(f float64) Value { return Value{kind: KindF64, f: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes wraps a byte slice. The slice is retained, not copied; callers must
// not mutate it afterwards.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// List wraps an ordered list of values.
func List(items []Value) Value { return Value{kind: KindList, list: items} }

// FromMap wraps a Map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Kind reports the value's discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload; ok is false for any other kind.
func (v Value) AsBool() (value bool, ok bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsI64 returns the signed integer payload; ok is false for any other kind.
func (v Value) AsI64() (value int64, ok bool) {
	if v.kind != KindI64 {
		return 0, false
	}
	return v.i, true
}

// AsU64 returns the unsigned integer payload; ok is false for any other kind.
func (v Value) AsU64() (value uint64, ok bool) {
	if v.kind != KindU64 {
		return 0, false
	}
	return v.u, true
}

// AsF64 returns the float payload; ok is false for any other kind.
func (v Value) AsF64() (value float64, ok bool) {
	if v.kind != KindF64 {
		return 0, false
	}
	return v.f, true
}

// AsString returns the string payload; ok is false for any other kind.
func (v Value) AsString() (value string, ok bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBytes returns the byte payload; ok is false for any other kind.
func (v Value) AsBytes() (value []byte, ok bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

// AsList returns the list payload; ok is false for any other kind.
func (v Value) AsList() (value []Value, ok bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the map payload; ok is false for any other kind.
func (v Value) AsMap() (value *Map, ok bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Float64 coerces any numeric kind to float64, used by the threshold
// evaluator and Trend digest which only ever deal in float samples.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindI64:
		return float64(v.i), true
	case KindU64:
		return float64(v.u), true
	case KindF64:
		return v.f, true
	default:
		return 0, false
	}
}

// GoString renders v for debugging; it is not the script-facing string
// coercion (that belongs to the script host).
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindI64:
		return fmt.Sprintf("%d", v.i)
	case KindU64:
		return fmt.Sprintf("%d", v.u)
	case KindF64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytes))
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindMap:
		return fmt.Sprintf("map(%d)", v.m.Len())
	default:
		return "?"
	}
}
