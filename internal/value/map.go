package value

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// MapKey is the restricted key union permitted in a Map: String | I64 | Bool.
type MapKey struct {
	kind Kind
	s    string
	i    int64
	b    bool
}

// StringKey builds a string-keyed MapKey.
func StringKey(s string) MapKey { return MapKey{kind: KindString, s: s} }

// IntKey builds an integer-keyed MapKey.
func IntKey(i int64) MapKey { return MapKey{kind: KindI64, i: i} }

// BoolKey builds a boolean-keyed MapKey.
func BoolKey(b bool) MapKey { return MapKey{kind: KindBool, b: b} }

// Kind reports the key's discriminant.
func (k MapKey) Kind() Kind { return k.kind }

// canonical returns a byte encoding that is unique across the three key
// kinds, used both for hashing and equality.
func (k MapKey) canonical() string {
	switch k.kind {
	case KindString:
		return "s:" + k.s
	case KindI64:
		return "i:" + strconv.FormatInt(k.i, 10)
	case KindBool:
		if k.b {
			return "b:1"
		}
		return "b:0"
	default:
		return "n:"
	}
}

// String renders the key's underlying value for debugging and logging.
func (k MapKey) String() string {
	switch k.kind {
	case KindString:
		return k.s
	case KindI64:
		return strconv.FormatInt(k.i, 10)
	case KindBool:
		return strconv.FormatBool(k.b)
	default:
		return ""
	}
}

func (k MapKey) Equal(other MapKey) bool {
	return k.kind == other.kind && k.canonical() == other.canonical()
}

// Map is an insertion-order-preserving map keyed by MapKey, with O(1)
// average lookup via an xxhash fast-hash index (§3: "fast hash" Map).
// It is not safe for concurrent use; callers (e.g. gojahost converting a
// script object) own exclusive access while building one.
type Map struct {
	keys   []MapKey
	vals   []Value
	index  map[uint64][]int
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[uint64][]int)}
}

func hashOf(k MapKey) uint64 {
	return xxhash.Sum64String(k.canonical())
}

// Set inserts or overwrites the value for k, preserving k's original
// insertion position on overwrite.
func (m *Map) Set(k MapKey, v Value) {
	h := hashOf(k)
	for _, idx := range m.index[h] {
		if m.keys[idx].Equal(k) {
			m.vals[idx] = v
			return
		}
	}
	idx := len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
	m.index[h] = append(m.index[h], idx)
}

// Get looks up the value for k.
func (m *Map) Get(k MapKey) (Value, bool) {
	h := hashOf(k)
	for _, idx := range m.index[h] {
		if m.keys[idx].Equal(k) {
			return m.vals[idx], true
		}
	}
	return Value{}, false
}

// Delete removes k, if present. Remaining entries keep their relative order.
func (m *Map) Delete(k MapKey) {
	h := hashOf(k)
	bucket := m.index[h]
	for bi, idx := range bucket {
		if m.keys[idx].Equal(k) {
			m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
			m.vals = append(m.vals[:idx], m.vals[idx+1:]...)
			m.index[h] = append(bucket[:bi], bucket[bi+1:]...)
			m.reindexFrom(idx)
			return
		}
	}
}

// reindexFrom repairs indices in m.index after a deletion shifted every
// entry at position >= idx back by one.
func (m *Map) reindexFrom(idx int) {
	for h, bucket := range m.index {
		for bi, pos := range bucket {
			if pos > idx {
				bucket[bi] = pos - 1
			}
		}
		m.index[h] = bucket
	}
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Range visits entries in insertion order, stopping early if fn returns
// false.
func (m *Map) Range(fn func(k MapKey, v Value) bool) {
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}
