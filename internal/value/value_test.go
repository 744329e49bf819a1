package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	v := I64(42)
	i, ok := v.AsI64()
	require.True(t, ok)
	assert.EqualValues(t, 42, i)

	_, ok = v.AsString()
	assert.False(t, ok)

	f, ok := v.Float64()
	require.True(t, ok)
	assert.Equal(t, 42.0, f)
}

func TestMapSetGetOverwritePreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set(StringKey("b"), I64(1))
	m.Set(StringKey("a"), I64(2))
	m.Set(StringKey("b"), I64(3))

	require.Equal(t, 2, m.Len())

	var order []string
	m.Range(func(k MapKey, v Value) bool {
		order = append(order, k.String())
		return true
	})
	assert.Equal(t, []string{"b", "a"}, order)

	got, ok := m.Get(StringKey("b"))
	require.True(t, ok)
	i, _ := got.AsI64()
	assert.EqualValues(t, 3, i)
}

func TestMapDeleteReindexes(t *testing.T) {
	m := NewMap()
	m.Set(IntKey(1), String("one"))
	m.Set(IntKey(2), String("two"))
	m.Set(IntKey(3), String("three"))

	m.Delete(IntKey(2))
	assert.Equal(t, 2, m.Len())

	v, ok := m.Get(IntKey(3))
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "three", s)

	_, ok = m.Get(IntKey(2))
	assert.False(t, ok)
}

func TestMapKeyKindsDoNotCollide(t *testing.T) {
	m := NewMap()
	m.Set(StringKey("1"), String("str-key"))
	m.Set(IntKey(1), String("int-key"))
	m.Set(BoolKey(true), String("bool-key"))

	assert.Equal(t, 3, m.Len())
	v, _ := m.Get(StringKey("1"))
	s, _ := v.AsString()
	assert.Equal(t, "str-key", s)

	v, _ = m.Get(IntKey(1))
	s, _ = v.AsString()
	assert.Equal(t, "int-key", s)
}

func TestTagsSignatureIsSortedAndStable(t *testing.T) {
	tags := NewTags().With("method", TagString("GET")).With("status", TagInt(200))
	other := NewTags().With("status", TagInt(200)).With("method", TagString("GET"))

	assert.Equal(t, tags.Signature(), other.Signature())
	assert.Equal(t, tags.Hash(), other.Hash())
}

func TestTagsIsSupersetOf(t *testing.T) {
	full := NewTags().With("method", TagString("GET")).With("status", TagInt(200)).With("name", TagString("login"))
	selector := NewTags().With("method", TagString("GET")).With("status", TagInt(200))

	assert.True(t, full.IsSupersetOf(selector))

	miss := NewTags().With("method", TagString("POST"))
	assert.False(t, full.IsSupersetOf(miss))
}
