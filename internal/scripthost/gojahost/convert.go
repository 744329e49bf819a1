// Package gojahost is the default ScriptHost implementation (§6), backed by
// github.com/dop251/goja — a pure-Go ECMAScript 5.1+ runtime. One Runtime is
// created per VU and never touched from another goroutine (§5, §9).
//
// Scripts use a CommonJS convention (`module.exports = {...}`) rather than
// native ES module `import`/`export` syntax: goja itself only implements
// the ECMAScript grammar, and the dependency corpus this module was built
// from carries no JS bundler/transpiler that could lower ES modules to
// goja-executable CommonJS before evaluation. CommonJS is what goja's own
// authors document as the supported pattern for multi-file programs, so the
// scripting contract standardizes on it instead of guessing at a transform.
package gojahost

import (
	"github.com/dop251/goja"

	"github.com/nogcio/wrkr/internal/value"
)

// toValue converts a goja.Value (already Export()-ed to Go-native types)
// into the engine's Value Model.
func toValue(vm *goja.Runtime, v goja.Value) value.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return value.Null()
	}
	return nativeToValue(v.Export())
}

func nativeToValue(native interface{}) value.Value {
	switch n := native.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(n)
	case int64:
		return value.I64(n)
	case int:
		return value.I64(int64(n))
	case float64:
		return value.F64(n)
	case string:
		return value.String(n)
	case []byte:
		return value.Bytes(n)
	case []interface{}:
		items := make([]value.Value, len(n))
		for i, item := range n {
			items[i] = nativeToValue(item)
		}
		return value.List(items)
	case map[string]interface{}:
		m := value.NewMap()
		for k, v := range n {
			m.Set(value.StringKey(k), nativeToValue(v))
		}
		return value.FromMap(m)
	default:
		return value.Null()
	}
}

// fromValue converts the engine's Value Model into a goja.Value, for
// handing request/response objects back into the script.
func fromValue(vm *goja.Runtime, v value.Value) goja.Value {
	return vm.ToValue(valueToNative(v))
}

func valueToNative(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindI64:
		i, _ := v.AsI64()
		return i
	case value.KindU64:
		u, _ := v.AsU64()
		return u
	case value.KindF64:
		f, _ := v.AsF64()
		return f
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindBytes:
		b, _ := v.AsBytes()
		return b
	case value.KindList:
		items, _ := v.AsList()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = valueToNative(item)
		}
		return out
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]interface{}, m.Len())
		m.Range(func(k value.MapKey, mv value.Value) bool {
			out[k.String()] = valueToNative(mv)
			return true
		})
		return out
	default:
		return nil
	}
}

// stringMapFromGoja reads a JS object's own string-keyed properties as a
// Go map[string]string, used for headers/query/tags arguments.
func stringMapFromGoja(vm *goja.Runtime, v goja.Value) map[string]string {
	out := map[string]string{}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return out
	}
	obj := v.ToObject(vm)
	for _, key := range obj.Keys() {
		out[key] = obj.Get(key).String()
	}
	return out
}

// tagsFromGoja reads a JS object into a value.Tags, used for user-supplied
// `tags` options on HTTP/gRPC calls and `group`.
func tagsFromGoja(vm *goja.Runtime, v goja.Value) value.Tags {
	tags := value.NewTags()
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return tags
	}
	obj := v.ToObject(vm)
	for _, key := range obj.Keys() {
		prop := obj.Get(key)
		switch native := prop.Export().(type) {
		case string:
			tags = tags.With(key, value.TagString(native))
		case int64:
			tags = tags.With(key, value.TagInt(native))
		case float64:
			tags = tags.With(key, value.TagInt(int64(native)))
		case bool:
			tags = tags.With(key, value.TagBool(native))
		}
	}
	return tags
}
