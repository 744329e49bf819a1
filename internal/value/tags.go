package value

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TagValue is the restricted value union permitted for a tag: String | I64 |
// Bool (§3). Tag values are always scalar so series signatures stay cheap
// to compute and compare.
type TagValue struct {
	kind Kind
	s    string
	i    int64
	b    bool
}

// TagString builds a string tag value.
func TagString(s string) TagValue { return TagValue{kind: KindString, s: s} }

// TagInt builds an integer tag value.
func TagInt(i int64) TagValue { return TagValue{kind: KindI64, i: i} }

// TagBool builds a boolean tag value.
func TagBool(b bool) TagValue { return TagValue{kind: KindBool, b: b} }

// Kind reports the tag value's discriminant.
func (t TagValue) Kind() Kind { return t.kind }

// Canonical renders t the same way regardless of kind, so two tags with
// equal semantic value always produce identical signature fragments.
func (t TagValue) Canonical() string {
	switch t.kind {
	case KindString:
		return t.s
	case KindI64:
		return strconv.FormatInt(t.i, 10)
	case KindBool:
		return strconv.FormatBool(t.b)
	default:
		return ""
	}
}

// Tags is an immutable, order-independent set of name->TagValue pairs
// attached to every metric sample (§3, §4.9 "canonical_tags"). Builder
// methods return a new Tags; the receiver is never mutated, so Tags can be
// shared freely across VU goroutines.
type Tags struct {
	names []string
	vals  []TagValue
}

// NewTags returns the empty tag set.
func NewTags() Tags { return Tags{} }

// With returns a copy of t with name=v set, replacing any existing value
// for name.
func (t Tags) With(name string, v TagValue) Tags {
	names := make([]string, len(t.names), len(t.names)+1)
	vals := make([]TagValue, len(t.vals), len(t.vals)+1)
	copy(names, t.names)
	copy(vals, t.vals)
	for i, n := range names {
		if n == name {
			vals[i] = v
			return Tags{names: names, vals: vals}
		}
	}
	names = append(names, name)
	vals = append(vals, v)
	return Tags{names: names, vals: vals}
}

// WithAll merges every pair from other into t, other's values winning on
// collision. Used to layer request-level tags over scenario-level tags.
func (t Tags) WithAll(other Tags) Tags {
	out := t
	for i, n := range other.names {
		out = out.With(n, other.vals[i])
	}
	return out
}

// Get looks up a tag by name.
func (t Tags) Get(name string) (TagValue, bool) {
	for i, n := range t.names {
		if n == name {
			return t.vals[i], true
		}
	}
	return TagValue{}, false
}

// Len reports the number of tags.
func (t Tags) Len() int { return len(t.names) }

// Pair is a single name/value tag, used when iterating in canonical order.
type Pair struct {
	Name  string
	Value TagValue
}

// SortedPairs returns every tag sorted lexicographically by name, the
// canonical order used for series signatures and NDJSON tag objects.
func (t Tags) SortedPairs() []Pair {
	pairs := make([]Pair, len(t.names))
	for i, n := range t.names {
		pairs[i] = Pair{Name: n, Value: t.vals[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs
}

// Signature renders the canonical "name=value,name=value" string used as
// the Metrics Engine's series identity (name is combined separately) and
// as the cache key for repeated tag sets.
func (t Tags) Signature() string {
	pairs := t.SortedPairs()
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value.Canonical())
	}
	return b.String()
}

// Hash returns the xxhash of the canonical signature, used to intern
// repeated tag sets in the Metrics Engine without repeated string
// comparison.
func (t Tags) Hash() uint64 {
	return xxhash.Sum64String(t.Signature())
}

// IsSupersetOf reports whether every tag in selector is present in t with
// an equal value — the matching rule a threshold selector (§5) uses
// against a sample's tags.
func (t Tags) IsSupersetOf(selector Tags) bool {
	for i, n := range selector.names {
		v, ok := t.Get(n)
		if !ok || v.Canonical() != selector.vals[i].Canonical() || v.Kind() != selector.vals[i].Kind() {
			return false
		}
	}
	return true
}
