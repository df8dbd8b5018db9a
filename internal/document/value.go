// Package document defines the recursive document value and per-table
// schema types stored and queried by qtable.
package document

import (
	"sort"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindNull
	KindArray
	KindObject
)

// Pair is a single (key, Value) member of an Object, in parse order.
type Pair struct {
	Key   string `msgpack:"key"`
	Value Value  `msgpack:"value"`
}

// Value is the tagged recursive document value described in spec.md §3.
// Only one of the fields matching Kind is meaningful at a time.
type Value struct {
	Kind   Kind   `msgpack:"kind"`
	Str    string `msgpack:"str,omitempty"`
	Int    int64  `msgpack:"int,omitempty"`
	Float  float64 `msgpack:"float,omitempty"`
	Bool   bool   `msgpack:"bool,omitempty"`
	Array  []Value `msgpack:"array,omitempty"`
	Object []Pair  `msgpack:"object,omitempty"`
}

func NewString(s string) Value { return Value{Kind: KindString, Str: s} }
func NewInt(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func NewBool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func NewNull() Value           { return Value{Kind: KindNull} }
func NewArray(v []Value) Value { return Value{Kind: KindArray, Array: v} }
func NewObject(p []Pair) Value { return Value{Kind: KindObject, Object: p} }

// Get returns the value of the first member with the given key in an
// Object, and whether it was found.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	for _, p := range v.Object {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the member names of an Object in parse order. Returns nil
// for non-Object values.
func (v Value) Keys() []string {
	if v.Kind != KindObject {
		return nil
	}
	keys := make([]string, len(v.Object))
	for i, p := range v.Object {
		keys[i] = p.Key
	}
	return keys
}

// Equal compares two Values. Object equality is by multiset of (key,
// value) pairs as required by spec.md §3 ("key order is preserved as
// parsed but equality is by multiset of pairs").
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBool:
		return a.Bool == b.Bool
	case KindNull:
		return true
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return objectMultisetEqual(a.Object, b.Object)
	}
	return false
}

func objectMultisetEqual(a, b []Pair) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, pa := range a {
		found := false
		for j, pb := range b {
			if used[j] || pa.Key != pb.Key {
				continue
			}
			if Equal(pa.Value, pb.Value) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Stringify renders v the way the index layer keys it: plain decimal for
// numbers, "true"/"false" for booleans, the raw contents for strings, and
// "null" for null. This mirrors the original source's Display impl for
// DataObject (parser.rs) and is intentionally untyped: spec.md §9 keeps
// range queries comparing these strings lexicographically.
func Stringify(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	default:
		// Arrays/objects are not indexable scalars; callers should not
		// stringify them for an index key, but render deterministically
		// rather than panic.
		return renderComposite(v)
	}
}

func renderComposite(v Value) string {
	if v.Kind == KindArray {
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = Stringify(e)
		}
		return "[" + joinComma(parts) + "]"
	}
	keys := append([]string(nil), v.Keys()...)
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val, _ := v.Get(k)
		parts = append(parts, k+":"+Stringify(val))
	}
	return "{" + joinComma(parts) + "}"
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
