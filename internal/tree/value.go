// Package tree holds the document model shared by every other package: an
// ordered, immutable tagged union of JSON-like values.
//
// Objects keep their keys in insertion order so that a document can be viewed,
// edited and written back without reshuffling the user's fields. Values are
// never mutated in place; WithKey and WithIndex return a copy that shares all
// untouched children with the original.
package tree

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrKind is returned when an operation is applied to a value of the wrong kind.
var ErrKind = errors.New("wrong value kind")

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Field is shorthand for building a Member.
func Field(key string, v Value) Member {
	return Member{Key: key, Value: v}
}

// Value is a JSON-like value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	text    string // string content, or the literal text of a number
	members []Member
	index   map[string]int
	items   []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a text value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a numeric value. NaN and infinities have no JSON form and
// become null, as they do when a browser serializes them.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, text: formatFloat(f)}
}

// Int returns an integral numeric value.
func Int(i int64) Value {
	return Value{kind: KindNumber, text: strconv.FormatInt(i, 10)}
}

// NumberLiteral returns a numeric value that keeps lit as its textual form.
// lit must be a valid JSON number.
func NumberLiteral(lit string) Value {
	return Value{kind: KindNumber, text: lit}
}

// Object builds an object from members. A repeated key keeps its first
// position and takes the last value.
func Object(members ...Member) Value {
	v := Value{kind: KindObject, members: make([]Member, 0, len(members)), index: make(map[string]int, len(members))}
	for _, m := range members {
		if i, ok := v.index[m.Key]; ok {
			v.members[i].Value = m.Value
			continue
		}
		v.index[m.Key] = len(v.members)
		v.members = append(v.members, m)
	}
	return v
}

// Array builds an array from items.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, items: out}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsContainer reports whether v is an object or an array.
func (v Value) IsContainer() bool { return v.kind == KindObject || v.kind == KindArray }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the text held by v.
func (v Value) AsString() (string, bool) { return v.text, v.kind == KindString }

// Literal returns the source text of a number, or "" for other kinds.
func (v Value) Literal() string {
	if v.kind != KindNumber {
		return ""
	}
	return v.text
}

// Float returns the numeric value of v.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Integer returns v as an int64 when it is a number without a fractional part
// that fits in 64 bits.
func (v Value) Integer() (int64, bool) {
	if v.kind != KindNumber || strings.ContainsAny(v.text, ".eE") {
		return 0, false
	}
	i, err := strconv.ParseInt(v.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Len returns the number of members of an object or items of an array.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Keys returns the keys of an object in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the members of an object.
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// Items returns a copy of the items of an array.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Get looks up key in an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	i, ok := v.index[key]
	if !ok {
		return Value{}, false
	}
	return v.members[i].Value, true
}

// At returns item i of an array.
func (v Value) At(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// WithKey returns a copy of the object v with key set to val. A new key is
// appended after the existing ones.
func (v Value) WithKey(key string, val Value) (Value, error) {
	if v.kind != KindObject {
		return v, fmt.Errorf("set key %q on %s: %w", key, v.kind, ErrKind)
	}
	out := Value{kind: KindObject}
	if i, ok := v.index[key]; ok {
		out.members = make([]Member, len(v.members))
		copy(out.members, v.members)
		out.members[i].Value = val
		out.index = v.index
		return out, nil
	}
	out.members = make([]Member, len(v.members), len(v.members)+1)
	copy(out.members, v.members)
	out.members = append(out.members, Member{Key: key, Value: val})
	out.index = make(map[string]int, len(out.members))
	for k, i := range v.index {
		out.index[k] = i
	}
	out.index[key] = len(out.members) - 1
	return out, nil
}

// WithIndex returns a copy of the array v with item i replaced by val.
func (v Value) WithIndex(i int, val Value) (Value, error) {
	if v.kind != KindArray {
		return v, fmt.Errorf("set index %d on %s: %w", i, v.kind, ErrKind)
	}
	if i < 0 || i >= len(v.items) {
		return v, fmt.Errorf("index %d out of range [0,%d)", i, len(v.items))
	}
	out := Value{kind: KindArray, items: make([]Value, len(v.items))}
	copy(out.items, v.items)
	out.items[i] = val
	return out, nil
}

// Equal reports whether v and o are deeply equal. Numbers compare by value,
// objects by their key/value pairs in order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		if v.text == o.text {
			return true
		}
		a, aok := v.Float()
		b, bok := o.Float()
		return aok && bok && a == b
	case KindString:
		return v.text == o.text
	case KindObject:
		if len(v.members) != len(o.members) {
			return false
		}
		for i, m := range v.members {
			if m.Key != o.members[i].Key || !m.Value.Equal(o.members[i].Value) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Text returns the plain text form of v: strings unquoted, numbers by their
// literal, null as the empty string, containers as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.text
	default:
		return v.String()
	}
}

// String returns the compact JSON encoding of v.
func (v Value) String() string {
	var b strings.Builder
	writeValue(&b, v, "", 0)
	return b.String()
}

// formatFloat renders f the way JSON serializers in browsers do: plain
// decimal notation between 1e-6 and 1e21, exponent notation outside.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go pads the exponent to two digits ("1e-07"); drop the padding.
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}
