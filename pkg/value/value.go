// Package value implements the JSON document object model (spec §3.1,
// §4.3): a tagged-union value with small-object optimisations for
// strings and doubles, and hybrid (vector→hash) object storage above a
// promotion threshold. Every mutation that changes the tree's byte
// footprint is accompanied by an explicit *alloc.Session accounting
// call, standing in for the source's allocator-wrapped heap operations
// (spec §4.1, §9 — "placement-new allocator templates" become an
// explicit trait object threaded through constructors).
package value

import (
	"fmt"
	"strconv"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
)

// Kind is the JSON value's tag.
type Kind uint8

const (
	KindNull Kind = iota
	KindFalse
	KindTrue
	KindInt
	KindUint
	KindDouble
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindFalse, KindTrue:
		return "boolean"
	case KindInt, KindUint:
		return "integer"
	case KindDouble:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of the DOM. Arrays and objects hold pointers to
// child Values so that a selector's result set of (value-pointer,
// pointer-path) pairs (spec §3.4) can mutate in place.
type Value struct {
	kind Kind

	i   int64
	u   uint64
	f   float64
	ftx string // original numeric text, when the parser preserved one

	s          string
	sNoEscape  bool

	arr *Array
	obj *Object
}

// --- constructors ---

func Null() *Value { return &Value{kind: KindNull} }

func Bool(b bool) *Value {
	if b {
		return &Value{kind: KindTrue}
	}
	return &Value{kind: KindFalse}
}

func Int(i int64) *Value { return &Value{kind: KindInt, i: i} }

func Uint(u uint64) *Value { return &Value{kind: KindUint, u: u} }

// Double builds a double value, optionally preserving the original text
// form so re-serialisation is bit-identical to what was parsed (spec
// §3.1).
func Double(f float64, originalText string) *Value {
	return &Value{kind: KindDouble, f: f, ftx: originalText}
}

// String builds a string value. noEscape must be true only when the
// caller has already verified the bytes contain nothing the fast
// serializer must escape (spec §3.1, §4.4).
func String(s string, noEscape bool) *Value {
	return &Value{kind: KindString, s: s, sNoEscape: noEscape}
}

func NewArray() *Value {
	return &Value{kind: KindArray, arr: newArrayStorage()}
}

func NewObject() *Value {
	return &Value{kind: KindObject, obj: newObjectStorage()}
}

// --- predicates ---

func (v *Value) Kind() Kind     { return v.kind }
func (v *Value) IsNull() bool   { return v.kind == KindNull }
func (v *Value) IsBool() bool   { return v.kind == KindTrue || v.kind == KindFalse }
func (v *Value) IsInt() bool    { return v.kind == KindInt }
func (v *Value) IsUint() bool   { return v.kind == KindUint }
func (v *Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindUint || v.kind == KindDouble }
func (v *Value) IsDouble() bool { return v.kind == KindDouble }
func (v *Value) IsString() bool { return v.kind == KindString }
func (v *Value) IsArray() bool  { return v.kind == KindArray }
func (v *Value) IsObject() bool { return v.kind == KindObject }

// --- accessors (borrowed) ---

func (v *Value) Bool() bool { return v.kind == KindTrue }

func (v *Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindUint:
		return int64(v.u)
	case KindDouble:
		return int64(v.f)
	}
	return 0
}

func (v *Value) Uint() uint64 {
	switch v.kind {
	case KindUint:
		return v.u
	case KindInt:
		return uint64(v.i)
	case KindDouble:
		return uint64(v.f)
	}
	return 0
}

// Float64 returns the numeric value as a double regardless of int/uint
// storage.
func (v *Value) Float64() float64 {
	switch v.kind {
	case KindDouble:
		return v.f
	case KindInt:
		return float64(v.i)
	case KindUint:
		return float64(v.u)
	}
	return 0
}

// OriginalText returns the preserved decimal text for a double, if any.
func (v *Value) OriginalText() (string, bool) {
	if v.kind != KindDouble || v.ftx == "" {
		return "", false
	}
	return v.ftx, true
}

func (v *Value) Str() string { return v.s }

func (v *Value) StrNoEscape() bool { return v.sNoEscape }

func (v *Value) Array() *Array { return v.arr }

func (v *Value) Object() *Object { return v.obj }

// --- in-place mutators ---

func (v *Value) SetNull() { *v = Value{kind: KindNull} }

func (v *Value) SetBool(b bool) {
	if b {
		*v = Value{kind: KindTrue}
	} else {
		*v = Value{kind: KindFalse}
	}
}

func (v *Value) SetInt(i int64) { *v = Value{kind: KindInt, i: i} }

func (v *Value) SetUint(u uint64) { *v = Value{kind: KindUint, u: u} }

func (v *Value) SetDouble(f float64, originalText string) {
	*v = Value{kind: KindDouble, f: f, ftx: originalText}
}

func (v *Value) SetString(s string, noEscape bool) {
	*v = Value{kind: KindString, s: s, sNoEscape: noEscape}
}

// DeepCopy produces an independent copy of v, cloning every interned
// handle it holds through kt and charging the copy's byte cost to sess
// (spec §4.3: "a deep-copy constructor parameterised by an allocator").
func (v *Value) DeepCopy(kt *keytable.Table, sess *alloc.Session) *Value {
	out := &Value{kind: v.kind, i: v.i, u: v.u, f: v.f, ftx: v.ftx, s: v.s, sNoEscape: v.sNoEscape}
	sess.Add(v.shallowSize())
	switch v.kind {
	case KindArray:
		out.arr = v.arr.deepCopy(kt, sess)
	case KindObject:
		out.obj = v.obj.deepCopy(kt, sess)
	}
	return out
}

// shallowSize estimates the byte cost of this node alone (excluding
// child containers, which charge themselves), standing in for the
// allocator's alloc_size() query (spec §4.1).
func (v *Value) shallowSize() int {
	const headerSize = 24
	switch v.kind {
	case KindString:
		if len(v.s) <= smallStringMax {
			return headerSize
		}
		return headerSize + len(v.s)
	case KindDouble:
		return headerSize + len(v.ftx)
	default:
		return headerSize
	}
}

// smallStringMax is the short-string-optimisation inline threshold.
const smallStringMax = 15

// Equal reports deep value equivalence (spec testable property 1: JSON
// value equivalence after a parse/serialise round trip).
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		// true/false differ in kind but are both "boolean"; equivalence
		// here is strict value equality, not type-class equality.
		return false
	}
	switch a.kind {
	case KindNull, KindTrue, KindFalse:
		return true
	case KindInt:
		return a.i == b.i
	case KindUint:
		return a.u == b.u
	case KindDouble:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindArray:
		return a.arr.equal(b.arr)
	case KindObject:
		return a.obj.equal(b.obj)
	}
	return false
}

// compareClass buckets null/bool/string/number for the selector's
// comparison typing rules (spec §4.5).
func compareClass(v *Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindTrue, KindFalse:
		return "boolean"
	case KindInt, KindUint, KindDouble:
		return "number"
	case KindString:
		return "string"
	default:
		return "container"
	}
}

// Compare implements the selector's comparison typing (spec §4.5):
// null==null, bool==bool by value, string<=>string lexicographically,
// number<=>number numerically; mixed non-boolean types are unequal and
// ordered comparisons are false. Returns (cmp, comparable) where cmp is
// -1/0/1 and comparable is false when only equality/inequality (not
// ordering) is meaningful or types don't align.
func Compare(a, b *Value) (cmp int, comparable bool) {
	ca, cb := compareClass(a), compareClass(b)
	if ca != cb {
		return 0, false // unequal, unordered — callers treat != as true, == as false
	}
	switch ca {
	case "null":
		return 0, true
	case "boolean":
		if a.Bool() == b.Bool() {
			return 0, true
		}
		return 1, false // equal-only comparison fails; ordering undefined
	case "string":
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	case "number":
		fa, fb := a.Float64(), b.Float64()
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// TypeName returns the RESP-visible type name for the TYPE command.
func (v *Value) TypeName() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindTrue, KindFalse:
		return "boolean"
	case KindInt, KindUint:
		return "integer"
	case KindDouble:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Depth returns the maximum nesting depth rooted at v (spec §4.7
// max_path_limit accounting, §4.8 max-depth statistic).
func (v *Value) Depth() int {
	switch v.kind {
	case KindArray:
		d := 0
		for _, c := range v.arr.items {
			if cd := c.Depth(); cd > d {
				d = cd
			}
		}
		return d + 1
	case KindObject:
		d := 0
		for _, m := range v.obj.order {
			if cd := m.Val.Depth(); cd > d {
				d = cd
			}
		}
		return d + 1
	default:
		return 0
	}
}

// NumFields returns the total member/element count reachable from v,
// counting v itself as one field when it is a scalar (DEBUG NUMFIELDS).
func (v *Value) NumFields() int {
	switch v.kind {
	case KindArray:
		n := 0
		for _, c := range v.arr.items {
			n += c.NumFields()
		}
		return n
	case KindObject:
		n := 0
		for _, m := range v.obj.order {
			n += m.Val.NumFields()
		}
		return n
	default:
		return 1
	}
}

// MemSize estimates v's total byte footprint, matching what a mutation
// operator would have charged the accounting allocator for this subtree
// (DEBUG MEMORY / JSON.DEBUG MEMORY).
func (v *Value) MemSize() int {
	n := v.shallowSize()
	switch v.kind {
	case KindArray:
		for _, c := range v.arr.items {
			n += c.MemSize()
		}
	case KindObject:
		for _, m := range v.obj.order {
			n += 24 // member record overhead (name handle + pointer)
			n += m.Val.MemSize()
		}
	}
	return n
}

func (v *Value) String() string {
	return fmt.Sprintf("Value{%s}", v.kind)
}

// ParseFloatText canonicalises textual doubles for arithmetic promotion
// (spec §4.6 overflow-to-double rule).
func ParseFloatText(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
