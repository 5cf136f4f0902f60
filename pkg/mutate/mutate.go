// Package mutate implements the document mutation operators (spec
// §4.6) on top of pkg/selector: set/del/incr/mult/toggle/strappend/
// object and array operators/clear/type, plus the introspection
// helpers (memsize/numfields/depth) the DEBUG surface exposes.
package mutate

import (
	"sort"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/selector"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// Mutator applies write operators against a document root, sharing one
// interning table and accounting session across every call the host
// issues for a single command (spec §4.1, §4.2).
type Mutator struct {
	kt     *keytable.Table
	sess   *alloc.Session
	limits selector.Limits

	// MaxDocumentSize bounds the root's MemSize() after a write (spec
	// §6.4); zero disables the check.
	MaxDocumentSize int
}

func New(kt *keytable.Table, sess *alloc.Session, limits selector.Limits) *Mutator {
	return &Mutator{kt: kt, sess: sess, limits: limits}
}

func (m *Mutator) evaluator() *selector.Evaluator {
	return selector.NewEvaluator(m.kt, m.sess, m.limits)
}

// compile parses pathText honoring m.limits.
func (m *Mutator) compile(pathText string) (*selector.Path, error) {
	return selector.Parse(pathText, m.limits)
}

func (m *Mutator) checkSize(root *value.Value) error {
	if m.MaxDocumentSize > 0 && root.MemSize() > m.MaxDocumentSize {
		return jsonerr.New(jsonerr.KindDocumentSizeLimit, "document exceeds max_document_size %d", m.MaxDocumentSize)
	}
	return nil
}

// Set implements JSON.SET: parse jsonText to a value and place it at
// every location pathText resolves to (existing matches) or, absent a
// match, at the single insertion point a write-mode run discovers
// (spec §4.6 "set creates intermediate containers: never — the parent
// must already exist").
func (m *Mutator) Set(root *value.Value, pathText, jsonText string) (int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return 0, err
	}
	parser := jsonio.NewParser(m.kt, m.sess, jsonio.DefaultMaxRecursionDepth)
	newVal, _, err := parser.Parse(jsonText)
	if err != nil {
		return 0, err
	}

	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeInsertOrUpdate)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, match := range rs.Matches {
		m.replaceInPlace(match, newVal)
		n++
		newVal = newVal.DeepCopy(m.kt, m.sess) // each location needs its own independent tree
	}
	for _, ins := range rs.Inserts {
		m.insertAt(ins, newVal)
		n++
		newVal = newVal.DeepCopy(m.kt, m.sess)
	}
	if err := m.checkSize(root); err != nil {
		return n, err
	}
	return n, nil
}

// replaceInPlace overwrites the member/element this result refers to
// with newVal, releasing the old value's accounted bytes first.
func (m *Mutator) replaceInPlace(r selector.Result, newVal *value.Value) {
	if r.Parent == nil {
		*r.Value = *newVal
		return
	}
	if r.IsMember {
		h := m.kt.MakeHandle([]byte(r.MemberName), false)
		r.Parent.Object().Add(h, newVal, m.kt, m.sess)
		return
	}
	r.Parent.Array().Pop(r.Index, m.sess)
	r.Parent.Array().Insert(r.Index, []*value.Value{newVal}, m.sess)
}

func (m *Mutator) insertAt(ins selector.InsertPath, newVal *value.Value) {
	if ins.IsMember {
		h := m.kt.MakeHandle([]byte(ins.Name), false)
		ins.Parent.Object().Add(h, newVal, m.kt, m.sess)
		return
	}
	ins.Parent.Array().Push(newVal, m.sess)
}

// Del implements JSON.DEL: removes every location pathText resolves
// to, returning the count removed.
func (m *Mutator) Del(root *value.Value, pathText string) (int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return 0, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeDelete)
	if err != nil {
		return 0, err
	}
	n := 0
	// delete array elements high-index-first so earlier indices in the
	// same result set stay valid.
	byArrayThenObject := append([]selector.Result{}, rs.Matches...)
	sort.SliceStable(byArrayThenObject, func(i, j int) bool {
		return byArrayThenObject[i].Index < byArrayThenObject[j].Index
	})
	for i := len(byArrayThenObject) - 1; i >= 0; i-- {
		r := byArrayThenObject[i]
		if r.Parent == nil {
			continue // can't delete the document root itself
		}
		if r.IsMember {
			h := m.kt.MakeHandle([]byte(r.MemberName), false)
			if r.Parent.Object().Erase(h, m.kt, m.sess) {
				n++
			}
			m.kt.Destroy(h)
			continue
		}
		if r.Parent.Array().Pop(r.Index, m.sess) != nil {
			n++
		}
	}
	return n, nil
}

// numericOp applies f to every matched numeric value in place,
// returning the new values (spec §4.6 NUMINCRBY/NUMMULTBY semantics:
// int+int stays int unless it overflows, at which point it promotes to
// double).
func (m *Mutator) numericOp(root *value.Value, pathText string, apply func(cur *value.Value) (*value.Value, error)) ([]*value.Value, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	out := make([]*value.Value, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsNumber() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "value at %s is not a number", match.Path)
		}
		nv, err := apply(match.Value)
		if err != nil {
			return nil, err
		}
		*match.Value = *nv
		out = append(out, match.Value)
	}
	return out, nil
}

// IncrBy implements JSON.NUMINCRBY.
func (m *Mutator) IncrBy(root *value.Value, pathText string, by *value.Value) ([]*value.Value, error) {
	return m.numericOp(root, pathText, func(cur *value.Value) (*value.Value, error) {
		return addNumbers(cur, by)
	})
}

// MultBy implements JSON.NUMMULTBY.
func (m *Mutator) MultBy(root *value.Value, pathText string, by *value.Value) ([]*value.Value, error) {
	return m.numericOp(root, pathText, func(cur *value.Value) (*value.Value, error) {
		return multNumbers(cur, by)
	})
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)

// addNumbers implements the overflow-to-double promotion rule (spec
// §4.6): int+int stays int unless the sum overflows int64, in which
// case it promotes to a double.
func addNumbers(a, b *value.Value) (*value.Value, error) {
	if a.IsDouble() || b.IsDouble() {
		return value.Double(a.Float64()+b.Float64(), ""), nil
	}
	x, y := a.Int(), b.Int()
	sum := x + y
	if (y > 0 && sum < x) || (y < 0 && sum > x) {
		return value.Double(float64(x)+float64(y), ""), nil
	}
	return value.Int(sum), nil
}

func multNumbers(a, b *value.Value) (*value.Value, error) {
	if a.IsDouble() || b.IsDouble() {
		return value.Double(a.Float64()*b.Float64(), ""), nil
	}
	x, y := a.Int(), b.Int()
	if x == 0 || y == 0 {
		return value.Int(0), nil
	}
	prod := x * y
	if prod/y != x {
		return value.Double(float64(x)*float64(y), ""), nil
	}
	return value.Int(prod), nil
}

// Toggle implements JSON.TOGGLE: flips every matched boolean in place.
func (m *Mutator) Toggle(root *value.Value, pathText string) ([]bool, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsBool() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "value at %s is not a boolean", match.Path)
		}
		nv := !match.Value.Bool()
		match.Value.SetBool(nv)
		out = append(out, nv)
	}
	return out, nil
}

// StrAppend implements JSON.STRAPPEND.
func (m *Mutator) StrAppend(root *value.Value, pathText, suffix string) ([]int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsString() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "value at %s is not a string", match.Path)
		}
		newStr := match.Value.Str() + suffix
		m.sess.Add(len(suffix))
		match.Value.SetString(newStr, false)
		out = append(out, len(newStr))
	}
	return out, nil
}

// ObjLen implements JSON.OBJLEN.
func (m *Mutator) ObjLen(root *value.Value, pathText string) ([]int, error) {
	return m.readEach(root, pathText, func(v *value.Value) (int, error) {
		if !v.IsObject() {
			return 0, jsonerr.New(jsonerr.KindWrongType, "not an object")
		}
		return v.Object().Len(), nil
	})
}

// ObjKeys implements JSON.OBJKEYS.
func (m *Mutator) ObjKeys(root *value.Value, pathText string) ([][]string, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeRead)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsObject() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "not an object")
		}
		out = append(out, match.Value.Object().Keys())
	}
	return out, nil
}

// ArrLen implements JSON.ARRLEN.
func (m *Mutator) ArrLen(root *value.Value, pathText string) ([]int, error) {
	return m.readEach(root, pathText, func(v *value.Value) (int, error) {
		if !v.IsArray() {
			return 0, jsonerr.New(jsonerr.KindWrongType, "not an array")
		}
		return v.Array().Len(), nil
	})
}

// ArrAppend implements JSON.ARRAPPEND.
func (m *Mutator) ArrAppend(root *value.Value, pathText string, jsonValues []string) ([]int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsArray() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "not an array")
		}
		for _, jt := range jsonValues {
			parser := jsonio.NewParser(m.kt, m.sess, jsonio.DefaultMaxRecursionDepth)
			nv, _, err := parser.Parse(jt)
			if err != nil {
				return nil, err
			}
			match.Value.Array().Push(nv, m.sess)
		}
		out = append(out, match.Value.Array().Len())
	}
	return out, nil
}

// ArrPop implements JSON.ARRPOP, supporting python-like negative
// indices (spec §4.6).
func (m *Mutator) ArrPop(root *value.Value, pathText string, index int) ([]*value.Value, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	out := make([]*value.Value, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsArray() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "not an array")
		}
		if match.Value.Array().Len() == 0 {
			return nil, jsonerr.New(jsonerr.KindEmptyContainer, "array at %s is empty", match.Path)
		}
		out = append(out, match.Value.Array().Pop(index, m.sess))
	}
	return out, nil
}

// ArrInsert implements JSON.ARRINSERT.
func (m *Mutator) ArrInsert(root *value.Value, pathText string, index int, jsonValues []string) ([]int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	var values []*value.Value
	for _, jt := range jsonValues {
		parser := jsonio.NewParser(m.kt, m.sess, jsonio.DefaultMaxRecursionDepth)
		nv, _, err := parser.Parse(jt)
		if err != nil {
			return nil, err
		}
		values = append(values, nv)
	}
	out := make([]int, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsArray() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "not an array")
		}
		n := index
		if n < 0 {
			n += match.Value.Array().Len()
		}
		cloned := make([]*value.Value, len(values))
		for i, v := range values {
			cloned[i] = v.DeepCopy(m.kt, m.sess)
		}
		match.Value.Array().Insert(n, cloned, m.sess)
		out = append(out, match.Value.Array().Len())
	}
	return out, nil
}

// ArrTrim implements JSON.ARRTRIM: keeps the closed range [start, stop]
// (inclusive stop, matching the source's Redis-style semantics), empty
// if the range is invalid.
func (m *Mutator) ArrTrim(root *value.Value, pathText string, start, stop int) ([]int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsArray() {
			return nil, jsonerr.New(jsonerr.KindWrongType, "not an array")
		}
		arr := match.Value.Array()
		n := arr.Len()
		s := normalizeTrimIndex(start, n)
		e := normalizeTrimIndex(stop, n) + 1
		arr.Erase(e, n, m.sess)
		arr.Erase(0, s, m.sess)
		out = append(out, arr.Len())
	}
	return out, nil
}

func normalizeTrimIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// ArrIndex implements JSON.ARRINDEX. stop==0 is the source's verbatim
// quirk (spec §4.6, carried over unchanged): it means "search to the
// end", not "search zero elements" — a literal 0 default is
// indistinguishable from "unset" in the source's C signature, and this
// port keeps that exact behavior rather than silently fixing it.
func (m *Mutator) ArrIndex(root *value.Value, pathText string, needleJSON string, start, stop int) ([]int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	parser := jsonio.NewParser(m.kt, m.sess, jsonio.DefaultMaxRecursionDepth)
	needle, _, err := parser.Parse(needleJSON)
	if err != nil {
		return nil, err
	}

	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeRead)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		if !match.Value.IsArray() {
			out = append(out, -1) // extended dialect reports wrong-type as "not found", not an error
			continue
		}
		items := match.Value.Array().Items()
		n := len(items)
		s := normalizeTrimIndex(start, n)
		e := n
		if stop != 0 {
			e = normalizeTrimIndex(stop, n)
		}
		found := -1
		for i := s; i < e && i < n; i++ {
			if value.Equal(items[i], needle) {
				found = i
				break
			}
		}
		out = append(out, found)
	}
	return out, nil
}

// Clear implements JSON.CLEAR: empties every matched array/object in
// place (scalars are left untouched, per spec §4.6).
func (m *Mutator) Clear(root *value.Value, pathText string) (int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return 0, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeUpdate)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, match := range rs.Matches {
		switch match.Value.Kind() {
		case value.KindArray:
			match.Value.Array().Clear(m.sess)
			n++
		case value.KindObject:
			match.Value.Object().RemoveAll(m.kt, m.sess)
			n++
		}
	}
	return n, nil
}

// Type implements JSON.TYPE.
func (m *Mutator) Type(root *value.Value, pathText string) ([]string, error) {
	return m.readEachAny(root, pathText, func(v *value.Value) string { return v.TypeName() })
}

// StrLen implements JSON.STRLEN.
func (m *Mutator) StrLen(root *value.Value, pathText string) ([]int, error) {
	return m.readEach(root, pathText, func(v *value.Value) (int, error) {
		if !v.IsString() {
			return 0, jsonerr.New(jsonerr.KindWrongType, "not a string")
		}
		return len(v.Str()), nil
	})
}

// MemSize returns DEBUG MEMORY's per-match byte estimate.
func (m *Mutator) MemSize(root *value.Value, pathText string) ([]int, error) {
	return m.readEach(root, pathText, func(v *value.Value) (int, error) { return v.MemSize(), nil })
}

// NumFields returns DEBUG NUMFIELDS's per-match field count.
func (m *Mutator) NumFields(root *value.Value, pathText string) ([]int, error) {
	return m.readEach(root, pathText, func(v *value.Value) (int, error) { return v.NumFields(), nil })
}

// Depth returns DEBUG DEPTH's per-match nesting depth.
func (m *Mutator) Depth(root *value.Value, pathText string) ([]int, error) {
	return m.readEach(root, pathText, func(v *value.Value) (int, error) { return v.Depth(), nil })
}

func (m *Mutator) readEach(root *value.Value, pathText string, f func(*value.Value) (int, error)) ([]int, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeRead)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		n, err := f(match.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *Mutator) readEachAny(root *value.Value, pathText string, f func(*value.Value) string) ([]string, error) {
	p, err := m.compile(pathText)
	if err != nil {
		return nil, err
	}
	ev := m.evaluator()
	rs, err := ev.Run(root, p, selector.ModeRead)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rs.Matches))
	for _, match := range rs.Matches {
		out = append(out, f(match.Value))
	}
	return out, nil
}
