package selector

import (
	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// Mode selects what Run does with each value it reaches (spec §4.5,
// §4.6): a pure read, or one of the write variants that additionally
// resolve an insert path when the terminal member is missing.
type Mode int

const (
	ModeRead Mode = iota
	ModeInsert
	ModeUpdate
	ModeInsertOrUpdate
	ModeDelete
)

// Result is one matched location: the live value pointer (for read or
// in-place mutation) plus the normalized path text that produced it
// (spec §3.4's "(value-pointer, pointer-path) pairs"), plus enough
// parent context (spec §4.6 mutation operators) to replace or remove
// this value in place without re-walking the path.
type Result struct {
	Value *value.Value
	Path  string

	Parent     *value.Value // nil only for the document root itself
	MemberName string       // set when Parent is an object
	IsMember   bool
	Index      int // set when Parent is an array
}

// InsertPath describes a location the path would create on a write: the
// container to insert into, and either the member name (object) or the
// index (array) the new value belongs at. Only produced in write modes
// when the terminal step has no existing match.
type InsertPath struct {
	Parent    *value.Value // container value (object or array)
	Name      string       // set when Parent is an object
	IsMember  bool
	Index     int // set when Parent is an array
	Path      string
}

// ResultSet is the output of one Run: existing matches plus, for write
// modes, the insertion points discovered along the way (spec §4.5 "two
// result classes": matched values and candidate insert locations).
type ResultSet struct {
	Matches []Result
	Inserts []InsertPath
}

// Evaluator walks one compiled Path against a document root, threading
// the interning table and allocation session every mutation needs (spec
// §4.5, §4.1). One Evaluator is built per command invocation; it carries
// no state across Run calls.
type Evaluator struct {
	kt     *keytable.Table
	sess   *alloc.Session
	limits Limits

	root *value.Value // document root, set on the first Run; `$`-rooted filter sub-selectors walk from here, never from the filter candidate
}

func NewEvaluator(kt *keytable.Table, sess *alloc.Session, limits Limits) *Evaluator {
	return &Evaluator{kt: kt, sess: sess, limits: limits}
}

// frame is one step of the walk: the live value, the normalized path
// text accumulated to reach it (spec §3.4), and the parent context
// needed to replace/remove it without re-walking.
type frame struct {
	val  *value.Value
	path string

	parent     *value.Value
	memberName string
	isMember   bool
	index      int
}

// Run walks p against root in mode, returning every match (and, for
// write modes, every viable insertion point). Legacy-dialect paths stop
// at the first match (spec §4.5: "the legacy dialect resolves to at
// most one result"); extended-dialect paths collect every match,
// deduplicated by first occurrence under recursive descent (spec
// testable property 6).
func (e *Evaluator) Run(root *value.Value, p *Path, mode Mode) (*ResultSet, error) {
	if e.root == nil {
		e.root = root
	}
	frames := []frame{{val: root, path: "$"}}
	seen := make(map[*value.Value]bool)

	rs := &ResultSet{}
	for i, step := range p.Steps {
		isLast := i == len(p.Steps)-1
		var next []frame
		for _, f := range frames {
			out, ins, err := e.applyStep(f, step, mode, isLast)
			if err != nil {
				if jsonerr.IsSyntax(firstKind(err)) {
					return nil, err
				}
				// branch-local error: drop this branch, keep others alive.
				continue
			}
			if isLast {
				rs.Inserts = append(rs.Inserts, ins...)
			}
			for _, nf := range out {
				if seen[nf.val] {
					continue
				}
				if p.Dialect == Legacy && len(next) > 0 {
					break
				}
				next = append(next, nf)
			}
		}
		frames = next
		if p.Dialect == Legacy && len(frames) > 1 {
			frames = frames[:1]
		}
	}

	for _, f := range frames {
		if seen[f.val] {
			continue
		}
		seen[f.val] = true
		rs.Matches = append(rs.Matches, Result{
			Value: f.val, Path: f.path,
			Parent: f.parent, MemberName: f.memberName, IsMember: f.isMember, Index: f.index,
		})
	}
	if p.Dialect == Legacy && len(rs.Matches) > 1 {
		rs.Matches = rs.Matches[:1]
	}
	return rs, nil
}

func firstKind(err error) jsonerr.Kind {
	k, _ := jsonerr.As(err)
	return k
}

// applyStep expands one frame through one step, returning the resulting
// frames and (on the terminal step of a write-mode run, when nothing
// matched) candidate insertion points.
func (e *Evaluator) applyStep(f frame, step Step, mode Mode, isLast bool) ([]frame, []InsertPath, error) {
	if step.Recursive {
		return e.applyRecursive(f, step, mode, isLast)
	}
	return e.applyDirect(f, step, mode, isLast)
}

// applyRecursive walks every descendant of f (pre-order, f itself
// included) and applies step non-recursively at each (spec §4.5 `..`
// semantics).
func (e *Evaluator) applyRecursive(f frame, step Step, mode Mode, isLast bool) ([]frame, []InsertPath, error) {
	var out []frame
	var ins []InsertPath

	var walk func(fr frame) error
	walk = func(fr frame) error {
		direct := step
		direct.Recursive = false
		res, i, err := e.applyDirect(fr, direct, mode, isLast)
		if err != nil {
			if jsonerr.IsSyntax(firstKind(err)) {
				return err
			}
			// no match at this node: keep descending into its children.
		} else {
			out = append(out, res...)
			ins = append(ins, i...)
		}

		switch fr.val.Kind() {
		case value.KindArray:
			for idx, c := range fr.val.Array().Items() {
				cf := frame{val: c, path: indexPath(fr.path, idx), parent: fr.val, index: idx}
				if err := walk(cf); err != nil {
					return err
				}
			}
		case value.KindObject:
			for _, m := range fr.val.Object().Order() {
				cf := frame{val: m.Val, path: memberPath(fr.path, m.Name.String()), parent: fr.val, memberName: m.Name.String(), isMember: true}
				if err := walk(cf); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(f); err != nil {
		return nil, nil, err
	}
	return out, ins, nil
}

func (e *Evaluator) applyDirect(f frame, step Step, mode Mode, isLast bool) ([]frame, []InsertPath, error) {
	switch step.Kind {
	case StepMember:
		return e.stepMember(f, step.Name, mode, isLast)
	case StepUnionName:
		var out []frame
		for _, n := range step.Names {
			r, _, err := e.stepMember(f, n, mode, false)
			if err != nil {
				continue
			}
			out = append(out, r...)
		}
		return out, nil, nil
	case StepWildcard:
		return e.stepWildcard(f)
	case StepIndex:
		return e.stepIndex(f, step.Index)
	case StepUnionIndex:
		var out []frame
		for _, idx := range step.Indices {
			r, _, err := e.stepIndex(f, idx)
			if err != nil {
				continue
			}
			out = append(out, r...)
		}
		return out, nil, nil
	case StepSlice:
		return e.stepSlice(f, step.Slice)
	case StepFilter:
		return e.stepFilter(f, step.Filter)
	}
	return nil, nil, jsonerr.New(jsonerr.KindInvalidPath, "unknown step kind")
}

func (e *Evaluator) stepMember(f frame, name string, mode Mode, isLast bool) ([]frame, []InsertPath, error) {
	if !f.val.IsObject() {
		if mode == ModeRead {
			return nil, nil, jsonerr.New(jsonerr.KindPathNonExistent, "not an object")
		}
		return nil, nil, jsonerr.New(jsonerr.KindWrongType, "expected object at %s", f.path)
	}
	h := e.kt.MakeHandle([]byte(name), false)
	defer e.kt.Destroy(h)

	if mv := f.val.Object().Find(h); mv != nil {
		return []frame{{val: mv, path: memberPath(f.path, name), parent: f.val, memberName: name, isMember: true}}, nil, nil
	}
	if isLast && mode != ModeRead && mode != ModeDelete {
		return nil, []InsertPath{{Parent: f.val, Name: name, IsMember: true, Path: memberPath(f.path, name)}}, nil
	}
	return nil, nil, jsonerr.New(jsonerr.KindPathNonExistent, "member %q not found", name)
}

func (e *Evaluator) stepWildcard(f frame) ([]frame, []InsertPath, error) {
	switch f.val.Kind() {
	case value.KindArray:
		items := f.val.Array().Items()
		out := make([]frame, 0, len(items))
		for i, c := range items {
			out = append(out, frame{val: c, path: indexPath(f.path, i), parent: f.val, index: i})
		}
		return out, nil, nil
	case value.KindObject:
		members := f.val.Object().Order()
		out := make([]frame, 0, len(members))
		for _, m := range members {
			out = append(out, frame{val: m.Val, path: memberPath(f.path, m.Name.String()), parent: f.val, memberName: m.Name.String(), isMember: true})
		}
		return out, nil, nil
	}
	return nil, nil, jsonerr.New(jsonerr.KindPathNonExistent, "wildcard on scalar")
}

func (e *Evaluator) stepIndex(f frame, idx int) ([]frame, []InsertPath, error) {
	if !f.val.IsArray() {
		return nil, nil, jsonerr.New(jsonerr.KindWrongType, "expected array at %s", f.path)
	}
	arr := f.val.Array()
	n := idx
	if n < 0 {
		n += arr.Len()
	}
	v := arr.At(n)
	if v == nil {
		return nil, nil, jsonerr.New(jsonerr.KindIndexOutOfBounds, "index %d out of bounds", idx)
	}
	return []frame{{val: v, path: indexPath(f.path, n), parent: f.val, index: n}}, nil, nil
}

func (e *Evaluator) stepSlice(f frame, sl Slice) ([]frame, []InsertPath, error) {
	if !f.val.IsArray() {
		return nil, nil, jsonerr.New(jsonerr.KindWrongType, "expected array at %s", f.path)
	}
	arr := f.val.Array()
	n := arr.Len()
	step := 1
	if sl.Step != nil {
		step = *sl.Step
	}
	start, end := 0, n
	if step > 0 {
		if sl.Start != nil {
			start = normalizeIndex(*sl.Start, n)
		}
		if sl.End != nil {
			end = normalizeIndex(*sl.End, n)
		}
	} else {
		start, end = n-1, -1
		if sl.Start != nil {
			start = normalizeIndex(*sl.Start, n)
		}
		if sl.End != nil {
			end = normalizeIndex(*sl.End, n)
		}
	}

	var out []frame
	if step > 0 {
		for i := start; i < end && i < n; i += step {
			if i < 0 {
				continue
			}
			out = append(out, frame{val: arr.At(i), path: indexPath(f.path, i), parent: f.val, index: i})
		}
	} else {
		for i := start; i > end && i >= 0; i += step {
			if i >= n {
				continue
			}
			out = append(out, frame{val: arr.At(i), path: indexPath(f.path, i), parent: f.val, index: i})
		}
	}
	return out, nil, nil
}

func normalizeIndex(i, n int) int {
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

func (e *Evaluator) stepFilter(f frame, expr *FilterExpr) ([]frame, []InsertPath, error) {
	var candidates []frame
	switch f.val.Kind() {
	case value.KindArray:
		for i, c := range f.val.Array().Items() {
			candidates = append(candidates, frame{val: c, path: indexPath(f.path, i), parent: f.val, index: i})
		}
	case value.KindObject:
		for _, m := range f.val.Object().Order() {
			candidates = append(candidates, frame{val: m.Val, path: memberPath(f.path, m.Name.String()), parent: f.val, memberName: m.Name.String(), isMember: true})
		}
	default:
		return nil, nil, jsonerr.New(jsonerr.KindPathNonExistent, "filter on scalar")
	}

	var out []frame
	for _, c := range candidates {
		ok, err := e.evalFilter(expr, c.val)
		if err != nil {
			if jsonerr.IsSyntax(firstKind(err)) {
				return nil, nil, err
			}
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil, nil
}

func memberPath(parent, name string) string {
	return parent + "[" + quoteName(name) + "]"
}

func indexPath(parent string, idx int) string {
	return parent + "[" + itoa(idx) + "]"
}

func quoteName(s string) string {
	return "\"" + s + "\""
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
