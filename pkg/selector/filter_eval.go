package selector

import (
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// evalFilter evaluates expr against ctx, the candidate value `@` refers
// to in this filter application (spec §4.5).
func (e *Evaluator) evalFilter(expr *FilterExpr, ctx *value.Value) (bool, error) {
	for _, and := range expr.Or {
		ok, err := e.evalAnd(&and, ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) evalAnd(and *AndClause, ctx *value.Value) (bool, error) {
	for _, f := range and.Factors {
		ok, err := e.evalFactor(&f, ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) evalFactor(f *Factor, ctx *value.Value) (bool, error) {
	if f.Sub != nil {
		return e.evalFilter(f.Sub, ctx)
	}
	if f.ExistsAt {
		return ctx != nil, nil
	}
	if f.Existence != nil {
		v, _ := e.resolveMemberRef(ctx, f.Existence)
		return v != nil, nil
	}
	if !f.HasOp {
		return false, nil
	}
	left, err := e.resolveOperand(f.Left, ctx)
	if err != nil {
		return false, err // `$`-rooted sub-selector failure aborts the whole path
	}
	right, err := e.resolveOperand(f.Right, ctx)
	if err != nil {
		return false, err
	}
	if left == nil || right == nil {
		return false, nil // missing `@`-relative operand: predicate false, doesn't abort the run
	}

	cmp, comparable := value.Compare(left, right)
	switch f.Op {
	case CmpEq:
		return comparable && cmp == 0, nil
	case CmpNe:
		return !(comparable && cmp == 0), nil
	case CmpLt:
		return comparable && cmp < 0, nil
	case CmpLe:
		return comparable && cmp <= 0, nil
	case CmpGt:
		return comparable && cmp > 0, nil
	case CmpGe:
		return comparable && cmp >= 0, nil
	}
	return false, nil
}

// resolveOperand resolves one side of a comparison to a concrete value:
// a literal, `@`+MemberRef against ctx, or a `$`-rooted sub-selector
// walked from the document root (spec §4.5) — `$` always means the
// document root, never the filter candidate ctx resolves against.
func (e *Evaluator) resolveOperand(op *Operand, ctx *value.Value) (*value.Value, error) {
	if op.Literal != nil {
		return op.Literal, nil
	}
	if op.IsAt {
		return e.resolveMemberRef(ctx, op.MemberRef)
	}
	if op.SubPath != nil {
		rs, err := e.Run(e.root, op.SubPath, ModeRead)
		if err != nil {
			return nil, err
		}
		if len(rs.Matches) != 1 {
			return nil, jsonerr.New(jsonerr.KindInvalidPath, "filter sub-selector must resolve to exactly one value")
		}
		return rs.Matches[0].Value, nil
	}
	return nil, nil
}

func (e *Evaluator) resolveMemberRef(ctx *value.Value, refs []MemberRefStep) (*value.Value, error) {
	cur := ctx
	for _, r := range refs {
		if cur == nil {
			return nil, nil
		}
		if r.IsIndex {
			if !cur.IsArray() {
				return nil, nil
			}
			cur = cur.Array().At(r.Index)
			continue
		}
		if !cur.IsObject() {
			return nil, nil
		}
		h := e.kt.MakeHandle([]byte(r.Name), false)
		cur = cur.Object().Find(h)
		e.kt.Destroy(h)
	}
	return cur, nil
}
