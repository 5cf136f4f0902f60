package selector

import (
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// CmpOp is a filter comparison operator (spec §4.5 grammar `CmpOp`).
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// MemberRefStep is one `.name` / `[name]` / `[idx]` accessor; a chain of
// them is applied to the filter's current context value (spec grammar
// `MemberRef`).
type MemberRefStep struct {
	Name      string
	Index     int
	IsIndex   bool
}

// Operand is one side of a filter comparison: either `@` (optionally
// followed by a MemberRef), a literal, or a `$`-rooted sub-selector path
// that must resolve to exactly one scalar (spec §4.5).
type Operand struct {
	IsAt       bool
	MemberRef  []MemberRefStep
	Literal    *value.Value
	SubPath    *Path // non-nil when the operand is a `$...` sub-selector
}

// FilterExpr is a boolean expression tree: Or of Ands of Factors (spec
// grammar `Expr := Term ('||' Term)*`, `Term := Factor ('&&' Factor)*`).
type FilterExpr struct {
	Or []AndClause
}

type AndClause struct {
	Factors []Factor
}

// Factor is one leaf predicate: a parenthesised sub-expression, a
// comparison, or a bare `@`-memberref existence test.
type Factor struct {
	Sub        *FilterExpr // '(' Expr ')'
	Existence  []MemberRefStep // '@' MemberRef with no comparison
	ExistsAt   bool            // bare '@' with no MemberRef and no comparison
	Left       *Operand
	Op         CmpOp
	HasOp      bool
	Right      *Operand
}
