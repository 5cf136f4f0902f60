// Package selector implements the path lexer and evaluator (spec §4.5):
// the legacy single-result dialect and the extended multi-result
// dialect, both compiled to the same Step-sequence AST and walked by
// one evaluator that drives read, update, insert, and delete.
//
// Unlike the source's fused token-at-a-time Lexer+Selector, this
// package compiles path text to an AST once (Parse) and evaluates the
// AST separately (Evaluator.Run) — the idiomatic Go split of parse and
// interpret, chosen deliberately; the grammar, limits, and evaluation
// semantics below are unchanged from the source (see DESIGN.md).
package selector

// Dialect distinguishes the two path syntaxes (spec §4.5).
type Dialect int

const (
	Legacy Dialect = iota
	Extended
)

// Path is a compiled query: a dialect tag plus an ordered sequence of
// steps to walk from the document root.
type Path struct {
	Dialect Dialect
	Steps   []Step
	Raw     string
}

// StepKind tags the kind of qualifier a Step applies at one level of the
// tree.
type StepKind int

const (
	StepMember StepKind = iota // .name or ["name"]
	StepWildcard               // * or [*]
	StepIndex                  // [N]
	StepSlice                  // [start:end:step]
	StepUnionIndex              // [i1,i2,...]
	StepUnionName               // ["n1","n2",...]
	StepFilter                  // [?(expr)]
)

// Slice holds python-like slice bounds; nil components are "unset" (spec
// §4.5 grammar: `[Int] ':' [Int] [':' [Int]]`).
type Slice struct {
	Start *int
	End   *int
	Step  *int
}

// Step is one qualifier in a compiled path, optionally preceded by
// recursive descent (spec grammar `'..' Path`).
type Step struct {
	Kind      StepKind
	Recursive bool

	Name     string   // StepMember
	Names    []string // StepUnionName
	Index    int       // StepIndex
	Indices  []int     // StepUnionIndex
	Slice    Slice     // StepSlice
	Filter   *FilterExpr // StepFilter
}
