// Package jsonerr defines the flat error enumeration shared by every
// component of the document engine, and the tag-prefixed messages the
// host surfaces to clients.
package jsonerr

import "fmt"

// Kind is the single flat error enumeration used across the engine.
type Kind int

const (
	KindNone Kind = iota

	KindWrongArity
	KindParseError
	KindNXXXMutuallyExclusive

	// Path syntax sub-kinds.
	KindInvalidPath
	KindInvalidMember
	KindInvalidNumber
	KindInvalidIdentifier
	KindInvalidDotSequence
	KindEmptyExpression
	KindIndexNotNumber
	KindZeroStep
	KindInvalidWildcard
	KindDollarOnNonRoot

	KindPathNonExistent
	KindKeyNotFound
	KindWrongType
	KindAdditionOverflow
	KindMultiplicationOverflow
	KindEmptyContainer
	KindIndexOutOfBounds
	KindUnknownSubcommand
	KindPthreadInit
	KindInvalidRDBFormat

	KindDocumentSizeLimit
	KindPathDepthLimit
	KindParserDepthLimit
	KindRecursiveDescentTokenLimit
	KindQueryStringSizeLimit
)

// syntaxKinds terminate every fork of a selector run; all other kinds
// terminate only the branch that produced them.
var syntaxKinds = map[Kind]bool{
	KindInvalidPath:                true,
	KindInvalidMember:               true,
	KindInvalidNumber:               true,
	KindInvalidIdentifier:           true,
	KindInvalidDotSequence:          true,
	KindEmptyExpression:             true,
	KindIndexNotNumber:              true,
	KindZeroStep:                    true,
	KindInvalidWildcard:             true,
	KindDollarOnNonRoot:             true,
	KindParseError:                  true,
	KindRecursiveDescentTokenLimit:  true,
	KindQueryStringSizeLimit:        true,
	KindParserDepthLimit:            true,
}

// tag is the short prefix the host prepends to client-visible error text.
func (k Kind) tag() string {
	switch k {
	case KindWrongArity, KindInvalidPath, KindInvalidMember, KindInvalidNumber,
		KindInvalidIdentifier, KindInvalidDotSequence, KindEmptyExpression,
		KindIndexNotNumber, KindZeroStep, KindInvalidWildcard, KindDollarOnNonRoot,
		KindNXXXMutuallyExclusive, KindUnknownSubcommand:
		return "SYNTAXERR"
	case KindWrongType:
		return "WRONGTYPE"
	case KindPathNonExistent, KindKeyNotFound:
		return "NONEXISTENT"
	case KindAdditionOverflow, KindMultiplicationOverflow:
		return "OVERFLOW"
	case KindEmptyContainer:
		return "EMPTYVAL"
	case KindIndexOutOfBounds:
		return "OUTOFBOUNDARIES"
	case KindDocumentSizeLimit, KindPathDepthLimit, KindParserDepthLimit,
		KindRecursiveDescentTokenLimit, KindQueryStringSizeLimit:
		return "LIMIT"
	case KindPthreadInit:
		return "PTHREADERR"
	case KindParseError, KindInvalidRDBFormat:
		return "ERROR"
	default:
		return "ERROR"
	}
}

// Error is a Kind plus a human-readable detail, satisfying the error
// interface with the host's tag-prefixed rendering.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.tag()
	}
	return fmt.Sprintf("%s %s", e.Kind.tag(), e.Detail)
}

// New builds an *Error for the given kind with a formatted detail.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Detail: fmt.Sprintf(format, args...)}
}

// IsSyntax reports whether k must abort every fork of a selector
// evaluation rather than just the current branch (§7, §4.5).
func IsSyntax(k Kind) bool {
	return syntaxKinds[k]
}

// As extracts the Kind from err if it is (or wraps) an *Error.
func As(err error) (Kind, bool) {
	if err == nil {
		return KindNone, false
	}
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return KindNone, false
}

// Fatal panics with a value distinguishable from ordinary command
// errors. Recovered once at the top of command dispatch (pkg/engine) and
// re-raised as a host-visible abort after logging — the engine never
// silently continues past an invariant violation (§7).
func Fatal(format string, args ...any) {
	panic(fatalError{msg: fmt.Sprintf(format, args...)})
}

type fatalError struct{ msg string }

func (f fatalError) Error() string { return "FATAL " + f.msg }

// AsFatal reports whether r (a recovered value) is a Fatal panic.
func AsFatal(r any) (error, bool) {
	if fe, ok := r.(fatalError); ok {
		return fe, true
	}
	return nil, false
}
