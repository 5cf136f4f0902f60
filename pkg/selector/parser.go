package selector

import (
	"strconv"
	"strings"

	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// unquotedTerminators is the terminator set for unquoted member names
// (spec §4.5 grammar note): the longest run of bytes not in this set.
const unquotedTerminators = ". []()<>=!'\" |&"

type parser struct {
	s              string
	pos            int
	limits         Limits
	recursiveDescTokens int
	parenDepth     int
}

// Parse compiles path text into a Path, enforcing the resource limits in
// limits (spec §4.5).
func Parse(path string, limits Limits) (*Path, error) {
	if len(path) > limits.MaxQueryStringSize {
		return nil, jsonerr.New(jsonerr.KindQueryStringSizeLimit, "path length %d exceeds max_query_string_size %d", len(path), limits.MaxQueryStringSize)
	}
	if path == "" {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "empty path")
	}

	p := &parser{s: path, limits: limits}

	var dialect Dialect
	switch path[0] {
	case '$':
		dialect = Extended
		p.pos = 1
	case '.':
		dialect = Legacy
		p.pos = 0
	default:
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "path must start with '$' or '.'")
	}

	steps, err := p.parseRel(dialect)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "unexpected trailing text at offset %d", p.pos)
	}
	return &Path{Dialect: dialect, Steps: steps, Raw: path}, nil
}

// parseRel parses Rel := ε | '..' Path | '.' Qualified | '[' Bracket ']' | Qualified
func (p *parser) parseRel(dialect Dialect) ([]Step, error) {
	if p.pos >= len(p.s) {
		return nil, nil
	}
	if p.peekIs("..") {
		p.pos += 2
		p.recursiveDescTokens++
		if p.recursiveDescTokens > p.limits.MaxRecursiveDescentTokens {
			return nil, jsonerr.New(jsonerr.KindRecursiveDescentTokenLimit, "exceeded max_recursive_descent_tokens %d", p.limits.MaxRecursiveDescentTokens)
		}
		rest, err := p.parsePathAfterRecursive(dialect)
		if err != nil {
			return nil, err
		}
		return rest, nil
	}
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		return p.parseQualified(dialect, false)
	}
	if p.pos < len(p.s) && p.s[p.pos] == '[' {
		p.pos++
		return p.parseBracket(dialect, false)
	}
	return p.parseQualified(dialect, false)
}

// parsePathAfterRecursive parses the grammar's nested `Path` following
// `..`, but folds the leading dialect marker's absence (there is none —
// after `..` the text continues directly with Qualified/Bracket/another
// `..`) into the recursive flag of the first resulting step.
func (p *parser) parsePathAfterRecursive(dialect Dialect) ([]Step, error) {
	if p.peekIs("..") {
		// `...` or chained recursive descent: treat as one more recursion.
		p.pos += 2
		p.recursiveDescTokens++
		if p.recursiveDescTokens > p.limits.MaxRecursiveDescentTokens {
			return nil, jsonerr.New(jsonerr.KindRecursiveDescentTokenLimit, "exceeded max_recursive_descent_tokens %d", p.limits.MaxRecursiveDescentTokens)
		}
		return p.parsePathAfterRecursive(dialect)
	}
	var steps []Step
	var err error
	if p.pos < len(p.s) && p.s[p.pos] == '[' {
		p.pos++
		steps, err = p.parseBracket(dialect, true)
	} else {
		steps, err = p.parseQualified(dialect, true)
	}
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// parseQualified parses Qualified := ('*' ['[' Filter ']']) | Name) Rel
func (p *parser) parseQualified(dialect Dialect, recursive bool) ([]Step, error) {
	if p.pos >= len(p.s) {
		if recursive {
			return nil, jsonerr.New(jsonerr.KindInvalidDotSequence, "recursive descent with no following qualifier")
		}
		return nil, nil
	}
	if p.s[p.pos] == '*' {
		p.pos++
		step := Step{Kind: StepWildcard, Recursive: recursive}
		var steps []Step
		if p.pos < len(p.s) && p.s[p.pos] == '[' {
			// `*[?(filter)]` — combined wildcard+filter is represented as two steps.
			p.pos++
			filterSteps, err := p.parseBracket(dialect, false)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
			steps = append(steps, filterSteps...)
			rest, err := p.parseRel(dialect)
			if err != nil {
				return nil, err
			}
			return append(steps, rest...), nil
		}
		steps = append(steps, step)
		rest, err := p.parseRel(dialect)
		if err != nil {
			return nil, err
		}
		return append(steps, rest...), nil
	}

	name, err := p.scanUnquotedName()
	if err != nil {
		return nil, err
	}
	step := Step{Kind: StepMember, Name: name, Recursive: recursive}
	rest, err := p.parseRel(dialect)
	if err != nil {
		return nil, err
	}
	return append([]Step{step}, rest...), nil
}

// parseBracket parses the contents of `[...]` (the leading `[` has
// already been consumed) per the `Bracket` production.
func (p *parser) parseBracket(dialect Dialect, recursive bool) ([]Step, error) {
	if p.pos >= len(p.s) {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "unterminated bracket")
	}

	if p.s[p.pos] == '*' {
		p.pos++
		if p.pos >= len(p.s) || p.s[p.pos] != ']' {
			return nil, jsonerr.New(jsonerr.KindInvalidWildcard, "expected ']' after '*'")
		}
		p.pos++
		step := Step{Kind: StepWildcard, Recursive: recursive}
		var steps = []Step{step}
		if p.pos < len(p.s) && p.s[p.pos] == '[' {
			p.pos++
			filterSteps, err := p.parseBracket(dialect, false)
			if err != nil {
				return nil, err
			}
			steps = append(steps, filterSteps...)
		}
		rest, err := p.parseRel(dialect)
		if err != nil {
			return nil, err
		}
		return append(steps, rest...), nil
	}

	if p.s[p.pos] == '?' {
		expr, err := p.parseFilterBracket()
		if err != nil {
			return nil, err
		}
		step := Step{Kind: StepFilter, Filter: expr, Recursive: recursive}
		rest, err := p.parseRel(dialect)
		if err != nil {
			return nil, err
		}
		return append([]Step{step}, rest...), nil
	}

	if p.s[p.pos] == '\'' || p.s[p.pos] == '"' {
		names, err := p.scanQuotedNameList()
		if err != nil {
			return nil, err
		}
		var step Step
		if len(names) == 1 {
			step = Step{Kind: StepMember, Name: names[0], Recursive: recursive}
		} else {
			step = Step{Kind: StepUnionName, Names: names, Recursive: recursive}
		}
		rest, err := p.parseRel(dialect)
		if err != nil {
			return nil, err
		}
		return append([]Step{step}, rest...), nil
	}

	// Index | Slice | Union
	step, err := p.parseIndexSliceUnion(recursive)
	if err != nil {
		return nil, err
	}
	rest, err := p.parseRel(dialect)
	if err != nil {
		return nil, err
	}
	return append([]Step{step}, rest...), nil
}

func (p *parser) parseIndexSliceUnion(recursive bool) (Step, error) {
	start := p.pos
	hasColon := false
	depth := 0
	for i := p.pos; i < len(p.s); i++ {
		c := p.s[i]
		if c == '[' {
			depth++
		} else if c == ']' {
			if depth == 0 {
				break
			}
			depth--
		} else if c == ':' && depth == 0 {
			hasColon = true
		}
	}
	// find the matching closing ']' at depth 0
	end := -1
	depth = 0
	for i := p.pos; i < len(p.s); i++ {
		switch p.s[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				end = i
			} else {
				depth--
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return Step{}, jsonerr.New(jsonerr.KindInvalidPath, "unterminated '[' starting at offset %d", start)
	}
	body := p.s[p.pos:end]
	p.pos = end + 1

	if hasColon {
		sl, err := parseSlice(body)
		if err != nil {
			return Step{}, err
		}
		return Step{Kind: StepSlice, Slice: sl, Recursive: recursive}, nil
	}
	if strings.Contains(body, ",") {
		parts := strings.Split(body, ",")
		idxs := make([]int, 0, len(parts))
		for _, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Step{}, jsonerr.New(jsonerr.KindIndexNotNumber, "non-numeric union member %q", part)
			}
			idxs = append(idxs, n)
		}
		return Step{Kind: StepUnionIndex, Indices: idxs, Recursive: recursive}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil {
		return Step{}, jsonerr.New(jsonerr.KindIndexNotNumber, "non-numeric index %q", body)
	}
	return Step{Kind: StepIndex, Index: n, Recursive: recursive}, nil
}

// parseSlice parses python-like `[start]:[end][:[step]]` bodies (spec
// §4.5 grammar `Slice`).
func parseSlice(body string) (Slice, error) {
	parts := strings.Split(body, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Slice{}, jsonerr.New(jsonerr.KindInvalidPath, "invalid slice %q", body)
	}
	var sl Slice
	if t := strings.TrimSpace(parts[0]); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil {
			return Slice{}, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid slice start %q", t)
		}
		sl.Start = &n
	}
	if t := strings.TrimSpace(parts[1]); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil {
			return Slice{}, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid slice end %q", t)
		}
		sl.End = &n
	}
	if len(parts) == 3 {
		if t := strings.TrimSpace(parts[2]); t != "" {
			n, err := strconv.Atoi(t)
			if err != nil {
				return Slice{}, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid slice step %q", t)
			}
			if n == 0 {
				return Slice{}, jsonerr.New(jsonerr.KindZeroStep, "slice step cannot be zero")
			}
			sl.Step = &n
		}
	}
	return sl, nil
}

func (p *parser) peekIs(s string) bool {
	return strings.HasPrefix(p.s[p.pos:], s)
}

// scanUnquotedName scans the longest run of bytes not in the terminator
// set (spec §4.5).
func (p *parser) scanUnquotedName() (string, error) {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune(unquotedTerminators, rune(p.s[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", jsonerr.New(jsonerr.KindInvalidIdentifier, "expected member name at offset %d", start)
	}
	return p.s[start:p.pos], nil
}

// scanQuotedNameList scans `QuotedName (',' QuotedName)*` inside a
// bracket, up to (but not consuming) the closing ']'.
func (p *parser) scanQuotedNameList() ([]string, error) {
	var names []string
	for {
		n, err := p.scanQuotedName()
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		p.skipSpaces()
		if p.pos < len(p.s) && p.s[p.pos] == ',' {
			p.pos++
			p.skipSpaces()
			continue
		}
		break
	}
	if p.pos >= len(p.s) || p.s[p.pos] != ']' {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected ']' after quoted name list")
	}
	p.pos++
	return names, nil
}

// scanQuotedName scans one double- or single-quoted name (spec §4.5:
// double-quoted accepts standard JSON escapes; single-quoted accepts
// only \' and \\).
func (p *parser) scanQuotedName() (string, error) {
	if p.pos >= len(p.s) {
		return "", jsonerr.New(jsonerr.KindInvalidPath, "expected quoted name")
	}
	quote := p.s[p.pos]
	if quote != '"' && quote != '\'' {
		return "", jsonerr.New(jsonerr.KindInvalidPath, "expected quote at offset %d", p.pos)
	}
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.s) {
			return "", jsonerr.New(jsonerr.KindInvalidPath, "unterminated quoted name")
		}
		c := p.s[p.pos]
		if c == quote {
			p.pos++
			return b.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.s) {
				return "", jsonerr.New(jsonerr.KindInvalidPath, "unterminated escape")
			}
			esc := p.s[p.pos]
			if quote == '\'' {
				switch esc {
				case '\'', '\\':
					b.WriteByte(esc)
				default:
					return "", jsonerr.New(jsonerr.KindInvalidPath, "invalid escape \\%c in single-quoted name", esc)
				}
			} else {
				switch esc {
				case '"', '\\', '/':
					b.WriteByte(esc)
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				case 'r':
					b.WriteByte('\r')
				default:
					b.WriteByte(esc)
				}
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

// --- filter expressions ---

// parseFilterBracket parses `?(' Expr ')' ']'` (the leading '[' has
// already been consumed by the caller).
func (p *parser) parseFilterBracket() (*FilterExpr, error) {
	if !p.peekIs("?(") {
		return nil, jsonerr.New(jsonerr.KindEmptyExpression, "expected '?(' at offset %d", p.pos)
	}
	p.pos += 2
	p.parenDepth++
	if p.parenDepth > p.limits.MaxParserRecursionDepth {
		return nil, jsonerr.New(jsonerr.KindParserDepthLimit, "filter expression nesting exceeds max_parser_recursion_depth")
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.parenDepth--
	p.skipSpaces()
	if p.pos >= len(p.s) || p.s[p.pos] != ')' {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected ')' to close filter expression")
	}
	p.pos++
	if p.pos >= len(p.s) || p.s[p.pos] != ']' {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected ']' to close filter bracket")
	}
	p.pos++
	return expr, nil
}

func (p *parser) parseExpr() (*FilterExpr, error) {
	var ands []AndClause
	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	ands = append(ands, *t)
	for {
		p.skipSpaces()
		if p.peekIs("||") {
			p.pos += 2
			p.skipSpaces()
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			ands = append(ands, *t)
			continue
		}
		break
	}
	return &FilterExpr{Or: ands}, nil
}

func (p *parser) parseTerm() (*AndClause, error) {
	var factors []Factor
	f, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	factors = append(factors, *f)
	for {
		p.skipSpaces()
		if p.peekIs("&&") {
			p.pos += 2
			p.skipSpaces()
			f, err := p.parseFactor()
			if err != nil {
				return nil, err
			}
			factors = append(factors, *f)
			continue
		}
		break
	}
	return &AndClause{Factors: factors}, nil
}

func (p *parser) parseFactor() (*Factor, error) {
	p.skipSpaces()
	if p.pos >= len(p.s) {
		return nil, jsonerr.New(jsonerr.KindEmptyExpression, "unexpected end of filter expression")
	}
	if p.s[p.pos] == '(' {
		p.pos++
		sub, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected ')' in filter expression")
		}
		p.pos++
		return &Factor{Sub: sub}, nil
	}
	if p.s[p.pos] == '@' {
		p.pos++
		ref, err := p.parseMemberRef()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if op, ok := p.tryParseCmpOp(); ok {
			p.skipSpaces()
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			left := &Operand{IsAt: true, MemberRef: ref}
			return &Factor{Left: left, Op: op, HasOp: true, Right: right}, nil
		}
		if len(ref) == 0 {
			return &Factor{ExistsAt: true}, nil
		}
		return &Factor{Existence: ref}, nil
	}
	// Value CmpOp '@' MemberRef?
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	op, ok := p.tryParseCmpOp()
	if !ok {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected comparison operator at offset %d", p.pos)
	}
	p.skipSpaces()
	if p.pos >= len(p.s) || p.s[p.pos] != '@' {
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected '@' at offset %d", p.pos)
	}
	p.pos++
	ref, err := p.parseMemberRef()
	if err != nil {
		return nil, err
	}
	right := &Operand{IsAt: true, MemberRef: ref}
	return &Factor{Left: left, Op: op, HasOp: true, Right: right}, nil
}

func (p *parser) parseMemberRef() ([]MemberRefStep, error) {
	var refs []MemberRefStep
	for p.pos < len(p.s) {
		if p.s[p.pos] == '.' {
			p.pos++
			name, err := p.scanUnquotedName()
			if err != nil {
				return nil, err
			}
			refs = append(refs, MemberRefStep{Name: name})
			continue
		}
		if p.s[p.pos] == '[' {
			save := p.pos
			p.pos++
			if p.pos < len(p.s) && (p.s[p.pos] == '\'' || p.s[p.pos] == '"') {
				name, err := p.scanQuotedName()
				if err != nil {
					return nil, err
				}
				if p.pos >= len(p.s) || p.s[p.pos] != ']' {
					return nil, jsonerr.New(jsonerr.KindInvalidPath, "expected ']' in member ref")
				}
				p.pos++
				refs = append(refs, MemberRefStep{Name: name})
				continue
			}
			start := p.pos
			for p.pos < len(p.s) && p.s[p.pos] != ']' {
				p.pos++
			}
			if p.pos >= len(p.s) {
				p.pos = save
				break
			}
			n, err := strconv.Atoi(p.s[start:p.pos])
			if err != nil {
				p.pos = save
				break
			}
			p.pos++ // consume ']'
			refs = append(refs, MemberRefStep{Index: n, IsIndex: true})
			continue
		}
		break
	}
	return refs, nil
}

func (p *parser) tryParseCmpOp() (CmpOp, bool) {
	ops := []struct {
		text string
		op   CmpOp
	}{
		{"==", CmpEq}, {"!=", CmpNe}, {"<=", CmpLe}, {">=", CmpGe}, {"<", CmpLt}, {">", CmpGt},
	}
	for _, o := range ops {
		if p.peekIs(o.text) {
			p.pos += len(o.text)
			return o.op, true
		}
	}
	return 0, false
}

// parseOperand parses `Value := 'null' | 'true' | 'false' | Number |
// QuotedString | Path`.
func (p *parser) parseOperand() (*Operand, error) {
	p.skipSpaces()
	if p.pos >= len(p.s) {
		return nil, jsonerr.New(jsonerr.KindEmptyExpression, "expected value")
	}
	switch {
	case p.peekIs("null"):
		p.pos += 4
		return &Operand{Literal: value.Null()}, nil
	case p.peekIs("true"):
		p.pos += 4
		return &Operand{Literal: value.Bool(true)}, nil
	case p.peekIs("false"):
		p.pos += 5
		return &Operand{Literal: value.Bool(false)}, nil
	case p.s[p.pos] == '"' || p.s[p.pos] == '\'':
		s, err := p.scanQuotedName()
		if err != nil {
			return nil, err
		}
		return &Operand{Literal: value.String(s, false)}, nil
	case p.s[p.pos] == '$':
		sub, err := p.parseSubSelector()
		if err != nil {
			return nil, err
		}
		return &Operand{SubPath: sub}, nil
	case p.s[p.pos] == '-' || (p.s[p.pos] >= '0' && p.s[p.pos] <= '9'):
		return p.parseNumberOperand()
	default:
		return nil, jsonerr.New(jsonerr.KindInvalidPath, "invalid value at offset %d", p.pos)
	}
}

func (p *parser) parseNumberOperand() (*Operand, error) {
	start := p.pos
	if p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	isFloat := false
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	text := p.s[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, jsonerr.New(jsonerr.KindInvalidNumber, "invalid number %q", text)
		}
		return &Operand{Literal: value.Double(f, text)}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidNumber, "invalid number %q", text)
	}
	return &Operand{Literal: value.Int(n)}, nil
}

// parseSubSelector scans a `$...` sub-path used as a filter operand, up
// to the next unmatched ')' or '&'/'|' boundary, and recursively parses
// it as its own Path rooted at the document.
func (p *parser) parseSubSelector() (*Path, error) {
	start := p.pos
	depth := 0
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '(' || c == '[' {
			depth++
		} else if c == ')' || c == ']' {
			if depth == 0 {
				break
			}
			depth--
		} else if depth == 0 && (strings.HasPrefix(p.s[p.pos:], "&&") || strings.HasPrefix(p.s[p.pos:], "||") || c == ' ') {
			break
		}
		p.pos++
	}
	text := p.s[start:p.pos]
	sub := &parser{s: text, pos: 1, limits: p.limits}
	steps, err := sub.parseRel(Extended)
	if err != nil {
		return nil, err
	}
	return &Path{Dialect: Extended, Steps: steps, Raw: text}, nil
}
