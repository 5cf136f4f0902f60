// Package jsonio implements the text↔value conversion layer (spec
// §4.4): a depth-limited recursive-descent parser and a two-mode
// serializer (fast / pretty).
package jsonio

import (
	"strconv"
	"strings"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// DefaultMaxRecursionDepth is the parser's default depth bound (spec
// §6.4 max-parser-recursion-depth).
const DefaultMaxRecursionDepth = 200

// Parser parses JSON text into a *value.Value tree, charging every
// allocation to sess and interning every object member name through kt.
type Parser struct {
	kt       *keytable.Table
	sess     *alloc.Session
	maxDepth int

	src      string
	pos      int
	maxSeen  int
}

// NewParser constructs a parser bound to kt/sess with the given maximum
// recursion depth.
func NewParser(kt *keytable.Table, sess *alloc.Session, maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxRecursionDepth
	}
	return &Parser{kt: kt, sess: sess, maxDepth: maxDepth}
}

// Parse parses data as a single JSON document, returning the root value
// and the maximum nesting depth observed.
func (p *Parser) Parse(data string) (*value.Value, int, error) {
	p.src = data
	p.pos = 0
	p.maxSeen = 0

	p.skipWS()
	v, err := p.parseValue(0)
	if err != nil {
		return nil, 0, err
	}
	p.skipWS()
	if p.pos != len(p.src) {
		return nil, 0, jsonerr.New(jsonerr.KindParseError, "trailing data after JSON value")
	}
	return v, p.maxSeen, nil
}

func (p *Parser) parseValue(depth int) (*value.Value, error) {
	if depth > p.maxDepth {
		return nil, jsonerr.New(jsonerr.KindParserDepthLimit, "max parser recursion depth %d exceeded", p.maxDepth)
	}
	if depth > p.maxSeen {
		p.maxSeen = depth
	}
	p.skipWS()
	if p.pos >= len(p.src) {
		return nil, jsonerr.New(jsonerr.KindParseError, "unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseObject(depth)
	case c == '[':
		return p.parseArray(depth)
	case c == '"':
		s, noEscape, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return value.String(s, noEscape), nil
	case c == 't':
		return p.parseLiteral("true", value.Bool(true))
	case c == 'f':
		return p.parseLiteral("false", value.Bool(false))
	case c == 'n':
		return p.parseLiteral("null", value.Null())
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, jsonerr.New(jsonerr.KindParseError, "unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *Parser) parseLiteral(lit string, v *value.Value) (*value.Value, error) {
	if !strings.HasPrefix(p.src[p.pos:], lit) {
		return nil, jsonerr.New(jsonerr.KindParseError, "invalid literal at offset %d", p.pos)
	}
	p.pos += len(lit)
	p.sess.Add(24)
	return v, nil
}

func (p *Parser) parseObject(depth int) (*value.Value, error) {
	p.pos++ // consume '{'
	obj := value.NewObject()
	p.sess.Add(32)
	p.skipWS()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return obj, nil
	}
	for {
		p.skipWS()
		if p.pos >= len(p.src) || p.src[p.pos] != '"' {
			return nil, jsonerr.New(jsonerr.KindParseError, "expected string key at offset %d", p.pos)
		}
		key, noEscape, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, jsonerr.New(jsonerr.KindParseError, "expected ':' at offset %d", p.pos)
		}
		p.pos++
		child, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		h := p.kt.MakeHandle([]byte(key), noEscape)
		obj.Object().Add(h, child, p.kt, p.sess)

		p.skipWS()
		if p.pos >= len(p.src) {
			return nil, jsonerr.New(jsonerr.KindParseError, "unterminated object")
		}
		if p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return obj, nil
		}
		return nil, jsonerr.New(jsonerr.KindParseError, "expected ',' or '}' at offset %d", p.pos)
	}
}

func (p *Parser) parseArray(depth int) (*value.Value, error) {
	p.pos++ // consume '['
	arr := value.NewArray()
	p.sess.Add(24)
	p.skipWS()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return arr, nil
	}
	for {
		child, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		arr.Array().Push(child, p.sess)

		p.skipWS()
		if p.pos >= len(p.src) {
			return nil, jsonerr.New(jsonerr.KindParseError, "unterminated array")
		}
		if p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		return nil, jsonerr.New(jsonerr.KindParseError, "expected ',' or ']' at offset %d", p.pos)
	}
}

// parseString consumes a quoted JSON string starting at p.pos (which
// must point at the opening quote) and reports whether the raw bytes
// contained nothing the fast serializer would need to re-escape.
func (p *Parser) parseString() (string, bool, error) {
	start := p.pos
	p.pos++ // consume opening quote
	noEscape := true
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", false, jsonerr.New(jsonerr.KindParseError, "unterminated string starting at offset %d", start)
		}
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			return b.String(), noEscape, nil
		}
		if c == '\\' {
			noEscape = false
			p.pos++
			if p.pos >= len(p.src) {
				return "", false, jsonerr.New(jsonerr.KindParseError, "unterminated escape at offset %d", p.pos)
			}
			esc := p.src[p.pos]
			switch esc {
			case '"', '\\', '/':
				b.WriteByte(esc)
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", false, err
				}
				b.WriteRune(r)
				continue
			default:
				return "", false, jsonerr.New(jsonerr.KindParseError, "invalid escape \\%c at offset %d", esc, p.pos)
			}
			p.pos++
			continue
		}
		if c < 0x20 {
			return "", false, jsonerr.New(jsonerr.KindParseError, "control character in string at offset %d", p.pos)
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *Parser) parseUnicodeEscape() (rune, error) {
	// p.pos is at 'u'
	if p.pos+4 >= len(p.src) {
		return 0, jsonerr.New(jsonerr.KindParseError, "truncated \\u escape at offset %d", p.pos)
	}
	hex := p.src[p.pos+1 : p.pos+5]
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, jsonerr.New(jsonerr.KindParseError, "invalid \\u escape %q at offset %d", hex, p.pos)
	}
	p.pos += 5
	r := rune(n)
	if r >= 0xD800 && r <= 0xDBFF && p.pos+1 < len(p.src) && p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
		lowHex := p.src[p.pos+2 : p.pos+6]
		low, err := strconv.ParseUint(lowHex, 16, 32)
		if err == nil && low >= 0xDC00 && low <= 0xDFFF {
			p.pos += 6
			r = ((r - 0xD800) << 10) + (rune(low) - 0xDC00) + 0x10000
		}
	}
	return r, nil
}

func (p *Parser) parseNumber() (*value.Value, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	isFloat := false
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	text := p.src[start:p.pos]
	if text == "" || text == "-" {
		return nil, jsonerr.New(jsonerr.KindParseError, "invalid number at offset %d", start)
	}
	p.sess.Add(24)

	if !isFloat {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return value.Int(i), nil
		}
		if u, err := strconv.ParseUint(text, 10, 64); err == nil {
			return value.Uint(u), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindParseError, "invalid number %q at offset %d", text, start)
	}
	return value.Double(f, text), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *Parser) skipWS() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}
