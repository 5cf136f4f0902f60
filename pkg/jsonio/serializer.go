package jsonio

import (
	"strconv"
	"strings"

	"github.com/jsondocdb/jsondoc/pkg/value"
)

// PrettyOptions configures the pretty serializer (spec §4.4): any of
// the three strings may be empty.
type PrettyOptions struct {
	Indent       string
	Space        string
	Newline      string
	InitialLevel int
}

// Serializer emits values as JSON text in fast or pretty mode, tracking
// the maximum depth seen (spec §4.4).
type Serializer struct {
	maxSeen int
}

func NewSerializer() *Serializer { return &Serializer{} }

// MaxDepthSeen returns the deepest nesting level observed across every
// call made on this serializer instance.
func (s *Serializer) MaxDepthSeen() int { return s.maxSeen }

// Fast renders v with no indentation/newline/space, exploiting the
// no-escape flag and preserved double text where present (spec §4.4).
func (s *Serializer) Fast(v *value.Value) string {
	var b strings.Builder
	s.writeFast(&b, v, 0)
	return b.String()
}

func (s *Serializer) writeFast(b *strings.Builder, v *value.Value, depth int) {
	if depth > s.maxSeen {
		s.maxSeen = depth
	}
	switch v.Kind() {
	case value.KindNull:
		b.WriteString("null")
	case value.KindTrue:
		b.WriteString("true")
	case value.KindFalse:
		b.WriteString("false")
	case value.KindInt:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case value.KindUint:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case value.KindDouble:
		writeDouble(b, v)
	case value.KindString:
		writeString(b, v)
	case value.KindArray:
		b.WriteByte('[')
		items := v.Array().Items()
		for i, c := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			s.writeFast(b, c, depth+1)
		}
		b.WriteByte(']')
	case value.KindObject:
		b.WriteByte('{')
		members := v.Object().Order()
		for i, m := range members {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKey(b, m.Name.String(), m.Name.Noescape())
			b.WriteByte(':')
			s.writeFast(b, m.Val, depth+1)
		}
		b.WriteByte('}')
	}
}

// Pretty renders v using the caller-supplied indent/space/newline triple
// (spec §4.4), starting at opts.InitialLevel so callers can nest a value
// inside a larger hand-built document.
func (s *Serializer) Pretty(v *value.Value, opts PrettyOptions) string {
	var b strings.Builder
	s.writePretty(&b, v, opts, opts.InitialLevel)
	return b.String()
}

func (s *Serializer) writePretty(b *strings.Builder, v *value.Value, opts PrettyOptions, level int) {
	if level > s.maxSeen {
		s.maxSeen = level
	}
	switch v.Kind() {
	case value.KindArray:
		items := v.Array().Items()
		if len(items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		b.WriteString(opts.Newline)
		for i, c := range items {
			indent(b, opts, level+1)
			s.writePretty(b, c, opts, level+1)
			if i < len(items)-1 {
				b.WriteByte(',')
			}
			b.WriteString(opts.Newline)
		}
		indent(b, opts, level)
		b.WriteByte(']')
	case value.KindObject:
		members := v.Object().Order()
		if len(members) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteByte('{')
		b.WriteString(opts.Newline)
		for i, m := range members {
			indent(b, opts, level+1)
			writeKey(b, m.Name.String(), m.Name.Noescape())
			b.WriteByte(':')
			b.WriteString(opts.Space)
			s.writePretty(b, m.Val, opts, level+1)
			if i < len(members)-1 {
				b.WriteByte(',')
			}
			b.WriteString(opts.Newline)
		}
		indent(b, opts, level)
		b.WriteByte('}')
	default:
		s.writeFast(b, v, level)
	}
}

func indent(b *strings.Builder, opts PrettyOptions, level int) {
	for i := 0; i < level; i++ {
		b.WriteString(opts.Indent)
	}
}

func writeDouble(b *strings.Builder, v *value.Value) {
	if text, ok := v.OriginalText(); ok {
		b.WriteString(text)
		return
	}
	b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
}

func writeString(b *strings.Builder, v *value.Value) {
	writeKey(b, v.Str(), v.StrNoEscape())
}

// writeKey emits a quoted string, taking the fast path verbatim when the
// no-escape flag is set (spec §3.1, §4.4 "Fast serializer").
func writeKey(b *strings.Builder, s string, noEscape bool) {
	b.WriteByte('"')
	if noEscape {
		b.WriteString(s)
		b.WriteByte('"')
		return
	}
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				const hex = "0123456789abcdef"
				b.WriteByte(hex[(r>>4)&0xf])
				b.WriteByte(hex[r&0xf])
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
