package jsonio

import (
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T) *Parser {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	return NewParser(kt, alloc.NewSession(alloc.NewGlobal()), DefaultMaxRecursionDepth)
}

func TestFastRoundTrip(t *testing.T) {
	src := `{"a":{"b":[1,2,3]},"x":8.95,"y":"hi","z":null,"w":true}`
	p := newParser(t)
	v, _, err := p.Parse(src)
	require.NoError(t, err)

	out := NewSerializer().Fast(v)
	assert.Equal(t, src, out)
}

func TestPrettyIndent(t *testing.T) {
	p := newParser(t)
	v, _, err := p.Parse(`{"a":1}`)
	require.NoError(t, err)

	out := NewSerializer().Pretty(v, PrettyOptions{Indent: "  ", Space: " ", Newline: "\n"})
	assert.Equal(t, "{\n  \"a\": 1\n}", out)
}

func TestParseDepthLimit(t *testing.T) {
	kt, err := keytable.New(1)
	require.NoError(t, err)
	p := NewParser(kt, alloc.NewSession(alloc.NewGlobal()), 3)

	_, _, err2 := p.Parse(`{"a":{"b":{"c":{"d":1}}}}`)
	assert.Error(t, err2)
}

func TestParseDuplicateKeyLastWins(t *testing.T) {
	p := newParser(t)
	v, _, err := p.Parse(`{"a":1,"a":2}`)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Object().Len())
	assert.Equal(t, int64(2), v.Object().Order()[0].Val.Int())
}
