package selector

import (
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/value"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, kt *keytable.Table, sess *alloc.Session, src string) *value.Value {
	p := jsonio.NewParser(kt, sess, jsonio.DefaultMaxRecursionDepth)
	v, _, err := p.Parse(src)
	require.NoError(t, err)
	return v
}

func newEval(t *testing.T) (*Evaluator, *keytable.Table, *alloc.Session) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	return NewEvaluator(kt, sess, DefaultLimits), kt, sess
}

func TestLegacyMemberPath(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"a":{"b":7}}`)

	p, err := Parse(".a.b", DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeRead)
	require.NoError(t, err)
	require.Len(t, rs.Matches, 1)
	require.Equal(t, int64(7), rs.Matches[0].Value.Int())
}

func TestExtendedWildcardCollectsAll(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"a":1,"b":2,"c":3}`)

	p, err := Parse("$.*", DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeRead)
	require.NoError(t, err)
	require.Len(t, rs.Matches, 3)
}

func TestRecursiveDescentDedup(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"a":{"x":1},"b":{"x":2,"y":{"x":3}}}`)

	p, err := Parse("$..x", DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeRead)
	require.NoError(t, err)
	require.Len(t, rs.Matches, 3)
}

func TestArraySliceNegativeStep(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"a":[0,1,2,3,4]}`)

	p, err := Parse("$.a[3:0:-1]", DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeRead)
	require.NoError(t, err)
	got := make([]int64, len(rs.Matches))
	for i, m := range rs.Matches {
		got[i] = m.Value.Int()
	}
	require.Equal(t, []int64{3, 2, 1}, got)
}

func TestFilterComparison(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"items":[{"price":5},{"price":15},{"price":25}]}`)

	p, err := Parse("$.items[?(@.price>10)]", DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeRead)
	require.NoError(t, err)
	require.Len(t, rs.Matches, 2)
}

func TestInsertPathOnMissingMember(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"a":1}`)

	p, err := Parse(".b", DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeInsert)
	require.NoError(t, err)
	require.Len(t, rs.Matches, 0)
	require.Len(t, rs.Inserts, 1)
	require.Equal(t, "b", rs.Inserts[0].Name)
	require.True(t, rs.Inserts[0].IsMember)
}

func TestUnionOfQuotedNames(t *testing.T) {
	ev, kt, sess := newEval(t)
	doc := mustDoc(t, kt, sess, `{"a":1,"b":2,"c":3}`)

	p, err := Parse(`$["a","c"]`, DefaultLimits)
	require.NoError(t, err)

	rs, err := ev.Run(doc, p, ModeRead)
	require.NoError(t, err)
	require.Len(t, rs.Matches, 2)
}

func TestParserRejectsOversizeQuery(t *testing.T) {
	limits := DefaultLimits
	limits.MaxQueryStringSize = 4
	_, err := Parse(".abcdef", limits)
	require.Error(t, err)
}

func TestParserRejectsExcessiveRecursiveDescentTokens(t *testing.T) {
	limits := DefaultLimits
	limits.MaxRecursiveDescentTokens = 1
	_, err := Parse("$....a..b", limits)
	require.Error(t, err)
}
