package mutate

import (
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/selector"
	"github.com/jsondocdb/jsondoc/pkg/value"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, src string) (*Mutator, *value.Value) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	p := jsonio.NewParser(kt, sess, jsonio.DefaultMaxRecursionDepth)
	root, _, err := p.Parse(src)
	require.NoError(t, err)
	return New(kt, sess, selector.DefaultLimits), root
}

func TestSetExistingMember(t *testing.T) {
	m, root := newFixture(t, `{"a":1}`)
	n, err := m.Set(root, ".a", "42")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, int64(42), root.Object().Find(mustHandle(t, m, "a")).Int())
}

func TestSetInsertsMissingMember(t *testing.T) {
	m, root := newFixture(t, `{"a":1}`)
	n, err := m.Set(root, ".b", `"hi"`)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "hi", root.Object().Find(mustHandle(t, m, "b")).Str())
}

func TestDelRemovesMember(t *testing.T) {
	m, root := newFixture(t, `{"a":1,"b":2}`)
	n, err := m.Del(root, ".a")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, root.Object().Len())
}

func TestIncrByPromotesToDoubleOnOverflow(t *testing.T) {
	m, root := newFixture(t, `{"a":9223372036854775807}`)
	out, err := m.IncrBy(root, ".a", value.Int(1))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].IsDouble())
}

func TestToggleFlips(t *testing.T) {
	m, root := newFixture(t, `{"a":true}`)
	out, err := m.Toggle(root, ".a")
	require.NoError(t, err)
	require.Equal(t, []bool{false}, out)
}

func TestStrAppend(t *testing.T) {
	m, root := newFixture(t, `{"a":"hi"}`)
	out, err := m.StrAppend(root, ".a", " there")
	require.NoError(t, err)
	require.Equal(t, []int{8}, out)
}

func TestArrAppendAndLen(t *testing.T) {
	m, root := newFixture(t, `{"a":[1,2]}`)
	n, err := m.ArrAppend(root, ".a", []string{"3", "4"})
	require.NoError(t, err)
	require.Equal(t, []int{4}, n)

	l, err := m.ArrLen(root, ".a")
	require.NoError(t, err)
	require.Equal(t, []int{4}, l)
}

func TestArrIndexStopZeroMeansSearchToEnd(t *testing.T) {
	m, root := newFixture(t, `{"a":[1,2,3,4,5]}`)
	out, err := m.ArrIndex(root, ".a", "5", 0, 0)
	require.NoError(t, err)
	require.Equal(t, []int{4}, out)
}

func TestClearEmptiesContainer(t *testing.T) {
	m, root := newFixture(t, `{"a":[1,2,3]}`)
	n, err := m.Clear(root, ".a")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	l, err := m.ArrLen(root, ".a")
	require.NoError(t, err)
	require.Equal(t, []int{0}, l)
}

func mustHandle(t *testing.T, m *Mutator, name string) keytable.Handle {
	h := m.kt.MakeHandle([]byte(name), false)
	m.kt.Destroy(h) // Find doesn't need a held reference; release the probe immediately
	return h
}
