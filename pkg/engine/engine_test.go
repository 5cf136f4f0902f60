package engine

import (
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) *Engine {
	t.Helper()
	e, err := New(config.New(), nil)
	require.NoError(t, err)
	return e
}

func TestSetRootCreatesDocument(t *testing.T) {
	e := newFixture(t)
	n, err := e.Set("k1", ".", `{"a":1}`, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	text, err := e.Get("k1", []string{"."}, jsonioPretty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, text)
}

func TestSetNXRejectsExistingRoot(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1}`, false, false)
	require.NoError(t, err)

	n, err := e.Set("k1", ".", `{"a":2}`, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSetXXRejectsMissingKey(t *testing.T) {
	e := newFixture(t)
	n, err := e.Set("missing", ".", `{"a":1}`, false, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSetNXXXMutuallyExclusive(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `1`, true, true)
	assert.Error(t, err)
}

func TestSetNewKeyRequiresRootPath(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".a", `1`, false, false)
	assert.Error(t, err)
}

func TestSetPathUpdatesExistingDocument(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1,"b":2}`, false, false)
	require.NoError(t, err)

	n, err := e.Set("k1", ".a", `99`, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	text, err := e.Get("k1", []string{".a"}, jsonioPretty())
	require.NoError(t, err)
	assert.Equal(t, "99", text)
}

func TestGetMissingKeyErrors(t *testing.T) {
	e := newFixture(t)
	_, err := e.Get("missing", nil, jsonioPretty())
	assert.Error(t, err)
}

func TestGetMultiplePathsReturnsObject(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1,"b":2}`, false, false)
	require.NoError(t, err)

	text, err := e.Get("k1", []string{".a", ".b"}, jsonioPretty())
	require.NoError(t, err)
	assert.JSONEq(t, `{".a":1,".b":2}`, text)
}

func TestMGetReportsMissingKeys(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1}`, false, false)
	require.NoError(t, err)

	texts, ok, err := e.MGet([]string{"k1", "missing"}, ".a")
	require.NoError(t, err)
	require.Len(t, ok, 2)
	assert.True(t, ok[0])
	assert.False(t, ok[1])
	assert.Equal(t, "1", texts[0])
}

func TestDelRootRemovesKey(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1}`, false, false)
	require.NoError(t, err)

	n, err := e.Del("k1", ".")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = e.Get("k1", nil, jsonioPretty())
	assert.Error(t, err)
}

func TestDelPathRemovesMember(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1,"b":2}`, false, false)
	require.NoError(t, err)

	n, err := e.Del("k1", ".a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	text, err := e.Get("k1", []string{"."}, jsonioPretty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, text)
}

func TestForgetDeletesWholeKey(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `1`, false, false)
	require.NoError(t, err)

	n, err := e.Forget("k1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDispatchNumIncrBy(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"n":10}`, false, false)
	require.NoError(t, err)

	reply, err := e.Dispatch("NUMINCRBY", []string{"k1", ".n", "5"})
	require.NoError(t, err)
	assert.Equal(t, int64(15), reply.Int)
}

func TestDispatchToggle(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"flag":true}`, false, false)
	require.NoError(t, err)

	reply, err := e.Dispatch("TOGGLE", []string{"k1", ".flag"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), reply.Int)
}

func TestDispatchArrAppendAndLen(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"arr":[1,2]}`, false, false)
	require.NoError(t, err)

	reply, err := e.Dispatch("ARRAPPEND", []string{"k1", ".arr", "3", "4"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), reply.Int)

	reply, err = e.Dispatch("ARRLEN", []string{"k1", ".arr"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), reply.Int)
}

func TestDispatchObjKeys(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1,"b":2}`, false, false)
	require.NoError(t, err)

	reply, err := e.Dispatch("OBJKEYS", []string{"k1", "."})
	require.NoError(t, err)
	require.Equal(t, 2, len(reply.Items))
}

func TestDispatchTypeAndClear(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"arr":[1,2,3]}`, false, false)
	require.NoError(t, err)

	reply, err := e.Dispatch("TYPE", []string{"k1", ".arr"})
	require.NoError(t, err)
	assert.Equal(t, "array", reply.Str)

	reply, err = e.Dispatch("CLEAR", []string{"k1", ".arr"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply.Int)
}

func TestDispatchUnknownCommand(t *testing.T) {
	e := newFixture(t)
	_, err := e.Dispatch("NOTACOMMAND", nil)
	assert.Error(t, err)
}

func TestDispatchDebugMemoryGlobal(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1}`, false, false)
	require.NoError(t, err)

	reply, err := e.Dispatch("DEBUG", []string{"MEMORY"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Items)
}

func TestDispatchDebugHelp(t *testing.T) {
	e := newFixture(t)
	reply, err := e.Dispatch("DEBUG", []string{"HELP"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Items)
}

func TestDispatchDebugKeytableCheck(t *testing.T) {
	e := newFixture(t)
	reply, err := e.Dispatch("DEBUG", []string{"KEYTABLE-CHECK"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply.Str)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	e := newFixture(t)
	_, err := e.Set("k1", ".", `{"a":1,"b":[1,2,3]}`, false, false)
	require.NoError(t, err)

	ks := newMemoryKeySpace()
	require.NoError(t, e.SaveAll(ks))

	e2 := newFixture(t)
	require.NoError(t, e2.LoadAll(ks))

	text, err := e2.Get("k1", []string{"."}, jsonioPretty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":[1,2,3]}`, text)
}
