package keytable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeHandleDedupes(t *testing.T) {
	tb, err := New(4)
	require.NoError(t, err)

	h1 := tb.MakeHandle([]byte("price"), false)
	h2 := tb.MakeHandle([]byte("price"), false)
	assert.True(t, h1.Equal(h2), "two handles to the same text must compare equal")

	st := tb.Stats()
	assert.Equal(t, 1, st.TotalEntries)
	assert.Equal(t, uint64(2), st.TotalHandles)
}

func TestDestroyReclaims(t *testing.T) {
	tb, err := New(2)
	require.NoError(t, err)

	h := tb.MakeHandle([]byte("isbn"), false)
	tb.Destroy(h)

	st := tb.Stats()
	assert.Equal(t, 0, st.TotalEntries)
}

func TestStuckKeyNeverReclaimed(t *testing.T) {
	tb, err := New(1)
	require.NoError(t, err)

	h := tb.MakeHandle([]byte("k"), false)
	for i := 0; i < maxRefCount+10; i++ {
		h = tb.Clone(h)
	}
	assert.True(t, h.e.stuck())

	tb.Destroy(h)
	tb.Destroy(h)
	st := tb.Stats()
	assert.Equal(t, 1, st.TotalEntries)
	assert.Equal(t, 1, st.StuckEntries)
}

func TestRehashPreservesLookup(t *testing.T) {
	tb, err := New(2)
	require.NoError(t, err)

	handles := make([]Handle, 0, 500)
	for i := 0; i < 500; i++ {
		handles = append(handles, tb.MakeHandle([]byte(fmt.Sprintf("key-%d", i)), false))
	}
	for i, h := range handles {
		assert.Equal(t, fmt.Sprintf("key-%d", i), h.String())
	}
	assert.NoError(t, tb.Check())
}

func TestSetNumShardsRejectsNonEmpty(t *testing.T) {
	tb, err := New(1)
	require.NoError(t, err)
	tb.MakeHandle([]byte("x"), false)
	assert.Error(t, tb.SetNumShards(4))
}

func TestCheckDetectsCorruption(t *testing.T) {
	tb, err := New(1)
	require.NoError(t, err)
	tb.MakeHandle([]byte("x"), false)
	require.NoError(t, tb.Check())
	require.True(t, tb.Corrupt())
	assert.Error(t, tb.Check())
}
