package value

import (
	"fmt"
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) (*keytable.Table, *alloc.Session) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	return kt, alloc.NewSession(alloc.NewGlobal())
}

func TestObjectOrderPreservedAcrossPromotion(t *testing.T) {
	kt, sess := newSession(t)
	obj := NewObject().Object()

	var names []string
	for i := 0; i < DefaultPromotionThreshold+5; i++ {
		n := fmt.Sprintf("k%02d", i)
		names = append(names, n)
		h := kt.MakeHandle([]byte(n), false)
		obj.Add(h, Int(int64(i)), kt, sess)
	}
	require.True(t, obj.promoted)
	assert.Equal(t, names, obj.Keys())

	// deleting a middle key preserves relative order of the rest
	mid := kt.MakeHandle([]byte(names[3]), false)
	obj.Erase(mid, kt, sess)
	want := append(append([]string{}, names[:3]...), names[4:]...)
	assert.Equal(t, want, obj.Keys())
}

func TestObjectAddDuplicateLastWins(t *testing.T) {
	kt, sess := newSession(t)
	obj := NewObject().Object()
	h1 := kt.MakeHandle([]byte("a"), false)
	obj.Add(h1, Int(1), kt, sess)
	h2 := kt.MakeHandle([]byte("a"), false)
	obj.Add(h2, Int(2), kt, sess)

	assert.Equal(t, 1, obj.Len())
	assert.Equal(t, int64(2), obj.Find(h1).Int())
}

func TestArrayPushPopRoundTrip(t *testing.T) {
	_, sess := newSession(t)
	arr := NewArray().Array()
	arr.Push(Int(1), sess)
	arr.Push(Int(2), sess)
	arr.Push(Int(3), sess)

	popped := arr.Pop(1, sess)
	assert.Equal(t, int64(2), popped.Int())
	assert.Equal(t, 2, arr.Len())
}

func TestDeepCopyIndependence(t *testing.T) {
	kt, sess := newSession(t)
	root := NewObject()
	h := kt.MakeHandle([]byte("x"), false)
	root.Object().Add(h, Int(1), kt, sess)

	cp := root.DeepCopy(kt, sess)
	cp.Object().Find(h).SetInt(99)

	assert.Equal(t, int64(1), root.Object().Find(h).Int())
	assert.Equal(t, int64(99), cp.Object().Find(h).Int())
}

func TestCompareNumberTypes(t *testing.T) {
	a := Int(3)
	b := Double(3.0, "3.0")
	cmp, ok := Compare(a, b)
	assert.True(t, ok)
	assert.Equal(t, 0, cmp)
}

func TestCompareMixedTypesUnordered(t *testing.T) {
	a := String("3", false)
	b := Int(3)
	_, ok := Compare(a, b)
	assert.False(t, ok)
}
