package value

import (
	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
)

// Array is an ordered sequence of values with amortised push (spec
// §3.1, §4.3).
type Array struct {
	items []*Value
}

func newArrayStorage() *Array { return &Array{} }

func (a *Array) Len() int { return len(a.items) }

func (a *Array) At(i int) *Value {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Push appends v, charging its memory cost to sess.
func (a *Array) Push(v *Value, sess *alloc.Session) {
	a.items = append(a.items, v)
	sess.Add(v.MemSize() + 8) // +8 for the slice slot
}

// Pop removes and returns the element at i (supports negative indices
// counting from the end, as arrpop's callers expect).
func (a *Array) Pop(i int, sess *alloc.Session) *Value {
	if i < 0 {
		i += len(a.items)
	}
	if i < 0 || i >= len(a.items) {
		return nil
	}
	v := a.items[i]
	a.items = append(a.items[:i], a.items[i+1:]...)
	sess.Sub(v.MemSize() + 8)
	return v
}

// Erase removes the half-open range [start, end).
func (a *Array) Erase(start, end int, sess *alloc.Session) int {
	if start < 0 {
		start = 0
	}
	if end > len(a.items) {
		end = len(a.items)
	}
	if start >= end {
		return 0
	}
	for _, v := range a.items[start:end] {
		sess.Sub(v.MemSize() + 8)
	}
	a.items = append(a.items[:start], a.items[end:]...)
	return end - start
}

// Insert places values starting at index i, shifting the tail right.
func (a *Array) Insert(i int, values []*Value, sess *alloc.Session) {
	if i < 0 || i > len(a.items) {
		return
	}
	tail := append([]*Value{}, a.items[i:]...)
	a.items = append(a.items[:i], append(append([]*Value{}, values...), tail...)...)
	for _, v := range values {
		sess.Add(v.MemSize() + 8)
	}
}

// Resize truncates or extends the array to n elements, filling new
// slots with null.
func (a *Array) Resize(n int, sess *alloc.Session) {
	if n < 0 {
		return
	}
	if n < len(a.items) {
		a.Erase(n, len(a.items), sess)
		return
	}
	for len(a.items) < n {
		a.Push(Null(), sess)
	}
}

// Clear empties the array, releasing every element's accounted bytes.
func (a *Array) Clear(sess *alloc.Session) int {
	n := len(a.items)
	for _, v := range a.items {
		sess.Sub(v.MemSize() + 8)
	}
	a.items = nil
	return n
}

// Items exposes the live backing slice read-only for iteration.
func (a *Array) Items() []*Value { return a.items }

func (a *Array) equal(b *Array) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	for i := range a.items {
		if !Equal(a.items[i], b.items[i]) {
			return false
		}
	}
	return true
}

func (a *Array) deepCopy(kt *keytable.Table, sess *alloc.Session) *Array {
	out := &Array{items: make([]*Value, len(a.items))}
	for i, v := range a.items {
		out.items[i] = v.DeepCopy(kt, sess)
	}
	return out
}
