package value

import (
	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
)

// DefaultPromotionThreshold is the member count above which an object
// converts from an ordered vector to a hash table. The source does not
// expose this as a named parameter; it uses the hash-table minimum size
// as a proxy (spec §9 open question) — we do the same: this constant and
// keytable.DefaultFactors.MinSize are separate literals, both 16.
const DefaultPromotionThreshold = 16

// Member is one (name, value) pair of an object, in insertion order.
type Member struct {
	Name keytable.Handle
	Val  *Value
}

// Object is the hybrid vector/hash-table member store (spec §3.1,
// §4.3). `order` always reflects insertion order and is what iteration
// walks; `index` is populated only once the object has been promoted,
// giving O(1) find by handle identity instead of the linear scan used
// below threshold.
type Object struct {
	order     []*Member
	index     map[uintptr]int // handle pointer identity -> position in order
	promoted  bool
	threshold int
}

func newObjectStorage() *Object {
	return &Object{threshold: DefaultPromotionThreshold}
}

func (o *Object) Len() int { return len(o.order) }

// Order returns the live member slice in iteration order. Both
// representations report identical iteration order (spec §3.1).
func (o *Object) Order() []*Member { return o.order }

func (o *Object) find(name keytable.Handle) (int, bool) {
	if o.promoted {
		idx, ok := o.index[name.Ptr()]
		if !ok {
			return 0, false
		}
		return idx, true
	}
	for i, m := range o.order {
		if m.Name.Equal(name) {
			return i, true
		}
	}
	return 0, false
}

// Find looks up a member by handle, returning its value or nil.
func (o *Object) Find(name keytable.Handle) *Value {
	if idx, ok := o.find(name); ok {
		return o.order[idx].Val
	}
	return nil
}

// Add inserts name=val. If name is already present, "last wins" (spec
// §4.3 parse duplicate-name rule, also used by callers that overwrite
// via object-add): the new handle reference is released (since the
// existing member already holds one) and the prior value's accounted
// bytes are freed.
func (o *Object) Add(name keytable.Handle, val *Value, kt *keytable.Table, sess *alloc.Session) {
	if idx, ok := o.find(name); ok {
		kt.Destroy(name)
		old := o.order[idx].Val
		sess.Sub(old.MemSize())
		o.order[idx].Val = val
		sess.Add(val.MemSize())
		return
	}
	m := &Member{Name: name, Val: val}
	o.order = append(o.order, m)
	sess.Add(24 + val.MemSize())

	if o.promoted {
		o.index[name.Ptr()] = len(o.order) - 1
		return
	}
	if len(o.order) > o.threshold {
		o.promote()
	}
}

func (o *Object) promote() {
	o.index = make(map[uintptr]int, len(o.order)*2)
	for i, m := range o.order {
		o.index[m.Name.Ptr()] = i
	}
	o.promoted = true
}

// Erase removes the member named name, releasing its handle reference
// and accounted bytes. Returns true if a member was removed.
func (o *Object) Erase(name keytable.Handle, kt *keytable.Table, sess *alloc.Session) bool {
	idx, ok := o.find(name)
	if !ok {
		return false
	}
	m := o.order[idx]
	sess.Sub(24 + m.Val.MemSize())
	kt.Destroy(m.Name)

	o.order = append(o.order[:idx], o.order[idx+1:]...)
	if o.promoted {
		delete(o.index, name.Ptr())
		for i := idx; i < len(o.order); i++ {
			o.index[o.order[i].Name.Ptr()] = i
		}
	}
	return true
}

// Keys returns the member names in iteration order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.order))
	for i, m := range o.order {
		out[i] = m.Name.String()
	}
	return out
}

// RemoveAll empties the object, releasing all handle references in bulk
// (spec §4.3).
func (o *Object) RemoveAll(kt *keytable.Table, sess *alloc.Session) int {
	n := len(o.order)
	for _, m := range o.order {
		sess.Sub(24 + m.Val.MemSize())
		kt.Destroy(m.Name)
	}
	o.order = nil
	o.index = nil
	o.promoted = false
	return n
}

func (o *Object) equal(b *Object) bool {
	if len(o.order) != len(b.order) {
		return false
	}
	for i := range o.order {
		if o.order[i].Name.String() != b.order[i].Name.String() {
			return false
		}
		if !Equal(o.order[i].Val, b.order[i].Val) {
			return false
		}
	}
	return true
}

func (o *Object) deepCopy(kt *keytable.Table, sess *alloc.Session) *Object {
	out := &Object{threshold: o.threshold}
	out.order = make([]*Member, len(o.order))
	for i, m := range o.order {
		name := kt.Clone(m.Name)
		out.order[i] = &Member{Name: name, Val: m.Val.DeepCopy(kt, sess)}
		sess.Add(24)
	}
	if o.promoted {
		out.promote()
	}
	return out
}
