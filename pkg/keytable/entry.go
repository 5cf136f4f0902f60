package keytable

import "sync/atomic"

// maxRefCount is the 29-bit saturating ceiling from the source
// (spec §3.3, §9): once reached an entry becomes "stuck" and is never
// reclaimed. Not exposed as configuration — production behavior assumes
// it is unreachable.
const maxRefCount = (1 << 29) - 1

// entry is one interned-name record: original hash, saturating refcount,
// no-escape flag, and the raw text (spec §3.3).
type entry struct {
	originalHash uint64
	noescape     bool
	refCount     uint32 // atomic, saturating at maxRefCount
	text         string
}

// incr increments the reference count with saturating arithmetic;
// returns true if the entry became (or already was) stuck.
func (e *entry) incr() bool {
	for {
		cur := atomic.LoadUint32(&e.refCount)
		if cur >= maxRefCount {
			return true
		}
		if atomic.CompareAndSwapUint32(&e.refCount, cur, cur+1) {
			return cur+1 >= maxRefCount
		}
	}
}

// decr decrements the reference count; returns the resulting count. A
// stuck (saturated) entry never decrements — it is never reclaimed.
func (e *entry) decr() uint32 {
	for {
		cur := atomic.LoadUint32(&e.refCount)
		if cur >= maxRefCount {
			return cur // stuck: saturated counters are never decremented
		}
		if cur == 0 {
			return 0
		}
		if atomic.CompareAndSwapUint32(&e.refCount, cur, cur-1) {
			return cur - 1
		}
	}
}

func (e *entry) refs() uint32 { return atomic.LoadUint32(&e.refCount) }

func (e *entry) stuck() bool { return e.refs() >= maxRefCount }
