package persist

import (
	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// Defragger performs in-place document defragmentation (spec §4.7):
// at or below DefragThreshold bytes, a document is deep-copied and swapped
// in wholesale rather than compacted piecemeal, since the copy cost is
// cheaper than tracking per-node fragmentation for small documents.
type Defragger struct {
	kt              *keytable.Table
	sess            *alloc.Session
	DefragThreshold int
}

func NewDefragger(kt *keytable.Table, sess *alloc.Session, threshold int) *Defragger {
	return &Defragger{kt: kt, sess: sess, DefragThreshold: threshold}
}

// Defrag replaces *root with a deep copy of itself when its estimated
// footprint is at or below DefragThreshold, returning whether a
// defrag actually ran and the byte delta it produced (spec §4.8
// defrag_count / defrag_bytes statistics).
func (d *Defragger) Defrag(root **value.Value) (ran bool, bytesDelta int64) {
	size := (*root).MemSize()
	if size > d.DefragThreshold {
		return false, 0
	}
	before := d.sess.Begin()
	fresh := (*root).DeepCopy(d.kt, d.sess)
	d.sess.Sub(size) // the old tree's accounted bytes are released once the swap completes
	*root = fresh
	return true, d.sess.End(before)
}
