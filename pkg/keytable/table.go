// Package keytable implements the process-wide interning table for
// object member names (spec §4.2): a thread-safe, sharded, load-factor
// governed hash table that deduplicates names across every document so
// that repeated keys in homogeneous document corpora cost one string,
// not one per occurrence.
package keytable

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Factors governs rehash thresholds for every shard, matching spec §4.2:
// a rehash triggers when load crosses MaxLoad (grow) or falls under
// MinLoad (shrink), subject to MinSize.
type Factors struct {
	MinLoad float64
	MaxLoad float64
	Grow    float64
	Shrink  float64
	MinSize int
}

// DefaultFactors mirrors the source's defaults for the key table.
var DefaultFactors = Factors{MinLoad: 0.10, MaxLoad: 0.75, Grow: 2.0, Shrink: 0.5, MinSize: 16}

func (f Factors) validate() error {
	if f.MinLoad < 0 || f.MaxLoad <= f.MinLoad || f.MaxLoad > 1 {
		return fmt.Errorf("invalid load factors: min=%v max=%v", f.MinLoad, f.MaxLoad)
	}
	if f.Grow <= 1 || f.Shrink <= 0 || f.Shrink >= 1 {
		return fmt.Errorf("invalid grow/shrink factors: grow=%v shrink=%v", f.Grow, f.Shrink)
	}
	if f.MinSize < 1 {
		return fmt.Errorf("invalid min size: %d", f.MinSize)
	}
	return nil
}

// MaxShards is the upper bound on num_shards from spec §4.2.
const MaxShards = 1 << 19

// Table is the process-wide interning singleton. Each shard owns its own
// mutex (spec §5); handles themselves are never thread-locked.
type Table struct {
	mu      sync.RWMutex // guards numShards/shards slice identity, not shard contents
	shards  []*shard
	factors Factors
}

// New creates a key table with numShards shards and the default factors.
func New(numShards int) (*Table, error) {
	if numShards < 1 || numShards > MaxShards {
		return nil, fmt.Errorf("num_shards must be in [1, %d], got %d", MaxShards, numShards)
	}
	t := &Table{factors: DefaultFactors}
	t.shards = make([]*shard, numShards)
	for i := range t.shards {
		t.shards[i] = newShard(t.factors)
	}
	return t, nil
}

// NumShards returns the configured shard count.
func (t *Table) NumShards() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.shards)
}

// SetNumShards changes the shard count. Only legal when the table is
// empty (spec §4.2).
func (t *Table) SetNumShards(n int) error {
	if n < 1 || n > MaxShards {
		return fmt.Errorf("num_shards must be in [1, %d], got %d", MaxShards, n)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.shards {
		if !s.empty() {
			return fmt.Errorf("cannot change num_shards: table is not empty")
		}
	}
	t.shards = make([]*shard, n)
	for i := range t.shards {
		t.shards[i] = newShard(t.factors)
	}
	return nil
}

// SetFactors updates the shard-local rehash factors. Rejected if invalid.
func (t *Table) SetFactors(f Factors) error {
	if err := f.validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.factors = f
	for _, s := range t.shards {
		s.setFactors(f)
	}
	return nil
}

// GetFactors returns the current factors.
func (t *Table) GetFactors() Factors {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.factors
}

func hash64(b []byte) uint64 { return xxhash.Sum64(b) }

func (t *Table) shardFor(h uint64) *shard {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shards[h%uint64(len(t.shards))]
}

// MakeHandle interns bytes, returning a handle. On first sight a new
// entry is allocated; otherwise the existing entry's reference count is
// incremented (saturating) and the same handle identity is returned
// (spec §4.2).
func (t *Table) MakeHandle(b []byte, noescape bool) Handle {
	h := hash64(b)
	sh := t.shardFor(h)
	e := sh.findOrInsert(b, h, noescape)
	return Handle{e: e, meta: uint32(h>>32) & metadataMask}
}

// Clone increments the reference count of an existing handle without
// re-hashing (spec §4.2).
func (t *Table) Clone(h Handle) Handle {
	if h.e == nil {
		return h
	}
	h.e.incr()
	return h
}

// Destroy decrements a handle's reference count; on zero the entry is
// freed from its shard.
func (t *Table) Destroy(h Handle) {
	if h.e == nil {
		return
	}
	sh := t.shardFor(h.e.originalHash)
	sh.release(h.e)
}

// Stats is the summary returned by Stats().
type Stats struct {
	TotalEntries int
	StuckEntries int
	TotalHandles uint64 // sum of refcounts across all entries
	NumShards    int
}

// Stats summarizes the table.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	shards := t.shards
	t.mu.RUnlock()

	var s Stats
	s.NumShards = len(shards)
	for _, sh := range shards {
		te, stuck, handles := sh.stats()
		s.TotalEntries += te
		s.StuckEntries += stuck
		s.TotalHandles += handles
	}
	return s
}

// RunLength describes one run of consecutive occupied slots, used for
// DEBUG KEYTABLE-DISTRIBUTION diagnostics.
type RunLength struct {
	Length int
	Count  int
}

// LongStats returns the topN longest occupied-slot run lengths across
// all shards, for probe-chain diagnostics.
func (t *Table) LongStats(topN int) []RunLength {
	t.mu.RLock()
	shards := t.shards
	t.mu.RUnlock()

	counts := make(map[int]int)
	for _, sh := range shards {
		for _, rl := range sh.runLengths() {
			counts[rl]++
		}
	}
	out := make([]RunLength, 0, len(counts))
	for l, c := range counts {
		out = append(out, RunLength{Length: l, Count: c})
	}
	// simple selection of topN by length descending
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Length > out[i].Length {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

// Corrupt deliberately breaks one occupied entry's cached hash in an
// arbitrary shard, for exercising Check(). Called by the keytable tests
// and by the engine's DEBUG KEYTABLE-CORRUPT command.
func (t *Table) Corrupt() bool {
	t.mu.RLock()
	shards := t.shards
	t.mu.RUnlock()
	for _, sh := range shards {
		if sh.corrupt() {
			return true
		}
	}
	return false
}

// Check walks every shard validating that every occupied slot's cached
// hash matches a recomputation from its text — the DEBUG
// KEYTABLE-CHECK consistency scan from the original source's dom.cc.
func (t *Table) Check() error {
	t.mu.RLock()
	shards := t.shards
	t.mu.RUnlock()
	for i, sh := range shards {
		if err := sh.check(); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}
