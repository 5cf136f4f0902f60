package stats

import (
	"sync/atomic"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/prometheus/client_golang/prometheus"
)

// BucketBoundaries are the lower bounds of the 11 exponential buckets
// used by every histogram in this package (spec §4.8): [0, 256, 1K,
// 4K, 16K, 64K, 256K, 1M, 4M, 16M, 64M]. The implicit 12th boundary is
// +Inf, giving 11 buckets total.
var BucketBoundaries = [NumBuckets]int64{
	0, 256, 1024, 4096, 16384, 65536,
	262144, 1048576, 4194304, 16777216, 67108864,
}

// NumBuckets is the fixed bucket count for every histogram this
// package maintains.
const NumBuckets = 11

// BucketOf returns the index of the bucket size falls into.
func BucketOf(size int64) int {
	b := 0
	for i, lower := range BucketBoundaries {
		if size >= lower {
			b = i
		} else {
			break
		}
	}
	return b
}

// OpKind identifies which per-operation histogram an observation feeds.
type OpKind int

const (
	OpRead OpKind = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Stats is the engine's statistics block (spec §4.8). Counters are
// plain atomics and may be read without synchronisation; Prometheus
// collectors mirror the same values for external scraping.
type Stats struct {
	global *alloc.Global

	docCount     int64
	maxDepthSeen int64
	maxSizeSeen  int64
	defragCount  int64
	defragBytes  int64

	docHistogram   [NumBuckets]int64
	readHistogram  [NumBuckets]int64
	insertHisto    [NumBuckets]int64
	updateHisto    [NumBuckets]int64
	deleteHisto    [NumBuckets]int64
	docCountGauge  prometheus.Gauge
	maxDepthGauge  prometheus.Gauge
	maxSizeGauge   prometheus.Gauge
	defragCountCtr prometheus.Counter
	defragBytesCtr prometheus.Counter
	byteTotalGauge prometheus.Gauge
	docHistoVec    *prometheus.GaugeVec
	opHistoVec     *prometheus.CounterVec
}

// New creates a Stats block tracking global's byte accounting and
// registers its Prometheus collectors against reg (pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid duplicate-registration
// panics across test runs).
func New(global *alloc.Global, reg prometheus.Registerer) *Stats {
	s := &Stats{
		global: global,
		docCountGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jsondoc_documents_total",
			Help: "Number of documents currently held by the engine",
		}),
		maxDepthGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jsondoc_max_depth_seen",
			Help: "Maximum nesting depth ever observed across all documents",
		}),
		maxSizeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jsondoc_max_size_bytes_seen",
			Help: "Maximum document byte size ever observed",
		}),
		defragCountCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jsondoc_defrag_runs_total",
			Help: "Total number of defragmentation passes run",
		}),
		defragBytesCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jsondoc_defrag_bytes_total",
			Help: "Total byte delta produced by defragmentation passes",
		}),
		byteTotalGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jsondoc_bytes_allocated",
			Help: "Global byte total accounted by the allocator",
		}),
		docHistoVec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jsondoc_document_size_bucket_population",
			Help: "Number of documents currently in each size bucket",
		}, []string{"bucket"}),
		opHistoVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jsondoc_operation_byte_delta_total",
			Help: "Total operations observed per byte-delta bucket, by operation kind",
		}, []string{"op", "bucket"}),
	}
	reg.MustRegister(
		s.docCountGauge, s.maxDepthGauge, s.maxSizeGauge,
		s.defragCountCtr, s.defragBytesCtr, s.byteTotalGauge,
		s.docHistoVec, s.opHistoVec,
	)
	return s
}

var bucketLabels = [NumBuckets]string{
	"0-256", "256-1K", "1K-4K", "4K-16K", "16K-64K", "64K-256K",
	"256K-1M", "1M-4M", "4M-16M", "16M-64M", "64M-inf",
}

func bucketLabel(i int) string {
	return bucketLabels[i]
}

// BucketLabel returns the human-readable range label for bucket index
// i, or "unknown" if i is out of range. Exported for DEBUG MEMORY
// rendering in pkg/engine.
func BucketLabel(i int) string {
	if i < 0 || i >= NumBuckets {
		return "unknown"
	}
	return bucketLabels[i]
}

// RecordDocumentCreated accounts for a newly created document of the
// given size, placing it into the document-size histogram and
// returning the bucket it landed in (callers store this on the
// document so later writes can transition it).
func (s *Stats) RecordDocumentCreated(size int) int {
	atomic.AddInt64(&s.docCount, 1)
	s.docCountGauge.Set(float64(atomic.LoadInt64(&s.docCount)))
	s.bumpMaxSize(int64(size))
	b := BucketOf(int64(size))
	atomic.AddInt64(&s.docHistogram[b], 1)
	s.docHistoVec.WithLabelValues(bucketLabel(b)).Inc()
	return b
}

// RecordDocumentDeleted removes a document from bucket b's population.
func (s *Stats) RecordDocumentDeleted(b int) {
	atomic.AddInt64(&s.docCount, -1)
	s.docCountGauge.Set(float64(atomic.LoadInt64(&s.docCount)))
	atomic.AddInt64(&s.docHistogram[b], -1)
	s.docHistoVec.WithLabelValues(bucketLabel(b)).Dec()
}

// TransitionDocumentBucket moves a document's population entry from
// oldBucket to newBucket after a write changed its size, and tracks the
// new max-size-ever-seen.
func (s *Stats) TransitionDocumentBucket(oldBucket, newBucket int, newSize int) int {
	s.bumpMaxSize(int64(newSize))
	if oldBucket == newBucket {
		return newBucket
	}
	atomic.AddInt64(&s.docHistogram[oldBucket], -1)
	atomic.AddInt64(&s.docHistogram[newBucket], 1)
	s.docHistoVec.WithLabelValues(bucketLabel(oldBucket)).Dec()
	s.docHistoVec.WithLabelValues(bucketLabel(newBucket)).Inc()
	return newBucket
}

func (s *Stats) bumpMaxSize(size int64) {
	for {
		cur := atomic.LoadInt64(&s.maxSizeSeen)
		if size <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&s.maxSizeSeen, cur, size) {
			s.maxSizeGauge.Set(float64(size))
			return
		}
	}
}

// RecordDepth updates the max-depth-ever-seen counter.
func (s *Stats) RecordDepth(depth int) {
	for {
		cur := atomic.LoadInt64(&s.maxDepthSeen)
		if int64(depth) <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&s.maxDepthSeen, cur, int64(depth)) {
			s.maxDepthGauge.Set(float64(depth))
			return
		}
	}
}

// RecordOperation observes a byte delta for a read/insert/update/delete
// operation into the matching histogram (spec §4.8).
func (s *Stats) RecordOperation(kind OpKind, delta int64) {
	if delta < 0 {
		delta = -delta
	}
	b := BucketOf(delta)
	var hist *[NumBuckets]int64
	switch kind {
	case OpRead:
		hist = &s.readHistogram
	case OpInsert:
		hist = &s.insertHisto
	case OpUpdate:
		hist = &s.updateHisto
	case OpDelete:
		hist = &s.deleteHisto
	default:
		return
	}
	atomic.AddInt64(&hist[b], 1)
	s.opHistoVec.WithLabelValues(kind.String(), bucketLabel(b)).Inc()
	s.byteTotalGauge.Set(float64(s.global.TotalBytes()))
}

// RecordDefrag accounts for a defragmentation pass (spec §4.8 defrag
// count/bytes).
func (s *Stats) RecordDefrag(bytesDelta int64) {
	atomic.AddInt64(&s.defragCount, 1)
	atomic.AddInt64(&s.defragBytes, bytesDelta)
	s.defragCountCtr.Inc()
	s.defragBytesCtr.Add(float64(bytesDelta))
}

// Snapshot is the in-process view consumed by DEBUG MEMORY.
type Snapshot struct {
	ByteTotal      int64
	DocumentCount  int64
	MaxDepthSeen   int64
	MaxSizeSeen    int64
	DefragCount    int64
	DefragBytes    int64
	DocHistogram   [NumBuckets]int64
	ReadHistogram  [NumBuckets]int64
	InsertHisto    [NumBuckets]int64
	UpdateHisto    [NumBuckets]int64
	DeleteHisto    [NumBuckets]int64
}

func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		ByteTotal:     s.global.TotalBytes(),
		DocumentCount: atomic.LoadInt64(&s.docCount),
		MaxDepthSeen:  atomic.LoadInt64(&s.maxDepthSeen),
		MaxSizeSeen:   atomic.LoadInt64(&s.maxSizeSeen),
		DefragCount:   atomic.LoadInt64(&s.defragCount),
		DefragBytes:   atomic.LoadInt64(&s.defragBytes),
	}
	for i := 0; i < NumBuckets; i++ {
		snap.DocHistogram[i] = atomic.LoadInt64(&s.docHistogram[i])
		snap.ReadHistogram[i] = atomic.LoadInt64(&s.readHistogram[i])
		snap.InsertHisto[i] = atomic.LoadInt64(&s.insertHisto[i])
		snap.UpdateHisto[i] = atomic.LoadInt64(&s.updateHisto[i])
		snap.DeleteHisto[i] = atomic.LoadInt64(&s.deleteHisto[i])
	}
	return snap
}
