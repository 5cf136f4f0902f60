package stats

import (
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) *Stats {
	t.Helper()
	return New(alloc.NewGlobal(), prometheus.NewRegistry())
}

func TestBucketOfBoundaries(t *testing.T) {
	require.Equal(t, 0, BucketOf(0))
	require.Equal(t, 0, BucketOf(255))
	require.Equal(t, 1, BucketOf(256))
	require.Equal(t, 1, BucketOf(1023))
	require.Equal(t, 2, BucketOf(1024))
	require.Equal(t, 10, BucketOf(1<<30))
}

func TestRecordDocumentCreatedAndDeleted(t *testing.T) {
	s := newFixture(t)
	b := s.RecordDocumentCreated(100)
	require.Equal(t, 0, b)

	snap := s.Snapshot()
	require.Equal(t, int64(1), snap.DocumentCount)
	require.Equal(t, int64(1), snap.DocHistogram[0])
	require.Equal(t, int64(100), snap.MaxSizeSeen)

	s.RecordDocumentDeleted(b)
	snap = s.Snapshot()
	require.Equal(t, int64(0), snap.DocumentCount)
	require.Equal(t, int64(0), snap.DocHistogram[0])
}

func TestTransitionDocumentBucketMovesPopulation(t *testing.T) {
	s := newFixture(t)
	b := s.RecordDocumentCreated(100)
	newB := s.TransitionDocumentBucket(b, BucketOf(5000), 5000)
	require.Equal(t, 2, newB)

	snap := s.Snapshot()
	require.Equal(t, int64(0), snap.DocHistogram[0])
	require.Equal(t, int64(1), snap.DocHistogram[2])
	require.Equal(t, int64(5000), snap.MaxSizeSeen)
}

func TestRecordOperationBucketsByAbsoluteDelta(t *testing.T) {
	s := newFixture(t)
	s.RecordOperation(OpInsert, 300)
	s.RecordOperation(OpDelete, -300)

	snap := s.Snapshot()
	require.Equal(t, int64(1), snap.InsertHisto[1])
	require.Equal(t, int64(1), snap.DeleteHisto[1])
}

func TestRecordDepthTracksMaximum(t *testing.T) {
	s := newFixture(t)
	s.RecordDepth(3)
	s.RecordDepth(7)
	s.RecordDepth(2)
	require.Equal(t, int64(7), s.Snapshot().MaxDepthSeen)
}

func TestRecordDefragAccumulates(t *testing.T) {
	s := newFixture(t)
	s.RecordDefrag(128)
	s.RecordDefrag(64)
	snap := s.Snapshot()
	require.Equal(t, int64(2), snap.DefragCount)
	require.Equal(t, int64(192), snap.DefragBytes)
}
