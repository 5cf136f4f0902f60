package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripsWireJSON(t *testing.T) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	p := jsonio.NewParser(kt, sess, jsonio.DefaultMaxRecursionDepth)
	root, _, err := p.Parse(`{"a":1,"b":[1,2,3],"c":"hi"}`)
	require.NoError(t, err)

	c := NewCodec(kt, sess)
	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf, root))

	loaded, err := c.Load(&buf)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Object().Len())
}

func TestCodecLoadLegacyBinaryInt(t *testing.T) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	c := NewCodec(kt, sess)

	var buf bytes.Buffer
	buf.WriteByte(byte(VersionLegacyBinary))
	buf.WriteByte(byte(tagInt))
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(42 >> (8 * i))
	}
	buf.Write(b[:])

	v, err := c.Load(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(42), v.Int())
}

func TestCodecRejectsUnknownVersionWhenEnforced(t *testing.T) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	c := NewCodec(kt, sess)

	var buf bytes.Buffer
	buf.WriteByte(99)
	_, err = c.Load(&buf)
	require.Error(t, err)
}

func TestDefragSwapsSmallDocument(t *testing.T) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	p := jsonio.NewParser(kt, sess, jsonio.DefaultMaxRecursionDepth)
	root, _, err := p.Parse(`{"a":1,"b":2}`)
	require.NoError(t, err)

	d := NewDefragger(kt, sess, 1<<20)
	ran, _ := d.Defrag(&root)
	require.True(t, ran)
	require.Equal(t, 2, root.Object().Len())
}

func TestDefragSkipsDocumentAboveThreshold(t *testing.T) {
	kt, err := keytable.New(4)
	require.NoError(t, err)
	sess := alloc.NewSession(alloc.NewGlobal())
	p := jsonio.NewParser(kt, sess, jsonio.DefaultMaxRecursionDepth)
	root, _, err := p.Parse(`{"a":1,"b":2}`)
	require.NoError(t, err)

	d := NewDefragger(kt, sess, 0)
	ran, delta := d.Defrag(&root)
	require.False(t, ran)
	require.Equal(t, int64(0), delta)
}

func TestKeyspaceStorePutGetDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewKeyspaceStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("doc1", []byte("snapshot-bytes")))

	got, ok, err := store.Get("doc1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("snapshot-bytes"), got)

	keys, err := store.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"doc1"}, keys)

	existed, err := store.Delete("doc1")
	require.NoError(t, err)
	require.True(t, existed)

	_, ok, err = store.Get("doc1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Close())
	// closing must leave the database file on disk.
	_, err = os.Stat(filepath.Join(dir, "jsondoc.db"))
	require.NoError(t, err)
}
