package host

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerPublishDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: EventKeySet, Key: "doc1"})

	select {
	case ev := <-sub:
		require.Equal(t, EventKeySet, ev.Type)
		require.Equal(t, "doc1", ev.Key)
		require.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())
}

func TestWriteRESPSimpleString(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRESP(&buf, SimpleString("OK")))
	require.Equal(t, "+OK\r\n", buf.String())
}

func TestWriteRESPBulkString(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRESP(&buf, BulkString("hi")))
	require.Equal(t, "$2\r\nhi\r\n", buf.String())
}

func TestWriteRESPInteger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRESP(&buf, Integer(42)))
	require.Equal(t, ":42\r\n", buf.String())
}

func TestWriteRESPNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRESP(&buf, Null()))
	require.Equal(t, "$-1\r\n", buf.String())
}

func TestWriteRESPArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRESP(&buf, Array(Integer(1), Integer(2), Null())))
	require.Equal(t, "*3\r\n:1\r\n:2\r\n$-1\r\n", buf.String())
}
