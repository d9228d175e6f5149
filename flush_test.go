package layerstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layerstore/layerstore/backend"
	"github.com/layerstore/layerstore/backend/memory"
)

func TestFlushPropagatesToBackend(t *testing.T) {
	be := memory.New()
	s := New(be, testOpts())
	require.NoError(t, s.Open())

	require.NoError(t, s.Write(0, []byte("Persistent data")))
	require.NoError(t, s.Flush(0, 15))

	buf := make([]byte, 15)
	n, err := be.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, 15, n)
	require.Equal(t, "Persistent data", string(buf))
}

func TestTruncateGrowThenFlush(t *testing.T) {
	be := memory.New()
	s := New(be, testOpts())
	require.NoError(t, s.Open())

	require.NoError(t, s.Write(0, bytes.Repeat([]byte{0xff}, 1024)))
	require.NoError(t, s.Truncate(2048))
	require.NoError(t, s.Flush(0, 2048))

	size, err := be.Stat()
	require.NoError(t, err)
	require.GreaterOrEqual(t, size, int64(2048))

	buf := make([]byte, 2048)
	_, err = be.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{0xff}, 1024), buf[:1024])
	require.Equal(t, make([]byte, 1024), buf[1024:])
}

func TestDeleteTrailingThenFlush(t *testing.T) {
	be := memory.New()
	s := New(be, testOpts())
	require.NoError(t, s.Open())

	require.NoError(t, s.Write(0, bytes.Repeat([]byte{0xff}, 2048)))
	require.NoError(t, s.Del(1024, 1024))
	require.NoError(t, s.Flush(0, 2048))

	buf := make([]byte, 1024)
	_, err := be.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{0xff}, 1024), buf)

	buf2 := make([]byte, 1024)
	_, err = be.Read(1024, buf2)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 1024), buf2)
}

func TestFlushClippedToCurrentSize(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, []byte("abc")))
	// Flushing a larger range than the logical size must not panic or
	// error; it simply clips to the current size.
	require.NoError(t, s.Flush(0, 10000))
}

func TestFlushLeavesOutOfRangeDirtyPagesDirty(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, []byte("first page")))
	require.NoError(t, s.Write(2048, []byte("third page")))

	require.NoError(t, s.Flush(0, 1024))

	require.NotContains(t, s.dirty, int64(0))
	require.Contains(t, s.dirty, int64(2))
}

func TestFlushIsNoOpWhenBackendDoesNotSupportWrite(t *testing.T) {
	be := restrictedBackend(memory.New(), backend.CapWrite)
	s := New(be, testOpts())
	require.NoError(t, s.Open())

	require.NoError(t, s.Write(0, []byte("data")))

	// CapWrite is denied, so Flush must fall back to a no-op instead
	// of calling through to the backend (capRestrictedBackend.Write
	// panics if it is); the dirty page stays dirty since nothing was
	// actually persisted.
	require.NoError(t, s.Flush(0, s.Size()))
	require.Contains(t, s.dirty, int64(0))
}

func TestEvictionFlushSkipsBackendWriteWhenUnsupported(t *testing.T) {
	be := restrictedBackend(memory.New(), backend.CapWrite)
	opts := testOpts()
	opts.MaxPages = 1
	opts.AutoFlushOnEvict = true
	s := New(be, opts)
	require.NoError(t, s.Open())

	require.NoError(t, s.Write(0, []byte("first page")))
	// Forces eviction of page 0 with AutoFlushOnEvict set, while
	// CapWrite is unsupported: the dispose hook must clear the dirty
	// flag without calling backend.Write.
	require.NoError(t, s.Write(2048, []byte("third page")))

	require.NotContains(t, s.dirty, int64(0))
}
