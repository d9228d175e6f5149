package badger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layerstore/layerstore/internal/testutil"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	b := New(t.TempDir())
	require.NoError(t, b.Open(true))

	t.Cleanup(func() {
		_ = b.Close()
	})

	return b
}

func TestWriteThenReadRoundtrips(t *testing.T) {
	b := newTestBackend(t)
	data := testutil.DummyBuf(chunkSize + 512)

	require.NoError(t, b.Write(0, data))

	buf := make([]byte, len(data))
	_, err := b.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, data, buf)
}

func TestWriteGrowsManifestSize(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.Write(100, []byte("hello")))

	size, err := b.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(105), size)
}

func TestWriteSpanningMultipleChunks(t *testing.T) {
	b := newTestBackend(t)
	data := testutil.DummyBuf(3 * chunkSize)

	require.NoError(t, b.Write(chunkSize/2, data))

	buf := make([]byte, len(data))
	_, err := b.Read(chunkSize/2, buf)
	require.NoError(t, err)
	require.Equal(t, data, buf)
}

func TestDelZeroesRange(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Write(0, testutil.DummyBuf(chunkSize)))

	require.NoError(t, b.Del(10, 20))

	buf := make([]byte, 20)
	_, err := b.Read(10, buf)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 20), buf)
}

func TestTruncateDropsTrailingChunks(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Write(0, testutil.DummyBuf(2*chunkSize)))

	require.NoError(t, b.Truncate(chunkSize/2))

	size, err := b.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(chunkSize/2), size)
}

func TestUnlinkDropsAllData(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Write(0, []byte("data")))

	require.NoError(t, b.Unlink())
}
