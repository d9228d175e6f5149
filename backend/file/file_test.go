package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layerstore/layerstore/backend"
	"github.com/layerstore/layerstore/internal/testutil"
)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "layerstore_backend_test")
	b := New(path)
	require.NoError(t, b.Open(true))

	t.Cleanup(func() {
		_ = b.Close()
	})

	return b, path
}

func TestWriteThenReadRoundtrips(t *testing.T) {
	b, _ := newTestBackend(t)
	data := testutil.DummyBuf(512)

	require.NoError(t, b.Write(0, data))

	buf := make([]byte, 512)
	_, err := b.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, data, buf)
}

func TestReadPastEndIsZeroFilled(t *testing.T) {
	b, _ := newTestBackend(t)

	require.NoError(t, b.Write(0, []byte("hi")))

	buf := make([]byte, 16)
	n, err := b.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, "hi", string(buf[:2]))
	require.Equal(t, make([]byte, 14), buf[2:])
}

func TestTruncateGrowsFile(t *testing.T) {
	b, _ := newTestBackend(t)

	require.NoError(t, b.Truncate(1024))

	size, err := b.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(1024), size)
}

func TestDelZeroesRange(t *testing.T) {
	b, _ := newTestBackend(t)
	require.NoError(t, b.Write(0, testutil.DummyBuf(64)))

	require.NoError(t, b.Del(16, 32))

	buf := make([]byte, 32)
	_, err := b.Read(16, buf)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 32), buf)
}

func TestUnlinkRemovesFile(t *testing.T) {
	b, path := newTestBackend(t)
	require.NoError(t, b.Write(0, []byte("data")))

	require.NoError(t, b.Unlink())

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSupportsEverything(t *testing.T) {
	b, _ := newTestBackend(t)

	caps := []backend.Capability{
		backend.CapOpen, backend.CapRead, backend.CapWrite, backend.CapDel,
		backend.CapTruncate, backend.CapStat, backend.CapClose, backend.CapUnlink,
	}
	for _, c := range caps {
		require.True(t, b.Supports(c))
	}
}
