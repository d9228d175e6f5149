package layerstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layerstore/layerstore/backend"
	"github.com/layerstore/layerstore/backend/memory"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()

	s := New(memory.New(), opts)
	require.NoError(t, s.Open())
	return s
}

func testOpts() Options {
	opts := DefaultOptions()
	opts.PageSize = 1024
	opts.MaxPages = 10
	return opts
}

// countingBackend wraps a backend.Backend and counts calls to Read,
// used to assert that pinned pages survive eviction without a
// backend round-trip (property P7).
type countingBackend struct {
	backend.Backend
	reads int
}

func (c *countingBackend) Read(off int64, buf []byte) (int, error) {
	c.reads++
	return c.Backend.Read(off, buf)
}

// capRestrictedBackend wraps a backend.Backend and reports every
// capability in denied as unsupported, regardless of what the
// embedded backend can actually do. Used to exercise the overlay-only
// fallback paths the Store takes when a capability is absent (§4.A).
type capRestrictedBackend struct {
	backend.Backend
	denied map[backend.Capability]bool
}

func restrictedBackend(be backend.Backend, denied ...backend.Capability) *capRestrictedBackend {
	set := make(map[backend.Capability]bool, len(denied))
	for _, c := range denied {
		set[c] = true
	}

	return &capRestrictedBackend{Backend: be, denied: set}
}

func (c *capRestrictedBackend) Supports(cap backend.Capability) bool {
	if c.denied[cap] {
		return false
	}

	return c.Backend.Supports(cap)
}

// The following overrides fail loudly if the Store ever calls through
// to a capability it was told is unsupported, so a test that only
// asserts on the overlay-only outcome still catches a Store that
// skipped the Supports check.

func (c *capRestrictedBackend) Write(off int64, buf []byte) error {
	if c.denied[backend.CapWrite] {
		panic("capRestrictedBackend: Write called despite CapWrite being unsupported")
	}

	return c.Backend.Write(off, buf)
}

func (c *capRestrictedBackend) Truncate(length int64) error {
	if c.denied[backend.CapTruncate] {
		panic("capRestrictedBackend: Truncate called despite CapTruncate being unsupported")
	}

	return c.Backend.Truncate(length)
}

func (c *capRestrictedBackend) Unlink() error {
	if c.denied[backend.CapUnlink] {
		panic("capRestrictedBackend: Unlink called despite CapUnlink being unsupported")
	}

	return c.Backend.Unlink()
}

func TestReadYourWrites(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, []byte("Hello, world!")))

	got, err := s.Read(0, 13)
	require.NoError(t, err)
	require.Equal(t, "Hello, world!", string(got))
}

func TestZeroFillOfHoles(t *testing.T) {
	s := newTestStore(t, testOpts())

	got, err := s.Read(0, 32)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 32), got)
}

func TestSizeMonotonicityThroughWrites(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(100, []byte("hi")))
	require.Equal(t, uint64(102), s.Size())
}

func TestTruncateGrowIsZeroFill(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, []byte("abc")))
	require.NoError(t, s.Truncate(10))

	got, err := s.Read(3, 7)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 7), got)
}

func TestTruncateShrinkIsLossy(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, bytes.Repeat([]byte{0xff}, 20)))
	require.NoError(t, s.Truncate(5))
	require.Equal(t, uint64(5), s.Size())

	got, err := s.Read(5, 4)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 4), got)
}

func TestPinImmunitySurvivesEviction(t *testing.T) {
	be := &countingBackend{Backend: memory.New()}
	opts := testOpts()
	opts.MaxPages = 2
	s := New(be, opts)
	require.NoError(t, s.Open())

	pinnedData := bytes.Repeat([]byte{0x42}, 1024)
	require.NoError(t, s.Write(0, pinnedData))
	require.NoError(t, s.Write(1024, bytes.Repeat([]byte{0x01}, 1024)))
	require.NoError(t, s.Flush(0, s.Size()))
	s.Pin(0, 1024)

	// Write enough further distinct pages to force repeated eviction
	// of every unpinned resident page.
	for i := int64(2); i < 8; i++ {
		require.NoError(t, s.Write(uint64(i*1024), bytes.Repeat([]byte{byte(i)}, 1024)))
	}

	readsBefore := be.reads

	got, err := s.Read(0, 1024)
	require.NoError(t, err)
	require.Equal(t, pinnedData, got)
	require.Equal(t, readsBefore, be.reads, "pinned page should never have been evicted, so no backend read should occur")
}

func TestBitmaskFilter(t *testing.T) {
	s := newTestStore(t, testOpts())

	mask := make([]byte, 2)
	for i := range mask {
		mask[i] = 0xff
	}

	s.SetBitmask(mask)
	require.NoError(t, s.Write(0, []byte("Hello, world!")))
	s.ClearBitmask()
	require.NoError(t, s.Write(0, []byte("XXXXX")))

	got, err := s.Read(0, 13)
	require.NoError(t, err)
	require.Equal(t, "XXXXX, world!", string(got))
}

func TestStrictSizeLimit(t *testing.T) {
	opts := testOpts()
	opts.StrictSizeEnforcement = 10
	s := newTestStore(t, opts)

	require.NoError(t, s.Write(0, make([]byte, 10)))

	err := s.Write(10, []byte{0x1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds strict size enforcement")
}

func TestIdempotentFlush(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, []byte("data")))
	require.NoError(t, s.Flush(0, s.Size()))
	require.Empty(t, s.dirty)

	require.NoError(t, s.Flush(0, s.Size()))
	require.Empty(t, s.dirty)
}

func TestDelTrailing(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(0, bytes.Repeat([]byte{0xaa}, 20)))
	require.NoError(t, s.Del(10, ^uint64(0)))
	require.Equal(t, uint64(10), s.Size())

	got, err := s.Read(10, 4)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 4), got)
}

func TestRandomAccessOverlap(t *testing.T) {
	s := newTestStore(t, testOpts())

	require.NoError(t, s.Write(10, []byte("hi")))
	require.NoError(t, s.Write(0, []byte("hello")))

	got, err := s.Read(10, 2)
	require.NoError(t, err)
	require.Equal(t, "hi", string(got))

	got, err = s.Read(0, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	got, err = s.Read(5, 5)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 5), got)
}

func TestWriteSpanningMultiplePages(t *testing.T) {
	s := newTestStore(t, testOpts())

	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte(i % 256)
	}

	require.NoError(t, s.Write(500, data))

	got, err := s.Read(500, 3000)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestTruncateSkipsBackendTruncateWhenUnsupported(t *testing.T) {
	be := restrictedBackend(memory.New(), backend.CapTruncate)
	s := New(be, testOpts())
	require.NoError(t, s.Open())

	require.NoError(t, s.Write(0, bytes.Repeat([]byte{0xaa}, 20)))

	// CapTruncate is denied, so Truncate must only update the logical
	// size and drop pages past the boundary, never calling through to
	// the backend (capRestrictedBackend.Truncate panics if it is).
	require.NoError(t, s.Truncate(5))
	require.Equal(t, uint64(5), s.Size())
}

func TestPinUnpinRoundtrip(t *testing.T) {
	s := newTestStore(t, testOpts())

	s.Pin(0, 1)
	require.True(t, s.pins.IsPinned(0))

	s.Unpin(0, 1)
	require.False(t, s.pins.IsPinned(0))
}
