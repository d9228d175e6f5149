// Package backend defines the capability-probed contract that a
// layerstore.Store composes over. Concrete adapters (memory, file,
// badger) are external collaborators: the store owns no part of
// them and only ever calls through this interface.
package backend

import "errors"

// ErrUnsupported is returned (conceptually; callers should check
// Supports first) when an adapter is asked to perform a capability it
// does not have.
var ErrUnsupported = errors.New("backend: capability not supported")

// Capability identifies one operation a Backend may or may not support.
type Capability int

const (
	CapOpen Capability = iota
	CapRead
	CapWrite
	CapDel
	CapTruncate
	CapStat
	CapClose
	CapUnlink
)

// Backend is the uniform, capability-probed contract a layerstore.Store
// composes over. An adapter that does not support a capability must
// still implement the method (returning ErrUnsupported is acceptable)
// but should report false from Supports so the store can substitute an
// overlay-only behavior instead of calling it.
type Backend interface {
	// Supports reports whether cap is implemented meaningfully by this
	// adapter. The store consults this before calling the
	// corresponding method.
	Supports(cap Capability) bool

	// Open prepares the backend for use. May be a no-op for adapters
	// that are implicitly open (Supports(CapOpen) == false).
	Open(createIfMissing bool) error

	// Read yields exactly len(buf) bytes read from offset off, or an
	// error. Short reads past end-of-file are the caller's (Store's)
	// responsibility to zero-pad; see individual adapter docs for
	// whether a given adapter zero-fills short reads itself or
	// returns them as-is.
	Read(off int64, buf []byte) (int, error)

	// Write writes all of buf at offset off, implicitly extending the
	// backend's length if necessary.
	Write(off int64, buf []byte) error

	// Del zero-fills the byte range [off, off+size). Equivalent to
	// Write of zeros.
	Del(off, size int64) error

	// Truncate sets the backend's length to exactly length.
	Truncate(length int64) error

	// Stat returns the current backend length.
	Stat() (int64, error)

	// Close releases any resources held by the adapter.
	Close() error

	// Unlink permanently removes the backend's underlying storage.
	Unlink() error
}
