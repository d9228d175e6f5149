// Package memory implements an in-memory RAM-buffer backend.Backend,
// useful for tests and for stores with no durability requirement.
package memory

import (
	"github.com/layerstore/layerstore/backend"
)

// Backend is a []byte-backed random-access store. It supports every
// capability except CapOpen: it is implicitly open. The zero value is
// ready to use.
type Backend struct {
	data []byte
}

// New returns an empty memory-backed adapter.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Supports(cap backend.Capability) bool {
	// Open is a no-op for us (implicitly open), everything else is
	// fully supported.
	return cap != backend.CapOpen
}

func (b *Backend) Open(createIfMissing bool) error {
	return nil
}

func (b *Backend) Read(off int64, buf []byte) (int, error) {
	if off >= int64(len(b.data)) {
		zero(buf)
		return len(buf), nil
	}

	n := copy(buf, b.data[off:])
	zero(buf[n:])
	return len(buf), nil
}

func (b *Backend) Write(off int64, buf []byte) error {
	end := off + int64(len(buf))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}

	copy(b.data[off:end], buf)
	return nil
}

func (b *Backend) Del(off, size int64) error {
	end := off + size
	if end > int64(len(b.data)) {
		end = int64(len(b.data))
	}

	if off >= end {
		return nil
	}

	zero(b.data[off:end])
	return nil
}

func (b *Backend) Truncate(length int64) error {
	if length <= int64(len(b.data)) {
		b.data = b.data[:length]
		return nil
	}

	grown := make([]byte, length)
	copy(grown, b.data)
	b.data = grown
	return nil
}

func (b *Backend) Stat() (int64, error) {
	return int64(len(b.data)), nil
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Unlink() error {
	b.data = nil
	return nil
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
