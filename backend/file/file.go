// Package file implements a local-file backend.Backend on top of
// os.File. This is the one adapter in this module that necessarily
// touches the standard library's os package directly: there is no
// third-party library available that wraps random-access local file
// I/O more idiomatically than os.File.ReadAt/WriteAt.
package file

import (
	"io"
	"os"

	"github.com/layerstore/layerstore/backend"
)

// Backend adapts a path on the local filesystem to backend.Backend.
type Backend struct {
	path string
	fd   *os.File
}

// New returns a Backend for the file at path. Open must be called
// before use.
func New(path string) *Backend {
	return &Backend{path: path}
}

func (b *Backend) Supports(cap backend.Capability) bool {
	return true
}

func (b *Backend) Open(createIfMissing bool) error {
	flags := os.O_RDWR
	if createIfMissing {
		flags |= os.O_CREATE
	}

	fd, err := os.OpenFile(b.path, flags, 0644)
	if err != nil {
		return err
	}

	b.fd = fd
	return nil
}

func (b *Backend) Read(off int64, buf []byte) (int, error) {
	n, err := b.fd.ReadAt(buf, off)
	if err == io.EOF {
		// Short read at EOF: zero-fill the remainder per the
		// backend contract.
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return len(buf), nil
	}

	return n, err
}

func (b *Backend) Write(off int64, buf []byte) error {
	_, err := b.fd.WriteAt(buf, off)
	return err
}

func (b *Backend) Del(off, size int64) error {
	zero := make([]byte, size)
	_, err := b.fd.WriteAt(zero, off)
	return err
}

func (b *Backend) Truncate(length int64) error {
	return b.fd.Truncate(length)
}

func (b *Backend) Stat() (int64, error) {
	info, err := b.fd.Stat()
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

func (b *Backend) Close() error {
	if b.fd == nil {
		return nil
	}

	return b.fd.Close()
}

func (b *Backend) Unlink() error {
	if err := b.Close(); err != nil {
		return err
	}

	return os.Remove(b.path)
}
