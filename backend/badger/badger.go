// Package badger implements a backend.Backend on top of an embedded
// dgraph-io/badger key-value store. Logical bytes are stored in
// fixed-size chunks, each as one KV record, plus a manifest key
// holding the logical length. Any random-access store that implements
// the backend.Backend contract can sit behind a layerstore.Store; this
// adapter shows that with a different storage technology than a plain
// file. *layerstore.Store does not itself implement backend.Backend.
package badger

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/layerstore/layerstore/backend"
)

// chunkSize is independent of the layerstore page size: the backend
// does not need to know how its caller slices reads and writes.
const chunkSize = 64 * 1024

var manifestKey = []byte("__layerstore_size__")

// Backend stores logical byte ranges as page-aligned badger records.
type Backend struct {
	dir string
	db  *badger.DB
}

// New returns a Backend rooted at dir. Open must be called before use.
func New(dir string) *Backend {
	return &Backend{dir: dir}
}

func (b *Backend) Supports(cap backend.Capability) bool {
	return true
}

func (b *Backend) Open(createIfMissing bool) error {
	opts := badger.DefaultOptions(b.dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrap(err, "badger: open")
	}

	b.db = db
	return nil
}

func chunkKey(idx int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(idx))
	return key
}

func (b *Backend) getChunk(txn *badger.Txn, idx int64) ([]byte, error) {
	item, err := txn.Get(chunkKey(idx))
	if err == badger.ErrKeyNotFound {
		return make([]byte, chunkSize), nil
	}

	if err != nil {
		return nil, err
	}

	chunk := make([]byte, chunkSize)
	return chunk, item.Value(func(val []byte) error {
		copy(chunk, val)
		return nil
	})
}

func (b *Backend) Read(off int64, buf []byte) (int, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		remaining := buf
		pos := off

		for len(remaining) > 0 {
			idx := pos / chunkSize
			chunkOff := pos % chunkSize

			chunk, err := b.getChunk(txn, idx)
			if err != nil {
				return err
			}

			n := copy(remaining, chunk[chunkOff:])
			remaining = remaining[n:]
			pos += int64(n)
		}

		return nil
	})

	if err != nil {
		return 0, errors.Wrap(err, "badger: read")
	}

	return len(buf), nil
}

func (b *Backend) Write(off int64, buf []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		remaining := buf
		pos := off

		for len(remaining) > 0 {
			idx := pos / chunkSize
			chunkOff := pos % chunkSize

			chunk, err := b.getChunk(txn, idx)
			if err != nil {
				return err
			}

			n := copy(chunk[chunkOff:], remaining)
			if err := txn.Set(chunkKey(idx), chunk); err != nil {
				return err
			}

			remaining = remaining[n:]
			pos += int64(n)
		}

		return b.growManifest(txn, off+int64(len(buf)))
	})

	return errors.Wrap(err, "badger: write")
}

func (b *Backend) Del(off, size int64) error {
	zero := make([]byte, size)
	return b.Write(off, zero)
}

func (b *Backend) growManifest(txn *badger.Txn, atLeast int64) error {
	size, err := readManifest(txn)
	if err != nil {
		return err
	}

	if atLeast <= size {
		return nil
	}

	return writeManifest(txn, atLeast)
}

func readManifest(txn *badger.Txn) (int64, error) {
	item, err := txn.Get(manifestKey)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	var size int64
	err = item.Value(func(val []byte) error {
		size = int64(binary.BigEndian.Uint64(val))
		return nil
	})

	return size, err
}

func writeManifest(txn *badger.Txn, size int64) error {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(size))
	return txn.Set(manifestKey, val)
}

func (b *Backend) Truncate(length int64) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		size, err := readManifest(txn)
		if err != nil {
			return err
		}

		if length < size {
			// Drop now out-of-range chunks.
			firstDead := length / chunkSize
			if length%chunkSize != 0 {
				firstDead++
			}

			lastChunk := (size - 1) / chunkSize
			for idx := firstDead; idx <= lastChunk; idx++ {
				if err := txn.Delete(chunkKey(idx)); err != nil && err != badger.ErrKeyNotFound {
					return err
				}
			}
		}

		return writeManifest(txn, length)
	})

	return errors.Wrap(err, "badger: truncate")
}

func (b *Backend) Stat() (int64, error) {
	var size int64

	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		size, err = readManifest(txn)
		return err
	})

	return size, errors.Wrap(err, "badger: stat")
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}

	return b.db.Close()
}

func (b *Backend) Unlink() error {
	if err := b.db.DropAll(); err != nil {
		return errors.Wrap(err, "badger: unlink")
	}

	return b.Close()
}
