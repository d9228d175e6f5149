// Package layerstore implements a layered, page-granular random-access
// byte store: an in-memory overlay that sits in front of an arbitrary
// backend.Backend, absorbing byte-level reads and writes under a
// bounded LRU page cache, and writing dirty pages back on flush,
// eviction, or close.
//
// Grounded on the page-cache-over-a-stream shape of
// catfs/mio/pagecache/overlay.go, generalized from a read-only overlay
// over an io.ReadSeeker to a read-write cache over a capability-probed
// backend.Backend.
package layerstore

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/layerstore/layerstore/backend"
	"github.com/layerstore/layerstore/bitmask"
	"github.com/layerstore/layerstore/cache"
)

type lifecycleState int

const (
	stateFresh lifecycleState = iota
	stateOpening
	stateOpened
	stateClosing
	stateClosed
	stateUnlinking
	stateUnlinked
)

// Store is a layered random-access byte store over a backend.Backend.
// The zero value is not valid; use New.
type Store struct {
	mu sync.Mutex

	opts    Options
	backend backend.Backend
	log     *logrus.Entry

	pages *cache.LRU[*page]
	pins  *cache.PinSet
	mask  *bitmask.Mask

	dirty map[int64]struct{}

	size       int64
	fileExists bool
	state      lifecycleState
}

// New constructs a Store over be, which the Store references but does
// not own: callers remain responsible for anything beyond calling
// be.Close/be.Unlink through the Store's lifecycle methods.
func New(be backend.Backend, opts Options) *Store {
	s := &Store{
		opts:    opts,
		backend: be,
		log:     logrus.WithField("component", "layerstore"),
		pins:    cache.NewPinSet(),
		dirty:   make(map[int64]struct{}),
		state:   stateFresh,
	}

	s.pages = cache.NewLRU[*page](int(opts.MaxPages), s.pins.IsPinned, s.onEvict)
	return s
}

func (s *Store) pageSize() int64 {
	return int64(s.opts.PageSize)
}

func (s *Store) pageIndex(off int64) int64 {
	return off / s.pageSize()
}

// onEvict is the Page Cache's dispose hook. It runs while s.mu is
// already held by the caller that triggered eviction.
func (s *Store) onEvict(p int64, pg *page) {
	if pg.dirty && s.opts.AutoFlushOnEvict {
		if err := s.flushPageLocked(p, pg); err != nil {
			s.log.WithFields(logrus.Fields{
				"page": p,
				"err":  err,
			}).Warn("eviction-time flush failed, evicting anyway")
		}
	}

	delete(s.dirty, p)
}

// SetBitmask installs a write gate. A nil buf clears it.
func (s *Store) SetBitmask(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if buf == nil {
		s.mask = nil
		return
	}

	s.mask = bitmask.New(buf)
}

// ClearBitmask removes the write gate.
func (s *Store) ClearBitmask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mask = nil
}

// Pin marks the pages spanning [offset, offset+size) immune to
// eviction.
func (s *Store) Pin(offset, size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forEachPageIndex(int64(offset), int64(size), func(p int64) {
		s.pins.Pin(p)
	})
}

// Unpin removes the eviction immunity for [offset, offset+size).
func (s *Store) Unpin(offset, size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forEachPageIndex(int64(offset), int64(size), func(p int64) {
		s.pins.Unpin(p)
	})
}

func (s *Store) forEachPageIndex(offset, size int64, fn func(p int64)) {
	if size <= 0 {
		return
	}

	first := s.pageIndex(offset)
	last := s.pageIndex(offset + size - 1)
	for p := first; p <= last; p++ {
		fn(p)
	}
}

// Size returns the current logical length.
func (s *Store) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(s.size)
}
