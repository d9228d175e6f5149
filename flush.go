package layerstore

import "github.com/layerstore/layerstore/backend"

// Flush Engine: writes dirty (and zero-filled missing) pages within a
// byte range back through the backend, clears their dirty flags, and
// truncates the backend if the flush covers the logical end and the
// size has shrunk.
//
// Grounded on catfs/mio/pagecache/overlay.go, generalized from an
// occlusion check against a read-only stream to a write-back of a
// read-write cache onto a read-write backend.

// Flush writes [offset, offset+size) back to the backend page by page:
// every resident page in range is written whether dirty or not, and a
// non-resident page in range is written as zeros. size is clipped to
// the current logical size.
func (s *Store) Flush(offset, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked(offset, size)
}

func (s *Store) flushLocked(offset, size uint64) error {
	if err := s.ensureOpenLocked(); err != nil {
		return err
	}

	if !s.backend.Supports(backend.CapWrite) {
		return nil
	}

	off := int64(offset)
	reqEnd := off + int64(size)
	clippedEnd := reqEnd
	if clippedEnd > s.size {
		clippedEnd = s.size
	}

	if off >= clippedEnd {
		return nil
	}

	pageSize := s.pageSize()
	startPage := s.pageIndex(off)
	endPage := s.pageIndex(clippedEnd - 1)

	for p := startPage; p <= endPage; p++ {
		pageStart := p * pageSize
		startInPage := int64(0)
		if pageStart < off {
			startInPage = off - pageStart
		}

		endInPage := pageSize
		if pageStart+endInPage > clippedEnd {
			endInPage = clippedEnd - pageStart
		}

		writeOff := pageStart + startInPage
		writeSize := endInPage - startInPage
		if writeSize <= 0 {
			continue
		}

		pg, resident := s.pages.Get(p)

		var buf []byte
		if resident {
			buf = make([]byte, writeSize)
			pg.readInto(buf, int(startInPage), int(endInPage))
		} else {
			buf = make([]byte, writeSize)
		}

		if err := s.backend.Write(writeOff, buf); err != nil {
			return wrapBackendErr("write", err)
		}

		if resident && pg.dirty {
			pg.dirty = false
			delete(s.dirty, p)
		}
	}

	if clippedEnd < reqEnd && s.backend.Supports(backend.CapTruncate) {
		if err := s.backend.Truncate(s.size); err != nil {
			return wrapBackendErr("truncate", err)
		}
	}

	return nil
}

// flushPageLocked writes a single resident page back to the backend,
// clearing its dirty flag on success. Used by the eviction hook.
func (s *Store) flushPageLocked(p int64, pg *page) error {
	if !s.backend.Supports(backend.CapWrite) {
		pg.dirty = false
		return nil
	}

	pageStart := p * s.pageSize()
	writeEnd := pageStart + int64(len(pg.data))
	if writeEnd > s.size {
		writeEnd = s.size
	}

	if writeEnd <= pageStart {
		pg.dirty = false
		return nil
	}

	if err := s.backend.Write(pageStart, pg.data[:writeEnd-pageStart]); err != nil {
		return wrapBackendErr("write", err)
	}

	pg.dirty = false
	return nil
}
