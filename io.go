package layerstore

import "github.com/layerstore/layerstore/backend"

// I/O Engine: slices byte-range operations into per-page steps over
// the page cache, pin set, bitmask, and size tracker.
//
// Grounded on catfs/mio/pagecache/overlay.go's ReadAt/WriteAt
// page-splitting loop.

func (s *Store) checkStrictLimit(offset, size uint64) error {
	if s.opts.StrictSizeEnforcement == 0 {
		return nil
	}

	if offset+size > s.opts.StrictSizeEnforcement {
		return &LimitExceededError{
			Offset: offset,
			Size:   size,
			Limit:  s.opts.StrictSizeEnforcement,
		}
	}

	return nil
}

// loadPage returns the resident page at index p, loading it from the
// backend on a cache miss. Callers hold s.mu.
func (s *Store) loadPage(p int64) (*page, error) {
	if pg, ok := s.pages.Get(p); ok {
		return pg, nil
	}

	pg := &page{}

	if s.fileExists && s.backend.Supports(backend.CapRead) {
		base := p * s.pageSize()
		want := s.pageSize()
		if remaining := s.size - base; remaining < want {
			want = remaining
		}

		if want > 0 {
			buf := make([]byte, want)
			n, err := s.backend.Read(base, buf)
			if err != nil {
				return nil, wrapBackendErr("read", err)
			}

			pg.data = buf[:n]
		}
	}

	s.pages.Insert(p, pg)
	return pg, nil
}

// Read yields exactly size bytes starting at offset. Bytes past the
// logical size are zero-filled, never an error, in the non-strict
// Store (the strict variant overrides this in strict.go).
func (s *Store) Read(offset, size uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(offset, size)
}

func (s *Store) readLocked(offset, size uint64) ([]byte, error) {
	if err := s.ensureOpenLocked(); err != nil {
		return nil, err
	}

	if err := s.checkStrictLimit(offset, size); err != nil {
		return nil, err
	}

	result := make([]byte, size)
	if size == 0 {
		return result, nil
	}

	off := int64(offset)
	end := off + int64(size)
	pageSize := s.pageSize()

	for cur := off; cur < end; {
		p := s.pageIndex(cur)
		pageStart := p * pageSize
		startInPage := int(cur - pageStart)
		endInPage := int(pageSize)
		if pageStart+int64(endInPage) > end {
			endInPage = int(end - pageStart)
		}

		pg, err := s.loadPage(p)
		if err != nil {
			return nil, err
		}

		dst := result[cur-off : cur-off+int64(endInPage-startInPage)]
		pg.readInto(dst, startInPage, endInPage)
		s.pages.Touch(p)

		cur = pageStart + int64(endInPage)
	}

	return result, nil
}

// Write writes all of data at offset, implicitly extending the
// logical size. Subranges gated off by the bitmask are silently
// skipped and left untouched.
func (s *Store) Write(offset uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(offset, data)
}

func (s *Store) writeLocked(offset uint64, data []byte) error {
	if err := s.ensureOpenLocked(); err != nil {
		return err
	}

	if err := s.checkStrictLimit(offset, uint64(len(data))); err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	off := int64(offset)
	end := off + int64(len(data))
	pageSize := s.pageSize()

	for cur := off; cur < end; {
		p := s.pageIndex(cur)
		pageStart := p * pageSize
		startInPage := int(cur - pageStart)
		endInPage := int(pageSize)
		if pageStart+int64(endInPage) > end {
			endInPage = int(end - pageStart)
		}

		if err := s.writePageSubranges(p, pageStart, startInPage, endInPage, off, data); err != nil {
			return err
		}

		cur = pageStart + int64(endInPage)
	}

	if newSize := off + int64(len(data)); newSize > s.size {
		s.size = newSize
	}

	return nil
}

// writePageSubranges applies data to page p's [startInPage, endInPage)
// byte range, one maximal bitmask-allowed run at a time. off is the
// absolute offset data[0] corresponds to. A page with no allowed bytes
// in range is left entirely untouched: not loaded, not grown, not
// dirtied.
func (s *Store) writePageSubranges(p, pageStart int64, startInPage, endInPage int, off int64, data []byte) error {
	var pg *page

	for lo := startInPage; lo < endInPage; {
		if s.mask != nil && !s.mask.Allows(pageStart+int64(lo)) {
			lo++
			continue
		}

		hi := lo + 1
		for hi < endInPage && (s.mask == nil || s.mask.Allows(pageStart+int64(hi))) {
			hi++
		}

		if pg == nil {
			var err error
			pg, err = s.loadPage(p)
			if err != nil {
				return err
			}
		}

		pg.growTo(hi)
		copy(pg.data[lo:hi], data[pageStart+int64(lo)-off:pageStart+int64(hi)-off])

		lo = hi
	}

	if pg != nil {
		pg.dirty = true
		s.dirty[p] = struct{}{}
		s.pages.Insert(p, pg)

		if !s.pins.IsPinned(p) {
			s.pages.Touch(p)
		}
	}

	return nil
}

// Del zero-fills [offset, offset+size). If the range reaches or
// exceeds the current size, it is treated as a trailing delete that
// shortens the logical size to offset.
func (s *Store) Del(offset, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}

	off := int64(offset)

	// size may be a sentinel standing in for "through end of file"
	// (math.MaxUint64, or anything large enough to overflow once
	// added to off); clip to the current size up front rather than
	// risk wraparound doing the addition in int64.
	end := s.size
	if off < s.size && size < uint64(s.size-off) {
		end = off + int64(size)
	}

	if end < off {
		end = off
	}

	pageSize := s.pageSize()

	for cur := off; cur < end; {
		p := s.pageIndex(cur)
		pageStart := p * pageSize
		startInPage := int(cur - pageStart)
		endInPage := int(pageSize)
		if pageStart+int64(endInPage) > end {
			endInPage = int(end - pageStart)
		}

		if pg, ok := s.pages.Get(p); ok {
			pg.growTo(endInPage)
			for i := startInPage; i < endInPage; i++ {
				pg.data[i] = 0
			}

			pg.dirty = true
			s.dirty[p] = struct{}{}
		}

		cur = pageStart + int64(endInPage)
	}

	if end == s.size {
		s.size = off
	}

	return nil
}

// Truncate sets the logical size to exactly length, growing with
// zero-fill or shrinking and discarding pages past the new boundary.
func (s *Store) Truncate(length uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}

	l := int64(length)

	if l > s.size {
		gap := l - s.size
		zeros := make([]byte, gap)
		base := s.size
		return s.writeLocked(uint64(base), zeros)
	}

	s.size = l

	boundary := s.pageIndex(l)
	for _, p := range s.pages.Keys() {
		if p > boundary {
			s.pages.EvictExplicit(p)
			delete(s.dirty, p)
		}
	}

	if pg, ok := s.pages.Get(boundary); ok {
		rem := int(l - boundary*s.pageSize())
		if rem <= 0 {
			s.pages.EvictExplicit(boundary)
			delete(s.dirty, boundary)
		} else if rem < len(pg.data) {
			pg.data = pg.data[:rem]
			pg.dirty = true
			s.dirty[boundary] = struct{}{}
		}
	}

	if s.backend.Supports(backend.CapTruncate) {
		if err := s.backend.Truncate(l); err != nil {
			return wrapBackendErr("truncate", err)
		}
	}

	return nil
}

// Stat returns the current logical size.
func (s *Store) Stat() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return 0, err
	}

	return uint64(s.size), nil
}
