package layerstore

import "github.com/layerstore/layerstore/backend"

// Lifecycle: fresh -> opening -> opened -> {closing -> closed} |
// {unlinking -> unlinked}, monotonic once past fresh.
//
// Grounded on overlay.go's NewPageLayer one-shot eviction-at-open
// idea, generalized into the full state machine the gateway.Gateway's
// Start/Stop pairing suggests in shape (terse struct plus lifecycle
// methods), since brig's overlay itself wraps an already-open stream
// and has no explicit open/close of its own.

// ensureOpenLocked performs an implicit open if the store has not been
// opened yet. Callers hold s.mu.
func (s *Store) ensureOpenLocked() error {
	if s.state == stateOpened {
		return nil
	}

	if s.state == stateClosed || s.state == stateUnlinked {
		return ErrClosed
	}

	return s.openLocked()
}

// Open prepares the backend for use. Idempotent: calling it again once
// opened is a no-op.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.openLocked()
}

func (s *Store) openLocked() error {
	if s.state == stateOpened {
		return nil
	}

	if s.state == stateClosed || s.state == stateUnlinked {
		return ErrClosed
	}

	s.state = stateOpening

	if s.backend.Supports(backend.CapOpen) {
		if err := s.backend.Open(s.opts.CreateIfMissing); err != nil {
			if !s.opts.CreateIfMissing {
				return ErrNotFound
			}

			return wrapBackendErr("open", err)
		}
	}

	s.fileExists = true

	if s.backend.Supports(backend.CapStat) {
		sz, err := s.backend.Stat()
		if err != nil {
			s.log.WithField("err", err).Warn("stat failed at open, treating backend as empty")
			sz = 0
		}

		if sz > s.size {
			s.size = sz
		}
	}

	s.state = stateOpened
	return nil
}

// Close flushes (if FlushOnClose) and releases the backend. A flush
// failure is logged but never prevents close from completing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed || s.state == stateUnlinked {
		return nil
	}

	s.state = stateClosing

	if s.opts.FlushOnClose {
		if err := s.flushLocked(0, uint64(s.size)); err != nil {
			s.log.WithField("err", err).Warn("flush on close failed, closing anyway")
		}
	}

	if s.backend.Supports(backend.CapClose) {
		if err := s.backend.Close(); err != nil {
			s.state = stateClosed
			return wrapBackendErr("close", err)
		}
	}

	s.state = stateClosed
	return nil
}

// Unlink permanently removes the backend's storage. If the backend
// does not support unlink, all in-memory state is cleared instead.
func (s *Store) Unlink() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}

	s.state = stateUnlinking

	if s.backend.Supports(backend.CapUnlink) {
		if err := s.backend.Unlink(); err != nil {
			return wrapBackendErr("unlink", err)
		}
	} else {
		for _, p := range s.pages.Keys() {
			s.pages.EvictExplicit(p)
		}

		s.dirty = make(map[int64]struct{})
		s.pins.Clear()
		s.size = 0
	}

	s.state = stateUnlinked
	return nil
}
