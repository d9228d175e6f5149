package layerstore

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Evict evicts ceil(percent * residentUnpinnedCount) least-recently-used
// unpinned pages. A dirty victim is flushed first whenever flushFirst
// or s.opts.AutoFlushOnEvict is set (EvictExplicit, used below to drop
// the page, bypasses the cache's own dispose hook, so that policy has
// to be applied here instead). percent is clamped to [0, 1].
//
// Named in the Store Interface table but left underspecified by the
// component sections; this is the precise semantics this module
// commits to.
func (s *Store) Evict(percent float64, flushFirst bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}

	if percent < 0 {
		percent = 0
	}

	if percent > 1 {
		percent = 1
	}

	keys := s.pages.Keys()

	unpinned := make([]int64, 0, len(keys))
	for _, p := range keys {
		if !s.pins.IsPinned(p) {
			unpinned = append(unpinned, p)
		}
	}

	n := int(math.Ceil(percent * float64(len(unpinned))))
	if n > len(unpinned) {
		n = len(unpinned)
	}

	for i := 0; i < n; i++ {
		p := unpinned[i]

		pg, ok := s.pages.Get(p)
		if !ok {
			continue
		}

		if (flushFirst || s.opts.AutoFlushOnEvict) && pg.dirty {
			if err := s.flushPageLocked(p, pg); err != nil {
				s.log.WithFields(logrus.Fields{
					"page": p,
					"err":  err,
				}).Warn("flush-before-evict failed, evicting anyway")
			}
		}

		s.pages.EvictExplicit(p)
		delete(s.dirty, p)
	}

	return nil
}
