package layerstore

import "github.com/layerstore/layerstore/backend"

// StrictStore wraps a Store and rejects reads past the current
// logical size instead of zero-filling them. All other behavior
// (write, del, truncate, flush, lifecycle, pin, bitmask) is inherited
// unchanged from the embedded Store.
type StrictStore struct {
	*Store
}

// NewStrict constructs a StrictStore over be.
func NewStrict(be backend.Backend, opts Options) *StrictStore {
	return &StrictStore{Store: New(be, opts)}
}

// Read fails ErrOutOfRange if the requested range extends past the
// current logical size, without issuing any page loads. Otherwise
// behaves exactly like Store.Read.
func (s *StrictStore) Read(offset, size uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return nil, err
	}

	if offset+size > uint64(s.size) {
		return nil, ErrOutOfRange
	}

	return s.readLocked(offset, size)
}
