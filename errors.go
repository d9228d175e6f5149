package layerstore

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors returned by Store operations. Use errors.Is to test
// for them; BackendError additionally carries the wrapped cause.
var (
	// ErrOutOfRange is returned by the strict variant's Read when the
	// requested range extends past the current logical size.
	ErrOutOfRange = errors.New("read out of range")

	// ErrNotFound is returned when opening a backend that does not
	// exist and createIfMissing is false.
	ErrNotFound = errors.New("backend file does not exist")

	// ErrClosed is returned for operations attempted after Close/Unlink.
	ErrClosed = errors.New("store is closed")
)

// LimitExceededError is returned when an operation's byte range extends
// past the configured strict size limit.
type LimitExceededError struct {
	Offset, Size, Limit uint64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf(
		"range [%d, %d) exceeds strict size enforcement of %d bytes",
		e.Offset, e.Offset+e.Size, e.Limit,
	)
}

// BackendError wraps any failure surfaced by the backend adapter.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func wrapBackendErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &BackendError{Op: op, Err: errors.WithStack(err)}
}
