package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPinSetPinUnpin(t *testing.T) {
	s := NewPinSet()
	require.False(t, s.IsPinned(42))

	s.Pin(42)
	require.True(t, s.IsPinned(42))

	s.Unpin(42)
	require.False(t, s.IsPinned(42))
}

func TestPinSetUnpinningUnpinnedPageIsNoop(t *testing.T) {
	s := NewPinSet()
	s.Unpin(7)
	require.False(t, s.IsPinned(7))
}

func TestPinSetPinningUnresidentPageIsValid(t *testing.T) {
	s := NewPinSet()
	s.Pin(100)
	require.True(t, s.IsPinned(100))
}
