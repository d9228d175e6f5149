// Package testutil provides buffer and temp-file generators shared by
// this module's package tests.
//
// Grounded on util/testutil/testutil.go's CreateDummyBuf/CreateFile,
// generalized with a seeded-random variant (the striped pattern alone
// can hide bugs that only show up on less regular data, e.g. in the
// bitmask tests).
package testutil

import (
	"math/rand"
	"os"
	"testing"
)

// DummyBuf returns a byte slice of the given size filled with the
// repeating sequence [0..254].
func DummyBuf(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i % 255)
	}

	return buf
}

// RandomBuf returns a byte slice of the given size filled with
// deterministic pseudo-random bytes from seed.
func RandomBuf(size int, seed int64) []byte {
	buf := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(buf)
	return buf
}

// TempFile creates a temporary file containing size bytes of DummyBuf
// data and returns its path. The caller should remove it via Remover.
func TempFile(t *testing.T, size int64) string {
	t.Helper()

	fd, err := os.CreateTemp("", "layerstore_test")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}

	blockSize := int64(64 * 1024)
	buf := DummyBuf(int(blockSize))

	for size > 0 {
		take := size
		if take > int64(len(buf)) {
			take = int64(len(buf))
		}

		if _, err := fd.Write(buf[:take]); err != nil {
			t.Fatalf("write temp file: %v", err)
		}

		size -= take
	}

	if err := fd.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}

	return fd.Name()
}

// Remover removes all paths, failing the test if any removal errors.
// Intended for use in defer statements.
func Remover(t *testing.T, paths ...string) {
	t.Helper()

	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			t.Errorf("removing %s failed: %v", path, err)
		}
	}
}
