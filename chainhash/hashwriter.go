package chainhash

import (
	"crypto/sha256"
	"hash"
)

// HashWriter is used to incrementally hash data without concatenating all of
// the data into a single buffer. HashWriter.Write(b).Finalize() == HashH(b).
type HashWriter struct {
	inner hash.Hash
}

// NewHashWriter returns a new HashWriter.
func NewHashWriter() *HashWriter {
	return &HashWriter{sha256.New()}
}

// Write always returns (len(p), nil).
func (w *HashWriter) Write(p []byte) (int, error) {
	return w.inner.Write(p)
}

// Finalize returns the resulting hash.
func (w *HashWriter) Finalize() Hash {
	res := Hash{}
	copy(res[:], w.inner.Sum(nil))
	return res
}
