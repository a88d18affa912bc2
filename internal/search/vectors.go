package search

import (
	"encoding/binary"
	"math"
)

// Float32ToBytes encodes a vector as little-endian bytes for the
// embedding cache's SQLite BLOB column (store.EmbeddingCacheEntry).
func Float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToFloat32 decodes a little-endian byte slice produced by
// Float32ToBytes. Returns nil if b isn't a whole number of float32s,
// which the cache treats as a cache miss rather than a panic.
func BytesToFloat32(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
