// Snapshot compression and integrity checksums for stored states.
// See design doc Section 6.2.
package state

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Compress packs a flat float64 vector into little-endian float32 bytes,
// halving the footprint of memory entries and snapshots. Precision loss is
// ~1e-7 relative, well inside every manifold tolerance.
func Compress(v []float64) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(x)))
	}
	return out
}

// Decompress unpacks Compress output back into float64s.
func Decompress(b []byte) []float64 {
	n := len(b) / 4
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return out
}

// Checksum returns the sha256 digest of a compressed snapshot. Verified on
// every retrieval so corrupted data never re-enters the dynamics.
func Checksum(b []byte) [sha256.Size]byte {
	return sha256.Sum256(b)
}
