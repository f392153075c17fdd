package state

import (
	"math"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	v := []float64{0, 1, -1, 0.123456, -9.87, 1e-8}
	back := Decompress(Compress(v))
	if len(back) != len(v) {
		t.Fatalf("length = %d, want %d", len(back), len(v))
	}
	for i := range v {
		if math.Abs(back[i]-v[i]) > 1e-6*(1+math.Abs(v[i])) {
			t.Fatalf("element %d = %v, want ~%v", i, back[i], v[i])
		}
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	b := Compress([]float64{1, 2, 3, 4})
	sum := Checksum(b)
	b[5] ^= 0xFF
	if Checksum(b) == sum {
		t.Fatal("checksum unchanged after byte flip")
	}
}

func TestChecksumStable(t *testing.T) {
	b := Compress([]float64{0.5, -0.5})
	if Checksum(b) != Checksum(b) {
		t.Fatal("checksum not stable")
	}
}
