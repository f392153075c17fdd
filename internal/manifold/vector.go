// Basic float64 vector operations shared across the numeric core.
// See design doc Section 3.2.
package manifold

import "math"

// entropyFloor keeps probabilities away from log(0).
const entropyFloor = 1e-12

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var ss float64
	for _, x := range v {
		ss += x * x
	}
	return math.Sqrt(ss)
}

// Distance returns the L2 distance between a and b. Lengths must match.
func Distance(a, b []float64) float64 {
	var ss float64
	for i, x := range a {
		d := x - b[i]
		ss += d * d
	}
	return math.Sqrt(ss)
}

// Add returns a + b elementwise. Lengths must match.
func Add(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i, x := range a {
		out[i] = x + b[i]
	}
	return out
}

// Sub returns a - b elementwise. Lengths must match.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i, x := range a {
		out[i] = x - b[i]
	}
	return out
}

// Scale returns v * s elementwise.
func Scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * s
	}
	return out
}

// ClipNorm rescales v down to the given norm when it exceeds max.
// Vectors at or under the cap pass through unchanged (copied).
func ClipNorm(v []float64, max float64) []float64 {
	out := append([]float64(nil), v...)
	n := Norm(out)
	if n <= max || n < zeroNormEps {
		return out
	}
	s := max / n
	for i := range out {
		out[i] *= s
	}
	return out
}

// Entropy returns the Shannon entropy of p in nats. Elements are clipped to
// a small floor and renormalized so a zero probability never reaches log.
func Entropy(p []float64) float64 {
	if len(p) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range p {
		if x < entropyFloor || math.IsNaN(x) {
			x = entropyFloor
		}
		sum += x
	}
	if sum <= 0 || math.IsInf(sum, 0) {
		return 0
	}
	h := 0.0
	for _, x := range p {
		if x < entropyFloor || math.IsNaN(x) {
			x = entropyFloor
		}
		q := x / sum
		h -= q * math.Log(q)
	}
	return h
}
