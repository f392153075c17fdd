// Package manifold provides the projections that keep state vectors on their
// constraint surfaces: the probability simplex, the sphere, and bounded
// intervals. All projections sanitize non-finite input first and are
// idempotent on already-valid vectors.
// See design doc Section 3.1.
package manifold

import (
	"math"
	"sort"
)

// zeroNormEps is the norm below which a vector is treated as directionless.
const zeroNormEps = 1e-12

// ToSimplex returns the Euclidean projection of v onto the probability
// simplex {p : p_i >= 0, sum(p) = 1}. Uses the exact sorting method rather
// than a softmax squash: it stays stable for extreme inputs, and the
// projection of the zero vector is the uniform distribution.
func ToSimplex(v []float64) []float64 {
	n := len(v)
	if n == 0 {
		return nil
	}
	out := Sanitize(v)
	u := append([]float64(nil), out...)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	// Largest k (1-based) with u_k > (cumsum_k - 1)/k determines the shift.
	var cumsum, theta float64
	found := false
	for k := 1; k <= n; k++ {
		cumsum += u[k-1]
		t := (cumsum - 1) / float64(k)
		if u[k-1]-t > 0 {
			theta = t
			found = true
		}
	}
	if !found {
		return Uniform(n)
	}

	sum := 0.0
	for i, x := range out {
		p := x - theta
		if p < 0 {
			p = 0
		}
		out[i] = p
		sum += p
	}
	if sum <= 0 {
		return Uniform(n)
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// ToSphere rescales v onto the sphere of the given radius. A near-zero input
// has no meaningful direction, so the canonical first-axis vector is returned
// instead of dividing by zero.
func ToSphere(v []float64, radius float64) []float64 {
	out := Sanitize(v)
	if len(out) == 0 {
		return out
	}
	n := Norm(out)
	if n < zeroNormEps {
		canonical := make([]float64, len(out))
		canonical[0] = radius
		return canonical
	}
	s := radius / n
	for i := range out {
		out[i] *= s
	}
	return out
}

// ToInterval clamps each element of v into [lo, hi].
func ToInterval(v []float64, lo, hi float64) []float64 {
	out := Sanitize(v)
	for i, x := range out {
		out[i] = Clamp(x, lo, hi)
	}
	return out
}

// Sanitize copies v with non-finite values replaced: NaN becomes 0,
// infinities become ±1. Nothing downstream ever sees NaN or Inf.
func Sanitize(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		switch {
		case math.IsNaN(x):
			out[i] = 0
		case math.IsInf(x, 1):
			out[i] = 1
		case math.IsInf(x, -1):
			out[i] = -1
		default:
			out[i] = x
		}
	}
	return out
}

// Uniform returns the uniform distribution over n outcomes.
func Uniform(n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	p := 1.0 / float64(n)
	for i := range out {
		out[i] = p
	}
	return out
}
