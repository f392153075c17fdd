// Package energy defines the landscape the creative state descends. Four
// terms: novelty reward (distance from stored memories), risk penalty
// (step velocity), coherence reward (concentrated themes), and a soft
// boundary penalty on the texture component.
// See design doc Section 4.
package energy

import (
	"math"

	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

// softRadius is where the boundary penalty starts, inside the hard texture
// bound so the penalty ramps up before the clamp ever engages.
const softRadius = state.TextureBound * 0.8

// defaultNearest stands in for the nearest-memory distance while the memory
// store is still empty.
const defaultNearest = 0.5

// logFloor keeps theme probabilities away from log(0) in the coherence term.
const logFloor = 1e-12

// Constraints are the (b, λ, α) weights produced by the homeostatic
// coupling: novelty budget, risk aversion, and coherence pull.
type Constraints struct {
	Novelty   float64 `json:"novelty"`
	Risk      float64 `json:"risk"`
	Coherence float64 `json:"coherence"`
}

// Proximity is the slice of the memory system the landscape needs.
type Proximity interface {
	// Nearest returns the stored vector closest to v and its distance.
	// ok is false while nothing is stored.
	Nearest(v []float64) (vec []float64, dist float64, ok bool)
}

// Terms is one evaluation broken into its named components.
// Total = -Novelty + Risk·λ ... already weighted: Total = -U + λR - αC + B.
type Terms struct {
	Novelty   float64 `json:"novelty"`   // U, includes the b weight
	Risk      float64 `json:"risk"`      // R, unweighted
	Coherence float64 `json:"coherence"` // C, unweighted
	Boundary  float64 `json:"boundary"`  // B
	Total     float64 `json:"total"`     // E
}

// Landscape evaluates the energy and its analytical gradient over flattened
// state vectors (texture‖themes‖direction).
type Landscape struct {
	dims state.Dims
	mem  Proximity
}

// NewLandscape builds a landscape over the given dimensions, reading
// nearest-memory distances from mem.
func NewLandscape(dims state.Dims, mem Proximity) *Landscape {
	return &Landscape{dims: dims, mem: mem}
}

// Evaluate returns E = -U + λ·R - α·C + B.
func (l *Landscape) Evaluate(x, xPrev []float64, con Constraints) float64 {
	return l.EvaluateTerms(x, xPrev, con).Total
}

// EvaluateTerms returns the full energy breakdown at x.
func (l *Landscape) EvaluateTerms(x, xPrev []float64, con Constraints) Terms {
	x = manifold.Sanitize(x)

	dMin := defaultNearest
	if _, d, ok := l.mem.Nearest(x); ok {
		dMin = d
	}
	u := con.Novelty * (1 - math.Exp(-dMin))

	r := 0.0
	if len(xPrev) == len(x) {
		d := manifold.Distance(x, manifold.Sanitize(xPrev))
		r = 0.5 * d * d
	}

	themes := x[l.dims.Texture : l.dims.Texture+l.dims.Themes]
	hMax := math.Log(float64(l.dims.Themes))
	c := 0.0
	if hMax > 0 {
		c = 1 - rawEntropy(themes)/hMax
	}

	b := 0.0
	for _, t := range x[:l.dims.Texture] {
		if excess := math.Abs(t) - softRadius; excess > 0 {
			b += excess * excess
		}
	}

	total := -u + con.Risk*r - con.Coherence*c + b
	if math.IsNaN(total) {
		total = 0
	} else if math.IsInf(total, 1) {
		total = math.MaxFloat64 / 4
	} else if math.IsInf(total, -1) {
		total = -math.MaxFloat64 / 4
	}

	return Terms{Novelty: u, Risk: r, Coherence: c, Boundary: b, Total: total}
}

// Gradient returns the raw analytical ∇E at x. Each term contributes only
// inside the subspace it depends on. Non-finite input propagates; the
// gradient computer's validation stage decides what to do with it.
func (l *Landscape) Gradient(x, xPrev []float64, con Constraints) []float64 {
	grad := make([]float64, len(x))

	// Novelty: -∇U points toward the nearest memory; descent moves away.
	if m, dMin, ok := l.mem.Nearest(x); ok && dMin > 1e-9 && len(m) == len(x) {
		scale := con.Novelty * math.Exp(-dMin) / dMin
		for i := range grad {
			grad[i] -= scale * (x[i] - m[i])
		}
	}

	// Risk: λ·(x - xPrev).
	if len(xPrev) == len(x) {
		for i := range grad {
			grad[i] += con.Risk * (x[i] - xPrev[i])
		}
	}

	// Coherence: only the theme subspace, -(α/H_max)·(1 + log p_i).
	hMax := math.Log(float64(l.dims.Themes))
	if hMax > 0 {
		for i := l.dims.Texture; i < l.dims.Texture+l.dims.Themes; i++ {
			p := x[i]
			if p < logFloor {
				p = logFloor
			}
			grad[i] -= con.Coherence / hMax * (1 + math.Log(p))
		}
	}

	// Boundary: only the texture subspace, 2·excess·sign.
	for i := 0; i < l.dims.Texture; i++ {
		if excess := math.Abs(x[i]) - softRadius; excess > 0 {
			grad[i] += 2 * excess * math.Copysign(1, x[i])
		}
	}

	return grad
}

// Dims returns the dimensions the landscape was built over.
func (l *Landscape) Dims() state.Dims {
	return l.dims
}

// rawEntropy is Shannon entropy with probabilities clipped away from zero
// but not renormalized, so the closed-form coherence gradient matches the
// evaluated function exactly, on and slightly off the simplex.
func rawEntropy(p []float64) float64 {
	h := 0.0
	for _, x := range p {
		if x < logFloor || math.IsNaN(x) {
			x = logFloor
		}
		h -= x * math.Log(x)
	}
	return h
}
