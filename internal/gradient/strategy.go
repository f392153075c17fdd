// Package gradient turns the energy model into a usable descent direction
// through a prioritized strategy chain with a shared validation stage and
// an emergency fallback, so the step loop always gets a direction back.
// See design doc Section 4.4.
package gradient

import (
	"math"

	"github.com/talgya/animus/internal/energy"
	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

// Memory is the slice of the episodic store the strategies draw on.
type Memory interface {
	Nearest(v []float64) (vec []float64, dist float64, ok bool)
	Centroid() (vec []float64, ok bool)
}

// Model is the energy surface the strategies differentiate.
type Model interface {
	Evaluate(x, xPrev []float64, con energy.Constraints) float64
	Gradient(x, xPrev []float64, con energy.Constraints) []float64
}

// Request carries one step's inputs through the chain.
type Request struct {
	X     []float64
	XPrev []float64
	Con   energy.Constraints
	Model Model
	Mem   Memory
	Dims  state.Dims
}

// Strategy proposes a descent direction. ok is false when the strategy
// cannot serve the request, and the chain moves on.
type Strategy interface {
	Name() string
	Direction(req Request) (dir []float64, ok bool)
}

// Analytical negates the landscape's closed-form gradient. Fails when the
// model is missing or the raw gradient carries non-finite values.
type Analytical struct{}

func (Analytical) Name() string { return "analytical" }

func (Analytical) Direction(req Request) ([]float64, bool) {
	if req.Model == nil {
		return nil, false
	}
	grad := req.Model.Gradient(req.X, req.XPrev, req.Con)
	if !finite(grad) {
		return nil, false
	}
	return manifold.Scale(grad, -1), true
}

// FiniteDifference differentiates the energy numerically by central
// differences. Slow but robust: evaluation sanitizes its inputs, so this
// still serves when the state itself has gone non-finite.
type FiniteDifference struct {
	// Step is the probe half-width; zero means the 1e-5 default.
	Step float64
}

func (FiniteDifference) Name() string { return "finite-difference" }

func (f FiniteDifference) Direction(req Request) ([]float64, bool) {
	if req.Model == nil {
		return nil, false
	}
	h := f.Step
	if h <= 0 {
		h = 1e-5
	}
	probe := manifold.Sanitize(req.X)
	dir := make([]float64, len(probe))
	for i := range probe {
		orig := probe[i]
		probe[i] = orig + h
		ep := req.Model.Evaluate(probe, req.XPrev, req.Con)
		probe[i] = orig - h
		em := req.Model.Evaluate(probe, req.XPrev, req.Con)
		probe[i] = orig
		dir[i] = -(ep - em) / (2 * h)
	}
	if !finite(dir) {
		return nil, false
	}
	return dir, true
}

// Heuristic assembles a direction with no energy model at all: repel from
// the nearest memory, damp the current velocity, sharpen the themes. Fails
// when it has nothing to work from or assembles a non-finite result.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Direction(req Request) ([]float64, bool) {
	dir := make([]float64, len(req.X))
	contributed := false

	if req.Mem != nil {
		if m, d, ok := req.Mem.Nearest(req.X); ok && d > 1e-9 && len(m) == len(req.X) {
			scale := req.Con.Novelty * math.Exp(-d) / d
			for i := range dir {
				dir[i] += scale * (req.X[i] - m[i])
			}
			contributed = true
		}
	}

	if len(req.XPrev) == len(req.X) {
		for i := range dir {
			dir[i] -= req.Con.Risk * (req.X[i] - req.XPrev[i])
		}
		contributed = true
	}

	if hMax := math.Log(float64(req.Dims.Themes)); hMax > 0 && req.Dims.Total() == len(req.X) {
		for i := req.Dims.Texture; i < req.Dims.Texture+req.Dims.Themes; i++ {
			p := req.X[i]
			if p < 1e-12 {
				p = 1e-12
			}
			dir[i] += req.Con.Coherence / hMax * (1 + math.Log(p))
		}
		contributed = true
	}

	if !contributed || !finite(dir) {
		return nil, false
	}
	return dir, true
}

// finite reports whether every element is an ordinary number.
func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
