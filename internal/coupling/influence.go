// Package coupling binds the creative dynamics to the homeostatic ones:
// Φ reads influence signals out of a state transition, Ψ maps vitals onto
// the energy constraints, f advances the vitals, and g slowly adapts the
// gains. See design doc Section 5.
package coupling

import (
	"math"

	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

// neutralDistance stands in for the nearest-memory distance while memory
// is empty.
const neutralDistance = 0.5

// Influence is the five-signal reading Φ extracts from a state transition:
// how novel the new state is, how coherent its themes are, blended utility,
// the metabolic cost of carrying it, and how fast the organism is moving.
// Every signal lives in [0, 1].
type Influence struct {
	Novelty   float64 `json:"novelty"`
	Coherence float64 `json:"coherence"`
	Utility   float64 `json:"utility"`
	Cost      float64 `json:"cost"`
	Velocity  float64 `json:"velocity"`
}

// NeutralInfluence is the reading used when one cannot be computed. It
// biases the homeostatic dynamics toward nothing.
func NeutralInfluence() Influence {
	return Influence{Novelty: 0.5, Coherence: 0.5, Utility: 0.5, Cost: 0.3, Velocity: 0.1}
}

// Proximity is the nearest-memory query the influence reading needs.
type Proximity interface {
	Nearest(v []float64) (vec []float64, dist float64, ok bool)
}

// ComputeInfluence derives the influence reading for the transition from
// prev to cur. Any non-finite intermediate yields the neutral default
// rather than poisoning the vitals.
func ComputeInfluence(cur, prev state.Creative, mem Proximity, dims state.Dims) Influence {
	x := cur.Vector()

	dMin := neutralDistance
	if _, d, ok := mem.Nearest(x); ok {
		dMin = d
	}
	novelty := 1 - math.Exp(-dMin)

	coherence := 0.0
	if hMax := math.Log(float64(dims.Themes)); hMax > 0 {
		coherence = 1 - manifold.Entropy(cur.Themes)/hMax
	}

	// Metabolic cost saturates in the component magnitudes: louder texture,
	// heavier theme mass, longer direction all cost more to carry.
	magTexture := manifold.Norm(cur.Texture) / math.Sqrt(float64(dims.Texture))
	magThemes := manifold.Norm(cur.Themes)
	magDirection := manifold.Norm(cur.Direction)
	load := 0.5*(magTexture/state.TextureBound) + 0.3*magThemes + 0.2*magDirection
	cost := math.Tanh(2 * load)

	velocity := 0.0
	if len(prev.Texture) == len(cur.Texture) && len(prev.Themes) == len(cur.Themes) && len(prev.Direction) == len(cur.Direction) {
		velocity = math.Tanh(manifold.Distance(x, prev.Vector()))
	}

	inf := Influence{
		Novelty:   manifold.Clamp(novelty, 0, 1),
		Coherence: manifold.Clamp(coherence, 0, 1),
		Utility:   manifold.Clamp((novelty+coherence)/2, 0, 1),
		Cost:      manifold.Clamp(cost, 0, 1),
		Velocity:  manifold.Clamp(velocity, 0, 1),
	}
	if !inf.finite() {
		return NeutralInfluence()
	}
	return inf
}

func (i Influence) finite() bool {
	for _, x := range [5]float64{i.Novelty, i.Coherence, i.Utility, i.Cost, i.Velocity} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
