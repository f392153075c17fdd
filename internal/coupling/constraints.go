// The vitals-to-constraints mapping Ψ.
// See design doc Section 5.2.
package coupling

import (
	"github.com/talgya/animus/internal/energy"
	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

// Constraint bounds. The floor on the novelty budget is the lever that
// makes permanent exploration collapse impossible: even a depleted,
// stressed organism keeps a sliver of novelty drive.
const (
	NoveltyFloor   = 0.05
	NoveltyCap     = 2.0
	RiskCap        = 1.5
	CoherenceFloor = 0.1
	CoherenceCap   = 1.2
)

// Mapping scales applied before clamping.
const (
	noveltyScale   = 1.0
	riskScale      = 0.5
	coherenceScale = 0.4
)

// ConstraintsFrom maps the homeostatic reading onto the energy weights.
// Exploration is budgeted by the scarcest resource and suppressed by
// stress; risk aversion relaxes under stress relief; coherence pull grows
// with stress; a strained organism consolidates rather than wanders.
func ConstraintsFrom(v state.Vitals) energy.Constraints {
	stress := v.CombinedStress()
	calm := 1 - stress
	return energy.Constraints{
		Novelty:   manifold.Clamp(noveltyScale*v.Gains[state.GainExplore]*v.MinResource()*calm, NoveltyFloor, NoveltyCap),
		Risk:      manifold.Clamp(riskScale*v.Gains[state.GainRisk]*calm, 0, RiskCap),
		Coherence: manifold.Clamp(coherenceScale*v.Gains[state.GainCoherence]*(1+stress), CoherenceFloor, CoherenceCap),
	}
}
