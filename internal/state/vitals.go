// The homeostatic ledger that throttles the creative dynamics.
// See design doc Section 2.2.
package state

import (
	"fmt"
	"math"

	"github.com/talgya/animus/internal/manifold"
)

// Resource indices.
const (
	ResReserve = iota
	ResAttention
	ResCapacity
	NumResources
)

// Stress channel indices.
const (
	StressLoad = iota
	StressVariance
	NumStressChannels
)

// Gain indices.
const (
	GainExplore = iota
	GainRisk
	GainCoherence
	NumGains
)

// Gain bounds. Gains never reach zero: a fully suppressed drive cannot
// recover, so the floor keeps every drive minimally alive.
const (
	GainMin = 0.1
	GainMax = 3.0
)

// Stress channel weights for the combined stress reading. Load dominates.
const (
	stressLoadWeight     = 0.6
	stressVarianceWeight = 0.4
)

// Vitals is the homeostatic state: resource reserves and stress channels in
// [0,1], plus the slow-adapting gains that scale the organism's constraints.
type Vitals struct {
	Resources [NumResources]float64      `json:"resources"`
	Stress    [NumStressChannels]float64 `json:"stress"`
	Gains     [NumGains]float64          `json:"gains"`
}

// DefaultVitals returns the known-healthy starting point: comfortable
// reserves, low stress, neutral gains.
func DefaultVitals() Vitals {
	return Vitals{
		Resources: [NumResources]float64{0.8, 0.8, 0.8},
		Stress:    [NumStressChannels]float64{0.1, 0.1},
		Gains:     [NumGains]float64{1, 1, 1},
	}
}

// NewVitals builds Vitals from raw values, failing on any bound violation.
func NewVitals(resources [NumResources]float64, stress [NumStressChannels]float64, gains [NumGains]float64) (Vitals, error) {
	v := Vitals{Resources: resources, Stress: stress, Gains: gains}
	if err := v.Check(); err != nil {
		return Vitals{}, err
	}
	return v, nil
}

// RepairVitals clamps every component back into bounds. Non-finite values
// fall back to the healthy defaults.
func RepairVitals(raw Vitals) Vitals {
	def := DefaultVitals()
	out := raw
	for i, x := range out.Resources {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = def.Resources[i]
		}
		out.Resources[i] = manifold.Clamp(x, 0, 1)
	}
	for i, x := range out.Stress {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = def.Stress[i]
		}
		out.Stress[i] = manifold.Clamp(x, 0, 1)
	}
	for i, x := range out.Gains {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = def.Gains[i]
		}
		out.Gains[i] = manifold.Clamp(x, GainMin, GainMax)
	}
	return out
}

// Check reports the first bound violation, or nil for a valid state.
func (v Vitals) Check() error {
	for i, x := range v.Resources {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 || x > 1 {
			return fmt.Errorf("resource[%d] = %v outside [0, 1]", i, x)
		}
	}
	for i, x := range v.Stress {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 || x > 1 {
			return fmt.Errorf("stress[%d] = %v outside [0, 1]", i, x)
		}
	}
	for i, x := range v.Gains {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < GainMin || x > GainMax {
			return fmt.Errorf("gain[%d] = %v outside [%v, %v]", i, x, GainMin, GainMax)
		}
	}
	return nil
}

// MinResource returns the scarcest reserve. Exploration is budgeted against
// the tightest resource, not the average.
func (v Vitals) MinResource() float64 {
	min := v.Resources[0]
	for _, x := range v.Resources[1:] {
		if x < min {
			min = x
		}
	}
	return min
}

// CombinedStress returns the weighted stress reading used by the constraint
// mapping.
func (v Vitals) CombinedStress() float64 {
	return stressLoadWeight*v.Stress[StressLoad] + stressVarianceWeight*v.Stress[StressVariance]
}
