// Homeostatic dynamics: the fast per-step vitals update f and the slow
// chronic gain adaptation g.
// See design doc Section 5.3.
package coupling

import (
	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/state"
)

// Vitals integration step and stress rates.
const (
	dt          = 0.1
	stressGain  = 0.8
	stressRelax = 0.2
)

// Per-channel resource rates. Attention regenerates fastest and drains
// fastest; capacity is the slow channel both ways.
var (
	inflowRates = [state.NumResources]float64{0.30, 0.35, 0.25}
	costScales  = [state.NumResources]float64{0.50, 0.60, 0.40}
)

// Setpoints the chronic adaptation steers the long-run averages toward.
const (
	noveltyTarget   = 0.55
	coherenceTarget = 0.60
	stressTarget    = 0.30
)

// MinAdaptHistory is how many samples the long-window averages need before
// chronic adaptation engages.
const MinAdaptHistory = 50

// Chronic adaptation moves slowly: a small learning rate, and every nudge
// hard-capped per step.
const (
	adaptRate   = 0.05
	maxGainStep = 0.03
)

// StepVitals advances resources and stress one step under an influence
// reading. Resources regenerate toward saturation and drain in proportion
// to metabolic cost; the load channel saturates under low novelty and high
// cost, the variance channel under velocity, and both relax toward calm.
func StepVitals(v state.Vitals, inf Influence) state.Vitals {
	out := v
	for i, r := range out.Resources {
		r += dt * (inflowRates[i]*(1-r) - costScales[i]*inf.Cost*r)
		out.Resources[i] = manifold.Clamp(r, 0, 1)
	}
	loadDrive := 0.5*(1-inf.Novelty) + 0.5*inf.Cost
	out.Stress[state.StressLoad] = stepStress(out.Stress[state.StressLoad], loadDrive)
	out.Stress[state.StressVariance] = stepStress(out.Stress[state.StressVariance], inf.Velocity)
	return out
}

func stepStress(s, drive float64) float64 {
	s += dt * (stressGain*drive*(1-s) - stressRelax*s)
	return manifold.Clamp(s, 0, 1)
}

// AdaptGains nudges the gains toward their setpoints given long-window
// averages over the trajectory so far. Starved novelty raises the explore
// gain, weak coherence raises the coherence gain, and sustained stress
// raises risk aversion. Below MinAdaptHistory samples the gains are left
// untouched.
func AdaptGains(v state.Vitals, avgNovelty, avgCoherence, avgStress float64, samples int) state.Vitals {
	if samples < MinAdaptHistory {
		return v
	}
	out := v
	out.Gains[state.GainExplore] = nudge(out.Gains[state.GainExplore], noveltyTarget-avgNovelty)
	out.Gains[state.GainCoherence] = nudge(out.Gains[state.GainCoherence], coherenceTarget-avgCoherence)
	out.Gains[state.GainRisk] = nudge(out.Gains[state.GainRisk], avgStress-stressTarget)
	return out
}

func nudge(gain, err float64) float64 {
	delta := manifold.Clamp(adaptRate*err, -maxGainStep, maxGainStep)
	return manifold.Clamp(gain+delta, state.GainMin, state.GainMax)
}
