package immune

import (
	"log/slog"

	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/state"
)

// Mode is the tier of repair applied to a failing state.
type Mode uint8

const (
	None Mode = iota
	SoftRepair
	HardReset
	Emergency
	numModes
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case SoftRepair:
		return "soft-repair"
	case HardReset:
		return "hard-reset"
	case Emergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// hardResetFreshWeight is how strongly a hard reset leans on the fresh
// random state versus the repaired remnant of the current one.
const hardResetFreshWeight = 0.7

// Stats counts recoveries by mode since construction.
type Stats struct {
	SoftRepairs uint64 `json:"soft_repairs"`
	HardResets  uint64 `json:"hard_resets"`
	Emergencies uint64 `json:"emergencies"`
}

// Checker validates a state pair against the structural invariants.
type Checker interface {
	Check(c state.Creative, v state.Vitals) Report
}

// Mender heals a state pair according to a validation report.
type Mender interface {
	Recover(c state.Creative, v state.Vitals, rep Report) (state.Creative, state.Vitals, Mode)
	Stats() Stats
}

// Recoverer applies the tiered repair ladder. The tier is chosen by
// counting distinct critical categories in the report: two or more mean
// the state is not worth salvaging.
type Recoverer struct {
	dims   state.Dims
	src    *entropy.Source
	counts [numModes]uint64
}

func NewRecoverer(dims state.Dims, src *entropy.Source) *Recoverer {
	return &Recoverer{dims: dims, src: src}
}

// ModeFor picks the repair tier for a report.
func (r *Recoverer) ModeFor(rep Report) Mode {
	if rep.OK {
		return None
	}
	switch crit := rep.CriticalCount(); {
	case crit >= 2:
		return Emergency
	case crit == 1:
		return HardReset
	default:
		return SoftRepair
	}
}

// Recover heals both states according to the report and returns them along
// with the mode that was applied.
func (r *Recoverer) Recover(c state.Creative, vt state.Vitals, rep Report) (state.Creative, state.Vitals, Mode) {
	mode := r.ModeFor(rep)
	r.counts[mode]++
	switch mode {
	case None:
		return c, vt, mode
	case SoftRepair:
		slog.Debug("soft repair", "issues", len(rep.Issues))
		return state.RepairCreative(c, r.dims), state.RepairVitals(vt), mode
	case HardReset:
		slog.Warn("hard reset", "issues", len(rep.Issues), "critical", rep.CriticalCount())
		return r.hardReset(c), r.hardResetVitals(vt), mode
	default:
		slog.Warn("emergency reinitialization", "issues", len(rep.Issues), "critical", rep.CriticalCount())
		return state.RandomCreative(r.src, r.dims), state.DefaultVitals(), mode
	}
}

// Stats returns the recovery counters.
func (r *Recoverer) Stats() Stats {
	return Stats{
		SoftRepairs: r.counts[SoftRepair],
		HardResets:  r.counts[HardReset],
		Emergencies: r.counts[Emergency],
	}
}

// hardReset blends a fresh random state with the repaired remnant of the
// current one, then projects the blend back onto the manifold.
func (r *Recoverer) hardReset(c state.Creative) state.Creative {
	fresh := state.RandomCreative(r.src, r.dims)
	rem := state.RepairCreative(c, r.dims)
	blend := state.Creative{
		Texture:   blendVec(fresh.Texture, rem.Texture),
		Themes:    blendVec(fresh.Themes, rem.Themes),
		Direction: blendVec(fresh.Direction, rem.Direction),
	}
	return state.RepairCreative(blend, r.dims)
}

func (r *Recoverer) hardResetVitals(vt state.Vitals) state.Vitals {
	def := state.DefaultVitals()
	rem := state.RepairVitals(vt)
	var out state.Vitals
	for i := range out.Resources {
		out.Resources[i] = mix(def.Resources[i], rem.Resources[i])
	}
	for i := range out.Stress {
		out.Stress[i] = mix(def.Stress[i], rem.Stress[i])
	}
	for i := range out.Gains {
		out.Gains[i] = mix(def.Gains[i], rem.Gains[i])
	}
	return state.RepairVitals(out)
}

func blendVec(fresh, rem []float64) []float64 {
	out := make([]float64, len(fresh))
	for i := range fresh {
		out[i] = mix(fresh[i], rem[i])
	}
	return out
}

func mix(fresh, rem float64) float64 {
	return hardResetFreshWeight*fresh + (1-hardResetFreshWeight)*rem
}

// NoopChecker approves every state pair. Substituted when validation is
// disabled.
type NoopChecker struct{}

func (NoopChecker) Check(state.Creative, state.Vitals) Report {
	return Report{OK: true}
}

// NoopMender returns states untouched.
type NoopMender struct{}

func (NoopMender) Recover(c state.Creative, v state.Vitals, _ Report) (state.Creative, state.Vitals, Mode) {
	return c, v, None
}

func (NoopMender) Stats() Stats { return Stats{} }
