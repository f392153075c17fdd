package organism

import (
	"math"
	"time"

	"github.com/talgya/animus/internal/energy"
	"github.com/talgya/animus/internal/gradient"
	"github.com/talgya/animus/internal/immune"
	"github.com/talgya/animus/internal/memory"
	"github.com/talgya/animus/internal/monitor"
	"github.com/talgya/animus/internal/state"
)

// StepMetrics is the per-step record kept for analysis and persistence.
type StepMetrics struct {
	Step         uint64                      `json:"step"`
	Novelty      float64                     `json:"novelty"`
	Coherence    float64                     `json:"coherence"`
	Stress       float64                     `json:"stress"`
	Resources    [state.NumResources]float64 `json:"resources"`
	Gains        [state.NumGains]float64     `json:"gains"`
	Energy       float64                     `json:"energy"`
	GradientNorm float64                     `json:"gradient_norm"`
	Constraints  energy.Constraints          `json:"constraints"`
	Duration     time.Duration               `json:"duration_ns"`
	Recovery     immune.Mode                 `json:"recovery"`
	Mode         monitor.Mode                `json:"mode"`
	Severity     monitor.Severity            `json:"severity"`
}

// Series summarizes one tracked quantity.
type Series struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// ValidationStats counts what the per-step checks saw.
type ValidationStats struct {
	Checks   uint64 `json:"checks"`
	Failures uint64 `json:"failures"`
	Issues   uint64 `json:"issues"`
}

// Summary is the aggregated numeric picture of a run so far.
type Summary struct {
	Seed  int64  `json:"seed"`
	Steps uint64 `json:"steps"`

	Novelty      Series `json:"novelty"`
	Coherence    Series `json:"coherence"`
	Stress       Series `json:"stress"`
	Energy       Series `json:"energy"`
	GradientNorm Series `json:"gradient_norm"`

	Memory       memory.Stats    `json:"memory"`
	MemoryHealth float64         `json:"memory_health"`
	Monitor      monitor.Report  `json:"monitor"`
	Gradient     gradient.Stats  `json:"gradient"`
	Recovery     immune.Stats    `json:"recovery"`
	Validation   ValidationStats `json:"validation"`
	Panics       uint64          `json:"panics"`
}

// Safety is the set of named safety properties. Each is computed over the
// whole recorded history plus the current state.
type Safety struct {
	BoundedExploration   bool `json:"bounded_exploration"`
	NoCollapse           bool `json:"no_collapse"`
	StressBounded        bool `json:"stress_bounded"`
	ResourcesNonnegative bool `json:"resources_nonnegative"`
	EnergyFinite         bool `json:"energy_finite"`
	GradientsBounded     bool `json:"gradients_bounded"`
}

// All reports whether every property holds.
func (s Safety) All() bool {
	return s.BoundedExploration && s.NoCollapse && s.StressBounded &&
		s.ResourcesNonnegative && s.EnergyFinite && s.GradientsBounded
}

// Metrics aggregates the tracked series and every subsystem's sub-report.
func (o *Organism) Metrics() Summary {
	energies := make([]float64, len(o.history))
	gradNorms := make([]float64, len(o.history))
	for i, m := range o.history {
		energies[i] = m.Energy
		gradNorms[i] = m.GradientNorm
	}
	return Summary{
		Seed:         o.cfg.Seed,
		Steps:        o.step,
		Novelty:      seriesOf(o.novelty),
		Coherence:    seriesOf(o.coherence),
		Stress:       seriesOf(o.stress),
		Energy:       seriesOf(energies),
		GradientNorm: seriesOf(gradNorms),
		Memory:       o.mem.Stats(),
		MemoryHealth: o.mem.Health(),
		Monitor:      o.watch.Report(),
		Gradient:     o.comp.Stats(),
		Recovery:     o.reset.Stats(),
		Validation: ValidationStats{
			Checks:   o.valChecks,
			Failures: o.valFailures,
			Issues:   o.valIssues,
		},
		Panics: o.panics,
	}
}

// SafetyProperties evaluates the named safety properties against the
// current state and the recorded history.
func (o *Organism) SafetyProperties() Safety {
	s := Safety{
		BoundedExploration:   o.val.CheckCreative(o.creative).OK,
		NoCollapse:           true,
		StressBounded:        o.val.CheckVitals(o.vitals).OK,
		ResourcesNonnegative: true,
		EnergyFinite:         true,
		GradientsBounded:     true,
	}
	if len(o.novelty) > 0 {
		s.NoCollapse = tailMean(o.novelty, o.cfg.LongWindow) > o.cfg.Thresholds.NoveltyFloor
	}
	for _, m := range o.history {
		if m.Stress < 0 || m.Stress > 1 {
			s.StressBounded = false
		}
		for _, r := range m.Resources {
			if r < 0 {
				s.ResourcesNonnegative = false
			}
		}
		if math.IsNaN(m.Energy) || math.IsInf(m.Energy, 0) {
			s.EnergyFinite = false
		}
		if m.GradientNorm > o.cfg.MaxGradNorm+1e-9 {
			s.GradientsBounded = false
		}
	}
	for _, r := range o.vitals.Resources {
		if r < 0 {
			s.ResourcesNonnegative = false
		}
	}
	return s
}

func seriesOf(xs []float64) Series {
	if len(xs) == 0 {
		return Series{}
	}
	s := Series{Min: xs[0], Max: xs[0]}
	for _, x := range xs {
		s.Mean += x
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	s.Mean /= float64(len(xs))
	for _, x := range xs {
		d := x - s.Mean
		s.Variance += d * d
	}
	s.Variance /= float64(len(xs))
	return s
}

// tailMean averages the trailing window of a series, or all of it when
// shorter than the window.
func tailMean(xs []float64, window int) float64 {
	if len(xs) == 0 {
		return 0
	}
	if window > len(xs) {
		window = len(xs)
	}
	sum := 0.0
	for _, x := range xs[len(xs)-window:] {
		sum += x
	}
	return sum / float64(window)
}
