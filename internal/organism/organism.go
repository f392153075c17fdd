// Package organism assembles the whole creature: manifold state, energy
// landscape, homeostatic coupling, gradient chain, episodic memory, immune
// checks, and the monitor, advanced by a fixed per-step pipeline. A step
// never fails; panics are contained and answered with a hard reset of both
// states. One instance is single-threaded and owns all of its randomness.
// See design doc Section 10.
package organism

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/animus/internal/coupling"
	"github.com/talgya/animus/internal/energy"
	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/gradient"
	"github.com/talgya/animus/internal/immune"
	"github.com/talgya/animus/internal/manifold"
	"github.com/talgya/animus/internal/memory"
	"github.com/talgya/animus/internal/monitor"
	"github.com/talgya/animus/internal/state"
)

// noveltyBoost multiplies the noise scale while recent novelty sits below
// the maintenance threshold. The escape valve against stagnation.
const noveltyBoost = 3.0

// runLogInterval spaces out progress logging in verbose runs.
const runLogInterval = 100

// Config carries every knob an organism is built with. Seed,
// MemoryCapacity, and Monitoring are the primary ones; the rest default
// sensibly through DefaultConfig.
type Config struct {
	Seed           int64      `json:"seed"`
	MemoryCapacity int        `json:"memory_capacity"`
	Monitoring     bool       `json:"monitoring"`
	Validation     bool       `json:"validation"`
	Dims           state.Dims `json:"dims"`

	StepSize           float64 `json:"step_size"`
	NoiseScale         float64 `json:"noise_scale"`
	NoveltyMaintenance float64 `json:"novelty_maintenance"`
	StoreInterval      int     `json:"store_interval"`
	ShortWindow        int     `json:"short_window"`
	LongWindow         int     `json:"long_window"`
	MaxGradNorm        float64 `json:"max_grad_norm"`
	MinGradNorm        float64 `json:"min_grad_norm"`

	Thresholds monitor.Thresholds `json:"thresholds"`
}

// DefaultConfig returns the tuning the organism was developed at, with
// full-size dimensions.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:               seed,
		MemoryCapacity:     1000,
		Monitoring:         true,
		Validation:         true,
		Dims:               state.DefaultDims(),
		StepSize:           0.01,
		NoiseScale:         0.005,
		NoveltyMaintenance: 0.25,
		StoreInterval:      5,
		ShortWindow:        10,
		LongWindow:         100,
		MaxGradNorm:        10.0,
		MinGradNorm:        0.01,
		Thresholds:         monitor.DefaultThresholds(),
	}
}

// QuickConfig shrinks the manifold for tools and tests that want many
// cheap organisms rather than one full-size one.
func QuickConfig(seed int64) Config {
	cfg := DefaultConfig(seed)
	cfg.Dims = state.Dims{Texture: 32, Themes: 16, Direction: 16}
	cfg.MemoryCapacity = 256
	return cfg
}

func (cfg Config) validate() error {
	switch {
	case !cfg.Dims.Valid():
		return fmt.Errorf("invalid dims %+v", cfg.Dims)
	case cfg.MemoryCapacity < 1:
		return fmt.Errorf("memory capacity %d < 1", cfg.MemoryCapacity)
	case cfg.StepSize <= 0:
		return fmt.Errorf("step size %v must be positive", cfg.StepSize)
	case cfg.NoiseScale < 0:
		return fmt.Errorf("noise scale %v must be nonnegative", cfg.NoiseScale)
	case cfg.StoreInterval < 1:
		return fmt.Errorf("store interval %d < 1", cfg.StoreInterval)
	case cfg.ShortWindow < 1 || cfg.LongWindow < cfg.ShortWindow:
		return fmt.Errorf("windows short=%d long=%d out of order", cfg.ShortWindow, cfg.LongWindow)
	case cfg.MaxGradNorm <= 0 || cfg.MinGradNorm < 0 || cfg.MinGradNorm >= cfg.MaxGradNorm:
		return fmt.Errorf("gradient norms min=%v max=%v out of order", cfg.MinGradNorm, cfg.MaxGradNorm)
	}
	return nil
}

// StepResult is one committed state pair.
type StepResult struct {
	Creative state.Creative `json:"creative"`
	Vitals   state.Vitals   `json:"vitals"`
}

// Organism is the self-regulating numerical creature. Not safe for
// concurrent use; callers wanting parallel simulations run one instance
// per goroutine.
type Organism struct {
	cfg  Config
	src  *entropy.Source
	mem  *memory.Store
	land *energy.Landscape
	comp *gradient.Computer

	val     *immune.Validator
	reset   *immune.Recoverer
	checker immune.Checker
	mender  immune.Mender
	watch   monitor.Watcher

	creative state.Creative
	prev     state.Creative
	vitals   state.Vitals
	status   monitor.Status

	step   uint64
	panics uint64

	novelty   []float64
	coherence []float64
	stress    []float64
	history   []StepMetrics

	valChecks   uint64
	valFailures uint64
	valIssues   uint64
}

// New builds an organism from the config. The seed fully determines the
// trajectory: two organisms with equal configs walk identical paths.
func New(cfg Config) (*Organism, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("organism config: %w", err)
	}

	src := entropy.NewSource(cfg.Seed)
	mem := memory.NewStore(cfg.MemoryCapacity, src)
	o := &Organism{
		cfg:   cfg,
		src:   src,
		mem:   mem,
		land:  energy.NewLandscape(cfg.Dims, mem),
		comp:  gradient.NewComputer(cfg.MaxGradNorm, cfg.MinGradNorm, src),
		val:   immune.NewValidator(cfg.Dims),
		reset: immune.NewRecoverer(cfg.Dims, src),
	}
	if cfg.Validation {
		o.checker, o.mender = o.val, o.reset
	} else {
		o.checker, o.mender = immune.NoopChecker{}, immune.NoopMender{}
	}
	if cfg.Monitoring {
		o.watch = monitor.New(cfg.Thresholds)
	} else {
		o.watch = monitor.Noop{}
	}

	o.creative = state.RandomCreative(src, cfg.Dims)
	o.prev = o.creative.Clone()
	o.vitals = state.DefaultVitals()
	o.status = monitor.Status{Mode: monitor.Full}

	slog.Info("organism created",
		"seed", cfg.Seed,
		"dims", cfg.Dims.Total(),
		"memory_capacity", cfg.MemoryCapacity,
		"monitoring", cfg.Monitoring)
	return o, nil
}

// Step advances the organism once and returns the committed state pair.
// It never fails: a panic anywhere in the pipeline is contained and
// answered with a hard reset of both states.
func (o *Organism) Step() (res StepResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.panics++
			o.step++
			slog.Error("step panicked, hard resetting",
				"step", o.step,
				"cause", fmt.Sprint(r))
			rep := immune.Report{Issues: []immune.Issue{
				{Cat: immune.NonFinite, Field: "step", Detail: fmt.Sprint(r)},
			}}
			o.creative, o.vitals, _ = o.reset.Recover(o.creative, o.vitals, rep)
			o.prev = o.creative.Clone()
			res = StepResult{Creative: o.creative.Clone(), Vitals: o.vitals}
		}
	}()
	return o.advance(start)
}

// advance is the per-step pipeline. Stage order is load-bearing: the
// constraints read the vitals before f updates them, and the monitor's
// capability mode only applies from the next step on.
func (o *Organism) advance(start time.Time) StepResult {
	inf := coupling.ComputeInfluence(o.creative, o.prev, o.mem, o.cfg.Dims)

	o.novelty = append(o.novelty, inf.Novelty)
	o.coherence = append(o.coherence, inf.Coherence)
	o.stress = append(o.stress, o.vitals.CombinedStress())

	con := coupling.ConstraintsFrom(o.vitals)

	o.vitals = coupling.StepVitals(o.vitals, inf)

	if n := len(o.novelty); n >= coupling.MinAdaptHistory {
		o.vitals = coupling.AdaptGains(o.vitals,
			tailMean(o.novelty, o.cfg.LongWindow),
			tailMean(o.coherence, o.cfg.LongWindow),
			tailMean(o.stress, o.cfg.LongWindow),
			n)
	}

	x := o.creative.Vector()
	xPrev := o.prev.Vector()
	dir := o.comp.Direction(gradient.Request{
		X:     x,
		XPrev: xPrev,
		Con:   con,
		Model: o.land,
		Mem:   o.mem,
		Dims:  o.cfg.Dims,
	})
	gradNorm := manifold.Norm(dir)

	stepSize := o.cfg.StepSize * o.status.Mode.StepScale()
	noiseScale := o.cfg.NoiseScale * o.status.Mode.ExplorationScale()
	if tailMean(o.novelty, o.cfg.ShortWindow) < o.cfg.NoveltyMaintenance {
		noiseScale *= noveltyBoost
	}
	noise := o.src.NormVector(len(x), 1)
	cand := make([]float64, len(x))
	for i := range cand {
		cand[i] = x[i] + stepSize*dir[i] + noiseScale*noise[i]
	}
	next := state.FromVector(cand, o.cfg.Dims)

	recMode := immune.None
	o.valChecks++
	if rep := o.checker.Check(next, o.vitals); !rep.OK {
		o.valFailures++
		o.valIssues += uint64(len(rep.Issues))
		next, o.vitals, recMode = o.mender.Recover(next, o.vitals, rep)
	}

	o.step++
	if o.step%uint64(o.cfg.StoreInterval) == 0 {
		o.mem.Store(next, o.step, inf)
	}

	e := o.land.Evaluate(next.Vector(), x, con)

	o.prev = o.creative
	o.creative = next

	// Collapse detection reads the short-window novelty mean. Instantaneous
	// novelty dips right after every store; only a sustained low reading
	// counts.
	o.status = o.watch.Observe(monitor.Sample{
		Step:         o.step,
		Novelty:      tailMean(o.novelty, o.cfg.ShortWindow),
		Energy:       e,
		GradientNorm: gradNorm,
		Health:       o.mem.Health(),
		Duration:     time.Since(start),
	})

	o.history = append(o.history, StepMetrics{
		Step:         o.step,
		Novelty:      inf.Novelty,
		Coherence:    inf.Coherence,
		Stress:       o.vitals.CombinedStress(),
		Resources:    o.vitals.Resources,
		Gains:        o.vitals.Gains,
		Energy:       e,
		GradientNorm: gradNorm,
		Constraints:  con,
		Duration:     time.Since(start),
		Recovery:     recMode,
		Mode:         o.status.Mode,
		Severity:     o.status.Severity,
	})

	return StepResult{Creative: o.creative.Clone(), Vitals: o.vitals}
}

// Run advances the organism n steps and returns the full trajectory.
func (o *Organism) Run(n int, verbose bool) []StepResult {
	if n < 0 {
		n = 0
	}
	traj := make([]StepResult, 0, n)
	for i := 0; i < n; i++ {
		traj = append(traj, o.Step())
		if verbose && (i+1)%runLogInterval == 0 && len(o.history) > 0 {
			m := o.history[len(o.history)-1]
			slog.Info("run progress",
				"step", o.step,
				"novelty", fmt.Sprintf("%.3f", m.Novelty),
				"stress", fmt.Sprintf("%.3f", m.Stress),
				"energy", fmt.Sprintf("%.3f", m.Energy),
				"mode", m.Mode.String())
		}
	}
	return traj
}

// Creative returns a copy of the current creative state.
func (o *Organism) Creative() state.Creative {
	return o.creative.Clone()
}

// Vitals returns the current homeostatic state.
func (o *Organism) Vitals() state.Vitals {
	return o.vitals
}

// StepCount returns how many steps have been taken.
func (o *Organism) StepCount() uint64 {
	return o.step
}

// Config returns the configuration the organism was built with.
func (o *Organism) Config() Config {
	return o.cfg
}

// History returns a copy of the per-step metric rows.
func (o *Organism) History() []StepMetrics {
	out := make([]StepMetrics, len(o.history))
	copy(out, o.history)
	return out
}
