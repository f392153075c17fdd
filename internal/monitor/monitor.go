// Package monitor watches a running organism: step timings, best-effort
// host usage, and the stability signals that feed degradation. Host and
// timing samples are observational only; the degradation decision is
// driven purely by deterministic stability alerts, so two runs from the
// same seed follow identical capability modes.
// See design doc Section 9.
package monitor

import (
	"log/slog"
	"runtime"
	"time"
)

// Severity is the aggregate alarm level for one step.
type Severity uint8

const (
	Nominal Severity = iota
	Caution
	Significant
	Critical
)

func (s Severity) String() string {
	switch s {
	case Nominal:
		return "nominal"
	case Caution:
		return "caution"
	case Significant:
		return "significant"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Alert is a named stability breach.
type Alert struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Value    float64  `json:"value"`
	Limit    float64  `json:"limit"`
}

// Sample carries one step's observations into the monitor.
type Sample struct {
	Step         uint64
	Novelty      float64
	Energy       float64
	GradientNorm float64
	Health       float64
	Duration     time.Duration
}

// Status is the monitor's answer for a step: the aggregate severity, the
// capability mode the organism should run at, and the active alerts.
type Status struct {
	Severity Severity `json:"severity"`
	Mode     Mode     `json:"mode"`
	Alerts   []Alert  `json:"alerts,omitempty"`
}

// Report summarizes everything the monitor has seen.
type Report struct {
	Steps        uint64            `json:"steps"`
	Mode         Mode              `json:"mode"`
	Transitions  uint64            `json:"transitions"`
	PeakSeverity Severity          `json:"peak_severity"`
	AlertCounts  map[string]uint64 `json:"alert_counts,omitempty"`
	AvgStepUs    float64           `json:"avg_step_us"`
	MaxStepUs    float64           `json:"max_step_us"`
	HeapAllocMB  float64           `json:"heap_alloc_mb"`
	Goroutines   int               `json:"goroutines"`
}

// Watcher observes each step and owns the degradation decision.
type Watcher interface {
	Observe(s Sample) Status
	Report() Report
}

// Thresholds are the stability limits the monitor enforces.
type Thresholds struct {
	NoveltyFloor     float64 `json:"novelty_floor"`
	EnergyVarWindow  int     `json:"energy_var_window"`
	EnergyVarCeiling float64 `json:"energy_var_ceiling"`
	GradientCeiling  float64 `json:"gradient_ceiling"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		NoveltyFloor:     0.05,
		EnergyVarWindow:  50,
		EnergyVarCeiling: 100.0,
		GradientCeiling:  10.0,
	}
}

// hostSampleInterval spaces out ReadMemStats calls; it stops the world
// briefly and a step is much cheaper than that.
const hostSampleInterval = 100

// Monitor is the live implementation of Watcher.
type Monitor struct {
	thr      Thresholds
	energies []float64

	mode        Mode
	transitions uint64

	steps        uint64
	totalDur     time.Duration
	maxDur       time.Duration
	peakSeverity Severity
	alertCounts  map[string]uint64

	heapAlloc  uint64
	goroutines int
}

func New(thr Thresholds) *Monitor {
	if thr.EnergyVarWindow < 2 {
		thr.EnergyVarWindow = 2
	}
	return &Monitor{
		thr:         thr,
		energies:    make([]float64, 0, thr.EnergyVarWindow),
		alertCounts: make(map[string]uint64),
	}
}

// Observe ingests one step's sample, raises any stability alerts, and
// returns the capability mode to run the next step at.
func (m *Monitor) Observe(s Sample) Status {
	m.steps++
	m.totalDur += s.Duration
	if s.Duration > m.maxDur {
		m.maxDur = s.Duration
	}
	if m.steps == 1 || m.steps%hostSampleInterval == 0 {
		m.sampleHost()
	}

	m.pushEnergy(s.Energy)

	var alerts []Alert
	if s.Novelty < m.thr.NoveltyFloor {
		excess := m.thr.NoveltyFloor / max(s.Novelty, 1e-9)
		alerts = append(alerts, Alert{
			Name:     "novelty-collapse",
			Severity: severityFor(excess),
			Value:    s.Novelty,
			Limit:    m.thr.NoveltyFloor,
		})
	}
	if len(m.energies) >= m.thr.EnergyVarWindow {
		if v := variance(m.energies); v > m.thr.EnergyVarCeiling {
			alerts = append(alerts, Alert{
				Name:     "energy-variance",
				Severity: severityFor(v / m.thr.EnergyVarCeiling),
				Value:    v,
				Limit:    m.thr.EnergyVarCeiling,
			})
		}
	}
	if s.GradientNorm > m.thr.GradientCeiling {
		alerts = append(alerts, Alert{
			Name:     "gradient-ceiling",
			Severity: severityFor(s.GradientNorm / m.thr.GradientCeiling),
			Value:    s.GradientNorm,
			Limit:    m.thr.GradientCeiling,
		})
	}

	sev := Nominal
	for _, a := range alerts {
		m.alertCounts[a.Name]++
		if a.Severity > sev {
			sev = a.Severity
		}
	}
	if sev > m.peakSeverity {
		m.peakSeverity = sev
	}

	mode := ModeFor(s.Health, len(alerts))
	if mode != m.mode {
		slog.Info("capability mode change",
			"from", m.mode.String(),
			"to", mode.String(),
			"severity", sev.String(),
			"alerts", len(alerts),
			"step", s.Step)
		m.mode = mode
		m.transitions++
	}

	return Status{Severity: sev, Mode: mode, Alerts: alerts}
}

// Report returns the accumulated observations.
func (m *Monitor) Report() Report {
	rep := Report{
		Steps:        m.steps,
		Mode:         m.mode,
		Transitions:  m.transitions,
		PeakSeverity: m.peakSeverity,
		HeapAllocMB:  float64(m.heapAlloc) / (1 << 20),
		Goroutines:   m.goroutines,
	}
	if len(m.alertCounts) > 0 {
		rep.AlertCounts = make(map[string]uint64, len(m.alertCounts))
		for k, v := range m.alertCounts {
			rep.AlertCounts[k] = v
		}
	}
	if m.steps > 0 {
		rep.AvgStepUs = float64(m.totalDur.Microseconds()) / float64(m.steps)
		rep.MaxStepUs = float64(m.maxDur.Microseconds())
	}
	return rep
}

func (m *Monitor) pushEnergy(e float64) {
	if len(m.energies) == m.thr.EnergyVarWindow {
		copy(m.energies, m.energies[1:])
		m.energies[len(m.energies)-1] = e
		return
	}
	m.energies = append(m.energies, e)
}

// sampleHost refreshes the observational host stats. The runtime calls
// never fail; values stay zero until the first refresh.
func (m *Monitor) sampleHost() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.heapAlloc = ms.HeapAlloc
	m.goroutines = runtime.NumGoroutine()
}

// severityFor grades a breach by how far past its limit it is.
func severityFor(excess float64) Severity {
	switch {
	case excess >= 4:
		return Critical
	case excess >= 2:
		return Significant
	default:
		return Caution
	}
}

func variance(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}

// Noop discards observations and always reports full capability.
// Substituted when monitoring is disabled.
type Noop struct{}

func (Noop) Observe(Sample) Status { return Status{Severity: Nominal, Mode: Full} }
func (Noop) Report() Report        { return Report{Mode: Full} }
