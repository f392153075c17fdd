package monitor

// Mode is the capability level the organism runs at. Lower modes trade
// exploration for stability by shrinking the step size and noise budget.
type Mode uint8

const (
	Full Mode = iota
	ReducedPrecision
	Safe
	Minimal
	EmergencyPreservation
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case ReducedPrecision:
		return "reduced-precision"
	case Safe:
		return "safe"
	case Minimal:
		return "minimal"
	case EmergencyPreservation:
		return "emergency-preservation"
	default:
		return "unknown"
	}
}

var (
	stepScales        = [...]float64{1.0, 0.7, 0.5, 0.25, 0.1}
	explorationScales = [...]float64{1.0, 0.8, 0.5, 0.3, 0.1}
)

// StepScale returns the step-size multiplier for the mode.
func (m Mode) StepScale() float64 {
	if int(m) >= len(stepScales) {
		return stepScales[len(stepScales)-1]
	}
	return stepScales[m]
}

// ExplorationScale returns the noise-budget multiplier for the mode.
func (m Mode) ExplorationScale() float64 {
	if int(m) >= len(explorationScales) {
		return explorationScales[len(explorationScales)-1]
	}
	return explorationScales[m]
}

// ModeFor maps memory health and the active deterministic alert count to a
// capability mode. Monotone in both inputs: worse health or more alerts
// never raises capability.
func ModeFor(health float64, alerts int) Mode {
	switch {
	case alerts >= 3 || health < 0.1:
		return EmergencyPreservation
	case alerts == 2 || health < 0.25:
		return Minimal
	case alerts == 1 && health < 0.5:
		return Safe
	case alerts == 1 || health < 0.75:
		return ReducedPrecision
	default:
		return Full
	}
}
