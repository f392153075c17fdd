// Package immune checks organism state against every structural invariant
// and heals what it finds broken through a tiered ladder of recovery
// modes. Validation failures never surface to callers; they are itemized,
// counted, and repaired in place.
// See design doc Section 8.
package immune

import (
	"bytes"
	"fmt"
	"math"

	"github.com/talgya/animus/internal/state"
)

// Category classifies one validation finding.
type Category uint8

const (
	NonFinite Category = iota
	Dimension
	SimplexSum
	SimplexNegative
	SphereNorm
	Bounds
	Checksum
	numCategories
)

func (c Category) String() string {
	switch c {
	case NonFinite:
		return "non-finite"
	case Dimension:
		return "dimension"
	case SimplexSum:
		return "simplex-sum"
	case SimplexNegative:
		return "simplex-negative"
	case SphereNorm:
		return "sphere-norm"
	case Bounds:
		return "bounds"
	case Checksum:
		return "checksum"
	default:
		return "unknown"
	}
}

// Critical reports whether the category indicates a state beyond local
// re-projection: corrupted numbers, wrong shape, or a failed checksum.
func (c Category) Critical() bool {
	switch c {
	case NonFinite, Dimension, Checksum:
		return true
	}
	return false
}

// Issue is one itemized validation finding.
type Issue struct {
	Cat    Category `json:"cat"`
	Field  string   `json:"field"`
	Detail string   `json:"detail"`
}

// Report is the outcome of validating a state.
type Report struct {
	OK     bool    `json:"ok"`
	Issues []Issue `json:"issues,omitempty"`
}

// CriticalCount returns how many distinct critical categories appear in
// the report. Repeated findings in the same category count once.
func (r Report) CriticalCount() int {
	var seen [numCategories]bool
	for _, is := range r.Issues {
		if is.Cat.Critical() {
			seen[is.Cat] = true
		}
	}
	n := 0
	for _, s := range seen {
		if s {
			n++
		}
	}
	return n
}

func (r *Report) add(cat Category, field, detail string) {
	r.OK = false
	r.Issues = append(r.Issues, Issue{Cat: cat, Field: field, Detail: detail})
}

// Validator itemizes invariant violations per state. Unlike the strict
// constructors, which stop at the first problem, the validator keeps going
// so recovery can judge how bad things are.
type Validator struct {
	dims state.Dims
}

func NewValidator(dims state.Dims) *Validator {
	return &Validator{dims: dims}
}

// Check validates a state pair and merges the findings into one report.
func (v *Validator) Check(c state.Creative, vt state.Vitals) Report {
	rep := Report{OK: true}
	v.checkCreative(&rep, c)
	v.checkVitals(&rep, vt)
	return rep
}

// CheckCreative validates just the creative state.
func (v *Validator) CheckCreative(c state.Creative) Report {
	rep := Report{OK: true}
	v.checkCreative(&rep, c)
	return rep
}

// CheckVitals validates just the vitals.
func (v *Validator) CheckVitals(vt state.Vitals) Report {
	rep := Report{OK: true}
	v.checkVitals(&rep, vt)
	return rep
}

// CheckStored validates a compressed snapshot against its recorded
// checksum and the expected dimensionality. Used when state re-enters the
// organism from outside, where Checksum is a reachable failure.
func (v *Validator) CheckStored(compressed, sum []byte) Report {
	rep := Report{OK: true}
	got := state.Checksum(compressed)
	if !bytes.Equal(got[:], sum) {
		rep.add(Checksum, "snapshot", "checksum mismatch")
	}
	if n := len(state.Decompress(compressed)); n != v.dims.Total() {
		rep.add(Dimension, "snapshot", fmt.Sprintf("length %d, want %d", n, v.dims.Total()))
	}
	return rep
}

func (v *Validator) checkCreative(rep *Report, c state.Creative) {
	texOK := v.checkBlock(rep, "texture", c.Texture, v.dims.Texture)
	thOK := v.checkBlock(rep, "themes", c.Themes, v.dims.Themes)
	dirOK := v.checkBlock(rep, "direction", c.Direction, v.dims.Direction)

	if texOK {
		for i, t := range c.Texture {
			if math.Abs(t) > state.TextureBound {
				rep.add(Bounds, "texture", fmt.Sprintf("element %d = %.3f exceeds bound %.1f", i, t, state.TextureBound))
				break
			}
		}
	}
	if thOK {
		sum := 0.0
		for i, p := range c.Themes {
			sum += p
			if p < -state.SimplexTol {
				rep.add(SimplexNegative, "themes", fmt.Sprintf("element %d = %.6f", i, p))
			}
		}
		if math.Abs(sum-1) > state.SimplexTol {
			rep.add(SimplexSum, "themes", fmt.Sprintf("sum = %.6f", sum))
		}
	}
	if dirOK {
		norm := 0.0
		for _, d := range c.Direction {
			norm += d * d
		}
		norm = math.Sqrt(norm)
		if math.Abs(norm-1) > state.SphereTol {
			rep.add(SphereNorm, "direction", fmt.Sprintf("norm = %.6f", norm))
		}
	}
}

// checkBlock flags dimension and finiteness problems for one component and
// reports whether the block is clean enough for manifold checks.
func (v *Validator) checkBlock(rep *Report, field string, block []float64, want int) bool {
	ok := true
	if len(block) != want {
		rep.add(Dimension, field, fmt.Sprintf("length %d, want %d", len(block), want))
		ok = false
	}
	for i, x := range block {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			rep.add(NonFinite, field, fmt.Sprintf("element %d = %v", i, x))
			ok = false
			break
		}
	}
	return ok
}

func (v *Validator) checkVitals(rep *Report, vt state.Vitals) {
	check01 := func(field string, vals []float64) {
		for i, x := range vals {
			switch {
			case math.IsNaN(x) || math.IsInf(x, 0):
				rep.add(NonFinite, field, fmt.Sprintf("element %d = %v", i, x))
			case x < 0 || x > 1:
				rep.add(Bounds, field, fmt.Sprintf("element %d = %.3f outside [0,1]", i, x))
			}
		}
	}
	check01("resources", vt.Resources[:])
	check01("stress", vt.Stress[:])
	for i, g := range vt.Gains {
		switch {
		case math.IsNaN(g) || math.IsInf(g, 0):
			rep.add(NonFinite, "gains", fmt.Sprintf("element %d = %v", i, g))
		case g < state.GainMin || g > state.GainMax:
			rep.add(Bounds, "gains", fmt.Sprintf("element %d = %.3f outside [%.1f,%.1f]", i, g, state.GainMin, state.GainMax))
		}
	}
}
