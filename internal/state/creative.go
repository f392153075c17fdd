// Package state defines the two state types an organism carries: the
// Creative state, a point on a product manifold, and the Vitals of the
// homeostatic subsystem. Constructors are strict; explicit Repair functions
// exist for rebuilding from possibly-corrupt data.
// See design doc Section 2.
package state

import (
	"fmt"
	"math"

	"github.com/talgya/animus/internal/entropy"
	"github.com/talgya/animus/internal/manifold"
)

// TextureBound is the hard elementwise bound on the texture component.
const TextureBound = 10.0

// Manifold adherence tolerances.
const (
	SimplexTol = 1e-3
	SphereTol  = 1e-3
)

// Dims fixes the dimensionality of each Creative component.
type Dims struct {
	Texture   int `json:"texture"`
	Themes    int `json:"themes"`
	Direction int `json:"direction"`
}

// DefaultDims returns the dimensions the organism was tuned at.
func DefaultDims() Dims {
	return Dims{Texture: 512, Themes: 128, Direction: 256}
}

// Total returns the flattened vector length.
func (d Dims) Total() int {
	return d.Texture + d.Themes + d.Direction
}

// Valid reports whether every component dimension is positive.
func (d Dims) Valid() bool {
	return d.Texture > 0 && d.Themes > 0 && d.Direction > 0
}

// Creative is a point on the product manifold: a bounded texture vector,
// a theme distribution on the probability simplex, and a unit direction on
// the sphere. Values are never mutated in place; each step constructs a
// new one.
type Creative struct {
	Texture   []float64 `json:"texture"`
	Themes    []float64 `json:"themes"`
	Direction []float64 `json:"direction"`
}

// NewCreative builds a Creative from raw parts, failing on any invariant
// violation. Code that must trust its state goes through here; data of
// doubtful origin goes through RepairCreative instead.
func NewCreative(texture, themes, direction []float64, dims Dims) (Creative, error) {
	c := Creative{
		Texture:   append([]float64(nil), texture...),
		Themes:    append([]float64(nil), themes...),
		Direction: append([]float64(nil), direction...),
	}
	if err := c.Check(dims); err != nil {
		return Creative{}, err
	}
	return c, nil
}

// RepairCreative rebuilds a valid Creative from possibly-corrupt raw parts:
// wrong-length components are resized, values sanitized, and every part
// projected back onto its manifold. Never fails.
func RepairCreative(raw Creative, dims Dims) Creative {
	return Creative{
		Texture:   manifold.ToInterval(resize(raw.Texture, dims.Texture), -TextureBound, TextureBound),
		Themes:    manifold.ToSimplex(resize(raw.Themes, dims.Themes)),
		Direction: manifold.ToSphere(resize(raw.Direction, dims.Direction), 1),
	}
}

// RandomCreative seeds a fresh state from the source's noise fields: a
// smoothly varying texture well inside the soft boundary, a correlated
// theme distribution, and an isotropic direction.
func RandomCreative(src *entropy.Source, dims Dims) Creative {
	texture := make([]float64, dims.Texture)
	for i := range texture {
		texture[i] = (src.TextureNoise(float64(i), 0)*2 - 1) * TextureBound * 0.4
	}
	themes := make([]float64, dims.Themes)
	for i := range themes {
		themes[i] = src.ThemeNoise(float64(i), 0)
	}
	return Creative{
		Texture:   manifold.ToInterval(texture, -TextureBound, TextureBound),
		Themes:    manifold.ToSimplex(themes),
		Direction: manifold.ToSphere(src.NormVector(dims.Direction, 1), 1),
	}
}

// Check reports the first invariant violation, or nil for a valid state.
func (c Creative) Check(dims Dims) error {
	if len(c.Texture) != dims.Texture || len(c.Themes) != dims.Themes || len(c.Direction) != dims.Direction {
		return fmt.Errorf("dimension mismatch: got (%d, %d, %d), want (%d, %d, %d)",
			len(c.Texture), len(c.Themes), len(c.Direction), dims.Texture, dims.Themes, dims.Direction)
	}
	for i, x := range c.Texture {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("texture[%d] is not finite", i)
		}
		if x < -TextureBound || x > TextureBound {
			return fmt.Errorf("texture[%d] = %v outside [%v, %v]", i, x, -TextureBound, TextureBound)
		}
	}
	sum := 0.0
	for i, x := range c.Themes {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("themes[%d] is not finite", i)
		}
		if x < -1e-9 {
			return fmt.Errorf("themes[%d] = %v is negative", i, x)
		}
		sum += x
	}
	if math.Abs(sum-1) > SimplexTol {
		return fmt.Errorf("themes sum = %v, want 1 ± %v", sum, SimplexTol)
	}
	for i, x := range c.Direction {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("direction[%d] is not finite", i)
		}
	}
	if n := manifold.Norm(c.Direction); math.Abs(n-1) > SphereTol {
		return fmt.Errorf("direction norm = %v, want 1 ± %v", n, SphereTol)
	}
	return nil
}

// Vector flattens the state into a single texture‖themes‖direction vector.
func (c Creative) Vector() []float64 {
	out := make([]float64, 0, len(c.Texture)+len(c.Themes)+len(c.Direction))
	out = append(out, c.Texture...)
	out = append(out, c.Themes...)
	out = append(out, c.Direction...)
	return out
}

// FromVector splits a flat vector into components and projects each onto
// its manifold. Wrong-length input is resized first.
func FromVector(v []float64, dims Dims) Creative {
	v = resize(v, dims.Total())
	return RepairCreative(Creative{
		Texture:   v[:dims.Texture],
		Themes:    v[dims.Texture : dims.Texture+dims.Themes],
		Direction: v[dims.Texture+dims.Themes:],
	}, dims)
}

// Clone returns a deep copy.
func (c Creative) Clone() Creative {
	return Creative{
		Texture:   append([]float64(nil), c.Texture...),
		Themes:    append([]float64(nil), c.Themes...),
		Direction: append([]float64(nil), c.Direction...),
	}
}

// resize truncates or zero-pads v to length n without touching the input.
func resize(v []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, v)
	return out
}
